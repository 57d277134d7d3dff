package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/allynet/zet-live/internal/model"
	"github.com/allynet/zet-live/internal/wire"
)

// getFeed returns the full decoded realtime feed (vehicles + alerts) at
// the last publication. Empty lists, not an error, when nothing has
// published yet (spec §7: total outage returns empty, not a failure).
func (h *handler) getFeed(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Feed.Current()

	type feedResponse struct {
		Vehicles []model.Vehicle `json:"vehicles"`
		Alerts   []model.Alert   `json:"alerts"`
	}

	resp := feedResponse{Vehicles: []model.Vehicle{}, Alerts: []model.Alert{}}
	if snap != nil {
		resp.Vehicles = snap.Vehicles()
		resp.Alerts = snap.Alerts()
	}

	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), resp))
}

// getVehicles returns just the live vehicle list, the REST equivalent
// of the hub's vehicles broadcast.
func (h *handler) getVehicles(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Feed.Current()

	vehicles := []model.Vehicle{}
	if snap != nil {
		vehicles = snap.Vehicles()
	}

	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), vehicles))
}

// getAlerts returns the passthrough service-alerts list (supplemented
// feature; see SPEC_FULL.md's SUPPLEMENTED FEATURES section).
func (h *handler) getAlerts(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Feed.Current()

	alerts := []model.Alert{}
	if snap != nil {
		alerts = snap.Alerts()
	}

	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), alerts))
}

// healthResponse reports staleness of both pipelines so an operator can
// tell a wedged fetcher from total silence (supplemented feature).
type healthResponse struct {
	FeedAgeSeconds     *float64 `json:"feedAgeSeconds,omitempty"`
	ScheduleAgeSeconds *float64 `json:"scheduleAgeSeconds,omitempty"`
	FeedPublished      bool     `json:"feedPublished"`
	SchedulePublished  bool     `json:"schedulePublished"`
}

func (h *handler) getHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	resp := healthResponse{}

	if snap := h.deps.Feed.Current(); snap != nil {
		resp.FeedPublished = true
		age := snap.Age(now).Seconds()
		resp.FeedAgeSeconds = &age
	}
	if snap := h.deps.Schedule.Current(); snap != nil {
		resp.SchedulePublished = true
		age := now.Sub(snap.CreatedAt).Seconds()
		resp.ScheduleAgeSeconds = &age
	}

	wire.WriteResponse(w, r, wire.NewVersioned(now.Unix(), resp))
}

func (h *handler) getRoutes(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Schedule.Current()
	routes := []model.Route{}
	if snap != nil {
		routes = snap.Routes()
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), routes))
}

func (h *handler) getRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.deps.Schedule.Current()
	if snap == nil {
		notFound(w, "route", id)
		return
	}
	route, ok := snap.ByRouteID(id)
	if !ok {
		notFound(w, "route", id)
		return
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), route))
}

func (h *handler) getStops(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Schedule.Current()
	stops := []model.Stop{}
	if snap != nil {
		stops = snap.Stops()
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), stops))
}

func (h *handler) getStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.deps.Schedule.Current()
	if snap == nil {
		notFound(w, "stop", id)
		return
	}
	stop, ok := snap.ByStopID(id)
	if !ok {
		notFound(w, "stop", id)
		return
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), stop))
}

func (h *handler) getSimpleStops(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Schedule.Current()
	stops := []model.SimpleStop{}
	if snap != nil {
		stops = snap.SimpleStops()
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), stops))
}

func (h *handler) getTrips(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Schedule.Current()
	trips := []model.Trip{}
	if snap != nil {
		trips = snap.Trips()
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), trips))
}

func (h *handler) getTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.deps.Schedule.Current()
	if snap == nil {
		notFound(w, "trip", id)
		return
	}
	trip, ok := snap.ByTripID(id)
	if !ok {
		notFound(w, "trip", id)
		return
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), trip))
}

func (h *handler) getShapes(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Schedule.Current()
	shapes := map[string][]model.LatLon{}
	if snap != nil {
		shapes = snap.Shapes()
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), shapes))
}

func (h *handler) getShape(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.deps.Schedule.Current()
	if snap == nil {
		notFound(w, "shape", id)
		return
	}
	points, ok := snap.ByShapeID(id)
	if !ok {
		notFound(w, "shape", id)
		return
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), points))
}

// getStopTrips answers ?stop=a&stop=b with the union of trip ids
// serving any of the given stops.
func (h *handler) getStopTrips(w http.ResponseWriter, r *http.Request) {
	stopIDs := r.URL.Query()["stop"]
	snap := h.deps.Schedule.Current()

	tripIDs := []string{}
	if snap != nil && len(stopIDs) > 0 {
		tripIDs = snap.StopTrips(stopIDs...)
	}
	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), tripIDs))
}

// tripInfo is the trip-info projection: the trip's ordered stop ids and
// its route as an ordered sequence of (longitude, latitude) pairs, taken
// from the trip's shape if present, otherwise synthesized from the
// ordered stops' coordinates (spec §8 scenario 5).
type tripInfo struct {
	StopIDs []string     `json:"stop_ids"`
	Route   [][2]float64 `json:"route"`
}

func (h *handler) getTripInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trip_id")
	snap := h.deps.Schedule.Current()
	if snap == nil {
		notFound(w, "trip", id)
		return
	}

	trip, ok := snap.ByTripID(id)
	if !ok {
		notFound(w, "trip", id)
		return
	}

	var line []model.LatLon
	if trip.ShapeID != "" {
		if pts, ok := snap.ByShapeID(trip.ShapeID); ok {
			line = pts
		}
	}
	if line == nil {
		for _, stopID := range trip.StopIDs {
			if stop, ok := snap.ByStopID(stopID); ok {
				line = append(line, model.LatLon{Lat: stop.Lat, Lon: stop.Lon})
			}
		}
	}

	route := make([][2]float64, len(line))
	for i, p := range line {
		route[i] = [2]float64{p.Lon, p.Lat}
	}

	wire.WriteResponse(w, r, wire.NewVersioned(h.currentTimestamp(), tripInfo{
		StopIDs: trip.StopIDs,
		Route:   route,
	}))
}

func (h *handler) getWSConnections(w http.ResponseWriter, r *http.Request) {
	wire.WriteResponse(w, r, wire.NewVersioned(time.Now().UTC().Unix(), h.deps.Hub.Connections()))
}
