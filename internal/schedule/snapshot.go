package schedule

import (
	"log"
	"sort"
	"time"

	"github.com/allynet/zet-live/internal/model"
	"github.com/allynet/zet-live/internal/schedule/gtfsparse"
)

// Snapshot is an immutable, fully-joined static schedule (spec §3's
// ScheduleSnapshot). Once built it is never mutated; readers share the
// same pointer. Dangling cross-references (a stop_time naming a trip or
// stop not present in trips.txt/stops.txt) are warned about and
// skipped, never fatal.
type Snapshot struct {
	CreatedAt time.Time

	routesByID map[string]model.Route
	stopsByID  map[string]model.Stop
	tripsByID  map[string]model.Trip
	shapesByID map[string][]model.LatLon
}

// Build joins flat GTFS tables into a Snapshot: sorts shape points by
// sequence and groups them per shape, sorts stop_times by sequence and
// appends stop ids to their owning trip's ordered stop list while
// building the inverse trips_that_stop_here index on stops in the same
// pass, per spec §3/§4.2 step 4.
func Build(data *gtfsparse.Data) *Snapshot {
	s := &Snapshot{
		CreatedAt:  time.Now().UTC(),
		routesByID: make(map[string]model.Route, len(data.Routes)),
		stopsByID:  make(map[string]model.Stop, len(data.Stops)),
		tripsByID:  make(map[string]model.Trip, len(data.Trips)),
		shapesByID: make(map[string][]model.LatLon),
	}

	for _, r := range data.Routes {
		s.routesByID[r.RouteID] = model.Route{
			ID:        r.RouteID,
			ShortName: r.RouteShortName,
			LongName:  r.RouteLongName,
			Type:      r.RouteType,
			Color:     r.RouteColor,
		}
	}

	for _, st := range data.Stops {
		s.stopsByID[st.StopID] = model.Stop{
			ID:                st.StopID,
			Name:              st.StopName,
			Lat:               st.StopLat,
			Lon:               st.StopLon,
			Parent:            st.ParentStation,
			Type:              st.LocationType,
			Wheelchair:        st.Wheelchair,
			TripsThatStopHere: make(map[string]bool),
		}
	}

	for _, t := range data.Trips {
		s.tripsByID[t.TripID] = model.Trip{
			ID:        t.TripID,
			RouteID:   t.RouteID,
			ServiceID: t.ServiceID,
			Headsign:  t.TripHeadsign,
			Direction: t.DirectionID,
			ShapeID:   t.ShapeID,
		}
	}

	shapePoints := make(map[string][]gtfsparse.ShapePoint)
	for _, p := range data.Shapes {
		shapePoints[p.ShapeID] = append(shapePoints[p.ShapeID], p)
	}
	for shapeID, pts := range shapePoints {
		sort.Slice(pts, func(i, j int) bool {
			return pts[i].ShapePtSequence < pts[j].ShapePtSequence
		})
		coords := make([]model.LatLon, len(pts))
		for i, p := range pts {
			coords[i] = model.LatLon{Lat: p.ShapePtLat, Lon: p.ShapePtLon}
		}
		s.shapesByID[shapeID] = coords
	}

	stopTimes := make([]gtfsparse.StopTime, len(data.StopTimes))
	copy(stopTimes, data.StopTimes)
	sort.Slice(stopTimes, func(i, j int) bool {
		if stopTimes[i].TripID != stopTimes[j].TripID {
			return stopTimes[i].TripID < stopTimes[j].TripID
		}
		return stopTimes[i].StopSequence < stopTimes[j].StopSequence
	})

	var dangling int
	for _, st := range stopTimes {
		trip, ok := s.tripsByID[st.TripID]
		if !ok {
			dangling++
			continue
		}
		stop, ok := s.stopsByID[st.StopID]
		if !ok {
			dangling++
			continue
		}
		trip.StopIDs = append(trip.StopIDs, st.StopID)
		s.tripsByID[st.TripID] = trip
		stop.TripsThatStopHere[st.TripID] = true
	}
	if dangling > 0 {
		log.Printf("schedule: %d stop_times rows referenced an unknown trip or stop, skipped", dangling)
	}

	return s
}

// ByRouteID looks up a route.
func (s *Snapshot) ByRouteID(id string) (model.Route, bool) {
	r, ok := s.routesByID[id]
	return r, ok
}

// ByStopID looks up a stop.
func (s *Snapshot) ByStopID(id string) (model.Stop, bool) {
	st, ok := s.stopsByID[id]
	return st, ok
}

// ByTripID looks up a trip.
func (s *Snapshot) ByTripID(id string) (model.Trip, bool) {
	t, ok := s.tripsByID[id]
	return t, ok
}

// ByShapeID looks up a shape's ordered coordinate sequence.
func (s *Snapshot) ByShapeID(id string) ([]model.LatLon, bool) {
	pts, ok := s.shapesByID[id]
	return pts, ok
}

// Routes returns every route, unordered.
func (s *Snapshot) Routes() []model.Route {
	out := make([]model.Route, 0, len(s.routesByID))
	for _, r := range s.routesByID {
		out = append(out, r)
	}
	return out
}

// Stops returns every stop, unordered.
func (s *Snapshot) Stops() []model.Stop {
	out := make([]model.Stop, 0, len(s.stopsByID))
	for _, st := range s.stopsByID {
		out = append(out, st)
	}
	return out
}

// Trips returns every trip, unordered.
func (s *Snapshot) Trips() []model.Trip {
	out := make([]model.Trip, 0, len(s.tripsByID))
	for _, t := range s.tripsByID {
		out = append(out, t)
	}
	return out
}

// Shapes returns every shape id's ordered coordinate sequence.
func (s *Snapshot) Shapes() map[string][]model.LatLon {
	return s.shapesByID
}

// SimpleStops projects every stop to its compact id/name/lat/lon form.
func (s *Snapshot) SimpleStops() []model.SimpleStop {
	out := make([]model.SimpleStop, 0, len(s.stopsByID))
	for _, st := range s.stopsByID {
		out = append(out, model.SimpleStop{ID: st.ID, Name: st.Name, Lat: st.Lat, Lon: st.Lon})
	}
	return out
}

// StopTrips returns the union of trip ids stopping at any of stopIDs.
func (s *Snapshot) StopTrips(stopIDs ...string) []string {
	seen := make(map[string]bool)
	for _, id := range stopIDs {
		stop, ok := s.stopsByID[id]
		if !ok {
			continue
		}
		for tripID := range stop.TripsThatStopHere {
			seen[tripID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for tripID := range seen {
		out = append(out, tripID)
	}
	return out
}
