// Package feed owns the Realtime Fetcher (C1) and Feed Cache (C4): a
// periodic GTFS-Realtime protobuf fetch with staleness detection, and
// the "latest decoded feed" slot the fusion engine and REST surface
// read from.
package feed

import (
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/allynet/zet-live/internal/model"
)

// Snapshot is one decoded realtime message (spec §3's FeedSnapshot):
// the header timestamp plus the raw feed entities, kept around so the
// REST surface can serve the full decoded feed, while the filtered
// Vehicle/Alert views are derived from it on demand (the fusion engine
// uses the Vehicle view).
type Snapshot struct {
	Timestamp int64
	Message   *gtfsrt.FeedMessage
}

// Vehicles decodes every entity carrying a vehicle subfield into a
// model.Vehicle, dropping any entity missing a vehicle id, trip id, or
// position — spec §3's invariant that every emitted Vehicle has a
// non-empty id/route_id/trip_id.
func (s *Snapshot) Vehicles() []model.Vehicle {
	if s == nil || s.Message == nil {
		return nil
	}

	out := make([]model.Vehicle, 0, len(s.Message.Entity))
	for _, entity := range s.Message.Entity {
		v, ok := decodeVehicle(entity)
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Alerts decodes every entity carrying an alert subfield.
func (s *Snapshot) Alerts() []model.Alert {
	if s == nil || s.Message == nil {
		return nil
	}

	out := make([]model.Alert, 0)
	for _, entity := range s.Message.Entity {
		a, ok := decodeAlert(entity)
		if !ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

func decodeVehicle(entity *gtfsrt.FeedEntity) (model.Vehicle, bool) {
	vp := entity.GetVehicle()
	if vp == nil {
		return model.Vehicle{}, false
	}

	trip := vp.GetTrip()
	vehicleDesc := vp.GetVehicle()
	pos := vp.GetPosition()

	if trip == nil || vehicleDesc == nil || pos == nil {
		return model.Vehicle{}, false
	}

	id := vehicleDesc.GetId()
	tripID := trip.GetTripId()
	routeID := trip.GetRouteId()

	v := model.Vehicle{
		ID:      id,
		RouteID: routeID,
		TripID:  tripID,
		Lat:     float64(pos.GetLatitude()),
		Lon:     float64(pos.GetLongitude()),
	}
	if !v.Valid() {
		return model.Vehicle{}, false
	}
	return v, true
}

func decodeAlert(entity *gtfsrt.FeedEntity) (model.Alert, bool) {
	al := entity.GetAlert()
	if al == nil {
		return model.Alert{}, false
	}

	return model.Alert{
		ID:          entity.GetId(),
		Cause:       al.GetCause().String(),
		Effect:      al.GetEffect().String(),
		HeaderText:  firstTranslation(al.GetHeaderText()),
		Description: firstTranslation(al.GetDescriptionText()),
	}, true
}

func firstTranslation(ts *gtfsrt.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, tr := range ts.GetTranslation() {
		if tr.GetText() != "" {
			return tr.GetText()
		}
	}
	return ""
}

// Age reports how long ago the feed header's timestamp claims the feed
// was produced.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return now.Sub(time.Unix(s.Timestamp, 0))
}
