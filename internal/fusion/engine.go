// Package fusion implements the Fusion Engine (spec §4.5, C5): on every
// new realtime feed publication it derives the two broadcast payloads
// (vehicle positions, active stop ids) and publishes their encoded
// forms to the Hub, each on its own worker so a slow or failing task
// never blocks the other.
package fusion

import (
	"context"
	"log"

	"github.com/allynet/zet-live/internal/feed"
	"github.com/allynet/zet-live/internal/schedule"
	"github.com/allynet/zet-live/internal/wire"
	"github.com/allynet/zet-live/internal/workerpool"
)

// Publisher is the subset of *hub.Hub the engine depends on, kept
// narrow so the engine can be tested without a real Hub.
type Publisher interface {
	PublishVehicles(blob []byte)
	PublishActiveStops(blob []byte)
}

// Engine wires the Feed Cache and Schedule Index to a Publisher.
type Engine struct {
	Feed     *feed.Cache
	Schedule *schedule.Index
	Hub      Publisher
	Pool     *workerpool.Pool
}

// New builds an Engine ready to Run.
func New(feedCache *feed.Cache, idx *schedule.Index, hub Publisher, pool *workerpool.Pool) *Engine {
	return &Engine{Feed: feedCache, Schedule: idx, Hub: hub, Pool: pool}
}

// Run blocks, triggering a fusion round on every feed publication. If a
// feed is already cached when Run starts (e.g. the bootstrap already
// waited on the first publication), it fires one synthetic round before
// waiting on the next real one, so a fast-reconnecting subscriber never
// sees an empty hub while the fetcher is mid-interval (spec §4.5).
func (e *Engine) Run(ctx context.Context) {
	if e.Feed.Current() != nil {
		e.runRound(e.Feed.Current())
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		snap := e.Feed.WaitForFeedUpdate()
		select {
		case <-ctx.Done():
			return
		default:
			e.runRound(snap)
		}
	}
}

// runRound dispatches the vehicles and active-stops tasks independently.
// Both read the same feed snapshot; the schedule snapshot handle is
// captured once here, before dispatch, so the active-stops task observes
// a consistent static schedule even if a concurrent schedule publication
// lands mid-round.
func (e *Engine) runRound(feedSnap *feed.Snapshot) {
	scheduleSnap := e.Schedule.Current()

	e.Pool.Submit(func() { e.publishVehicles(feedSnap) })
	e.Pool.Submit(func() { e.publishActiveStops(feedSnap, scheduleSnap) })
}

func (e *Engine) publishVehicles(feedSnap *feed.Snapshot) {
	vehicles := feedSnap.Vehicles()
	tuples := make([]wire.VehicleTuple, 0, len(vehicles))
	for _, v := range vehicles {
		tuples = append(tuples, wire.VehicleTuple{v.ID, v.RouteID, v.TripID, v.Lat, v.Lon})
	}

	envelope := wire.NewVersioned(feedSnap.Timestamp, wire.VehiclesBroadcast(tuples))
	_, blob, err := wire.Negotiate(envelope, "application/cbor")
	if err != nil {
		log.Printf("fusion: encode vehicles broadcast: %v", err)
		return
	}
	e.Hub.PublishVehicles(blob)
}

// publishActiveStops derives the set of stop ids currently served by a
// live vehicle: for each stop, walk its own (small) set of trips that
// stop there and test each against the live-trip-id set, which is a O(1)
// map lookup. This keeps per-tick cost at O(|stops| * avg-trips-per-stop)
// rather than O(|stops| * |live trips|) (spec §4.5/§9 design note).
func (e *Engine) publishActiveStops(feedSnap *feed.Snapshot, scheduleSnap *schedule.Snapshot) {
	var activeStops []string

	if scheduleSnap != nil {
		liveTrips := make(map[string]bool)
		for _, v := range feedSnap.Vehicles() {
			if v.TripID != "" {
				liveTrips[v.TripID] = true
			}
		}

		for _, stop := range scheduleSnap.Stops() {
			for tripID := range stop.TripsThatStopHere {
				if liveTrips[tripID] {
					activeStops = append(activeStops, stop.ID)
					break
				}
			}
		}
	}

	envelope := wire.NewVersioned(feedSnap.Timestamp, wire.ActiveStopsBroadcast(activeStops))
	_, blob, err := wire.Negotiate(envelope, "application/cbor")
	if err != nil {
		log.Printf("fusion: encode active-stops broadcast: %v", err)
		return
	}
	e.Hub.PublishActiveStops(blob)
}
