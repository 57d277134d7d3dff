package fusion

import (
	"sync"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"

	"github.com/allynet/zet-live/internal/feed"
	"github.com/allynet/zet-live/internal/schedule"
	"github.com/allynet/zet-live/internal/schedule/gtfsparse"
	"github.com/allynet/zet-live/internal/wire"
	"github.com/allynet/zet-live/internal/workerpool"
)

type recordingHub struct {
	mu          sync.Mutex
	vehicles    [][]byte
	activeStops [][]byte
}

func (h *recordingHub) PublishVehicles(blob []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vehicles = append(h.vehicles, blob)
}

func (h *recordingHub) PublishActiveStops(blob []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activeStops = append(h.activeStops, blob)
}

func (h *recordingHub) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.vehicles), len(h.activeStops)
}

func feedSnapshotWithVehicle(ts int64, vehicleID, routeID, tripID string) *feed.Snapshot {
	message := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{Timestamp: proto.Uint64(uint64(ts))},
		Entity: []*gtfsrt.FeedEntity{
			{
				Id: proto.String("e1"),
				Vehicle: &gtfsrt.VehiclePosition{
					Trip:     &gtfsrt.TripDescriptor{TripId: proto.String(tripID), RouteId: proto.String(routeID)},
					Vehicle:  &gtfsrt.VehicleDescriptor{Id: proto.String(vehicleID)},
					Position: &gtfsrt.Position{Latitude: proto.Float32(45.1), Longitude: proto.Float32(15.2)},
				},
			},
		},
	}
	return &feed.Snapshot{Timestamp: ts, Message: message}
}

// TestRunRound_ActiveStopsFollowLiveTrips uses scenario 4's schedule:
// stop S1 serves T1 and T3, stop S2 serves T4; a live vehicle on T1
// alone makes only S1 active.
func TestRunRound_ActiveStopsFollowLiveTrips(t *testing.T) {
	data := &gtfsparse.Data{
		Stops: []gtfsparse.Stop{{StopID: "S1"}, {StopID: "S2"}},
		Trips: []gtfsparse.Trip{{TripID: "T1"}, {TripID: "T3"}, {TripID: "T4"}},
		StopTimes: []gtfsparse.StopTime{
			{TripID: "T1", StopID: "S1", StopSequence: 0},
			{TripID: "T3", StopID: "S1", StopSequence: 0},
			{TripID: "T4", StopID: "S2", StopSequence: 0},
		},
	}
	scheduleSnap := schedule.Build(data)

	idx := schedule.NewIndex()
	idx.Publish(scheduleSnap)

	feedCache := feed.NewCache()
	hub := &recordingHub{}
	pool := workerpool.New(2)

	engine := New(feedCache, idx, hub, pool)
	engine.runRound(feedSnapshotWithVehicle(100, "V1", "R1", "T1"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		v, a := hub.counts()
		if v == 1 && a == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	v, a := hub.counts()
	if v != 1 || a != 1 {
		t.Fatalf("got %d vehicle publications, %d active-stop publications, want 1 and 1", v, a)
	}

	hub.mu.Lock()
	blob := hub.activeStops[0]
	hub.mu.Unlock()

	var out wire.Versioned[wire.Broadcast]
	if err := cbor.Unmarshal(blob, &out); err != nil {
		t.Fatalf("cbor decode active stops: %v", err)
	}
	var got []string
	if out.D.ActiveStops != nil {
		got = *out.D.ActiveStops
	}
	if len(got) != 1 || got[0] != "S1" {
		t.Errorf("active stops = %v, want [S1]", got)
	}
}
