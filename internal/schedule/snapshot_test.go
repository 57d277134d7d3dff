package schedule

import (
	"testing"

	"github.com/allynet/zet-live/internal/schedule/gtfsparse"
)

func TestBuild_JoinsStopTimesAndTrips(t *testing.T) {
	data := &gtfsparse.Data{
		Routes: []gtfsparse.Route{{RouteID: "R1", RouteShortName: "1"}},
		Stops: []gtfsparse.Stop{
			{StopID: "S1", StopName: "First"},
			{StopID: "S2", StopName: "Second"},
		},
		Trips: []gtfsparse.Trip{{TripID: "T1", RouteID: "R1"}},
		StopTimes: []gtfsparse.StopTime{
			{TripID: "T1", StopID: "S2", StopSequence: 1},
			{TripID: "T1", StopID: "S1", StopSequence: 0},
		},
	}

	snap := Build(data)

	trip, ok := snap.ByTripID("T1")
	if !ok {
		t.Fatal("trip T1 not found")
	}
	if len(trip.StopIDs) != 2 || trip.StopIDs[0] != "S1" || trip.StopIDs[1] != "S2" {
		t.Errorf("trip.StopIDs = %v, want [S1 S2] in sequence order", trip.StopIDs)
	}

	stop, ok := snap.ByStopID("S1")
	if !ok {
		t.Fatal("stop S1 not found")
	}
	if !stop.TripsThatStopHere["T1"] {
		t.Error("S1.TripsThatStopHere should contain T1")
	}
}

func TestBuild_DanglingStopTimeIsSkippedNotFatal(t *testing.T) {
	data := &gtfsparse.Data{
		Trips: []gtfsparse.Trip{{TripID: "T1"}},
		StopTimes: []gtfsparse.StopTime{
			{TripID: "T1", StopID: "UNKNOWN", StopSequence: 0},
			{TripID: "UNKNOWN_TRIP", StopID: "S1", StopSequence: 0},
		},
	}

	snap := Build(data)

	trip, ok := snap.ByTripID("T1")
	if !ok {
		t.Fatal("trip T1 should still exist")
	}
	if len(trip.StopIDs) != 0 {
		t.Errorf("trip.StopIDs = %v, want empty (dangling stop dropped)", trip.StopIDs)
	}
}

func TestStopTrips_UnionsAcrossStops(t *testing.T) {
	data := &gtfsparse.Data{
		Stops: []gtfsparse.Stop{{StopID: "S1"}, {StopID: "S2"}},
		Trips: []gtfsparse.Trip{{TripID: "T1"}, {TripID: "T3"}, {TripID: "T4"}},
		StopTimes: []gtfsparse.StopTime{
			{TripID: "T1", StopID: "S1", StopSequence: 0},
			{TripID: "T3", StopID: "S1", StopSequence: 0},
			{TripID: "T4", StopID: "S2", StopSequence: 0},
		},
	}

	snap := Build(data)

	trips := snap.StopTrips("S1", "S2")
	seen := map[string]bool{}
	for _, id := range trips {
		seen[id] = true
	}
	for _, want := range []string{"T1", "T3", "T4"} {
		if !seen[want] {
			t.Errorf("StopTrips missing %s, got %v", want, trips)
		}
	}
}
