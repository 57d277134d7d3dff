package hub

import (
	"testing"
	"time"
)

func TestConnect_IncrementsCount(t *testing.T) {
	h := New()
	h.Connect("1.2.3.4")
	h.Connect("1.2.3.4")

	if got := h.Connections()["1.2.3.4"]; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestDisconnect_RemovesEntryAtZero(t *testing.T) {
	h := New()
	h.Connect("1.2.3.4")
	h.Disconnect("1.2.3.4")

	if _, ok := h.Connections()["1.2.3.4"]; ok {
		t.Error("an IP with zero count should have no entry")
	}
}

func TestDisconnect_UnknownIPIsNoop(t *testing.T) {
	h := New()
	h.Disconnect("9.9.9.9")

	if len(h.Connections()) != 0 {
		t.Error("disconnecting an unknown IP should not create an entry")
	}
}

func TestPublishVehicles_UpdatesLatestAndTransmission(t *testing.T) {
	h := New()
	h.PublishVehicles([]byte("v1"))

	if got := h.LatestVehicles(); string(got) != "v1" {
		t.Errorf("LatestVehicles() = %s, want v1", got)
	}
	if got := h.transmission.Load(); string(got) != "v1" {
		t.Errorf("transmission = %s, want v1", got)
	}
}

func TestWaitForTransmission_CoalescesToLatest(t *testing.T) {
	h := New()

	done := make(chan []byte, 1)
	go func() { done <- h.WaitForTransmission() }()

	// Give the waiter time to register, then publish twice in a row;
	// only the latest should be observed (no backlog).
	time.Sleep(10 * time.Millisecond)
	h.PublishVehicles([]byte("first"))
	h.PublishActiveStops([]byte("second"))

	select {
	case got := <-done:
		if string(got) != "second" {
			t.Errorf("WaitForTransmission() = %s, want second (only latest observed)", got)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForTransmission never woke up")
	}
}
