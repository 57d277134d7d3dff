// Package hub implements the coalescing Broadcast Hub (spec §4.6, C6):
// one-to-many delivery of the latest encoded snapshot to WebSocket
// subscribers, plus the per-IP connection table spec §4.8's
// /ws/connections endpoint projects.
package hub

import (
	"log"
	"sync"

	"github.com/allynet/zet-live/internal/watchslot"
	"github.com/allynet/zet-live/internal/wire"
)

// Hub holds the two independently-overwritten "latest blob" slots
// (vehicles, active stops), a single "current transmission" watch slot
// subscribers block on, and the connections table. Readers never
// mutate shared state; every field here is written only by Publish*
// and the connection lifecycle methods.
type Hub struct {
	latestVehicles    *watchslot.Slot[[]byte]
	latestActiveStops *watchslot.Slot[[]byte]
	transmission      *watchslot.Slot[[]byte]

	connMu      sync.RWMutex
	connections map[string]int
}

// New returns a Hub whose two latest-blob slots are pre-seeded with
// encoded empty broadcasts, so a subscriber connecting before the
// fusion engine's first publication still receives two well-formed
// frames (spec §4.6 step 2, §8's cold-start property: "the first two
// frames received are the then-current vehicles and active-stops
// blobs, each possibly empty").
func New() *Hub {
	return &Hub{
		latestVehicles:    watchslot.NewWith(emptyBlob(wire.VehiclesBroadcast(nil))),
		latestActiveStops: watchslot.NewWith(emptyBlob(wire.ActiveStopsBroadcast(nil))),
		transmission:      watchslot.New[[]byte](),
		connections:       make(map[string]int),
	}
}

// emptyBlob encodes an empty broadcast at startup, before any real
// timestamp is known (ts=0, matching spec §4.8's "zero if absent" rule
// for a Versioned envelope with no backing snapshot yet).
func emptyBlob(broadcast wire.Broadcast) []byte {
	_, blob, err := wire.Negotiate(wire.NewVersioned(int64(0), broadcast), "application/cbor")
	if err != nil {
		log.Panicf("hub: encode empty seed broadcast: %v", err)
	}
	return blob
}

// PublishVehicles stores blob as the latest vehicles payload and
// broadcasts it as the current transmission.
func (h *Hub) PublishVehicles(blob []byte) {
	h.latestVehicles.Store(blob)
	h.transmission.Store(blob)
}

// PublishActiveStops stores blob as the latest active-stops payload and
// broadcasts it as the current transmission.
func (h *Hub) PublishActiveStops(blob []byte) {
	h.latestActiveStops.Store(blob)
	h.transmission.Store(blob)
}

// LatestVehicles returns the current vehicles blob; before the first
// PublishVehicles it is the encoded empty broadcast New seeded.
func (h *Hub) LatestVehicles() []byte { return h.latestVehicles.Load() }

// LatestActiveStops returns the current active-stops blob; before the
// first PublishActiveStops it is the encoded empty broadcast New seeded.
func (h *Hub) LatestActiveStops() []byte { return h.latestActiveStops.Load() }

// WaitForTransmission blocks for the next publication (of either kind)
// and returns its blob. A subscriber that falls behind only ever
// observes the latest transmission, never a backlog — the deliberate
// loss policy spec §4.6 describes.
func (h *Hub) WaitForTransmission() []byte {
	return h.transmission.Wait()
}

// transmissionChan registers a one-shot wake-up for the next
// transmission without blocking, so a caller can select it against a
// cancellation signal instead of blocking unconditionally on Wait.
func (h *Hub) transmissionChan() <-chan struct{} {
	return h.transmission.WaitChan()
}

// Connect increments ip's open-connection count.
func (h *Hub) Connect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.connections[ip]++
}

// Disconnect decrements ip's open-connection count, removing the entry
// entirely once it reaches zero (spec §8: "an IP with zero count has no
// entry").
func (h *Hub) Disconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	count, ok := h.connections[ip]
	if !ok {
		return
	}
	count--
	if count <= 0 {
		delete(h.connections, ip)
		return
	}
	h.connections[ip] = count
}

// Connections returns a snapshot copy of the IP->count table for
// GET /api/v1/ws/connections.
func (h *Hub) Connections() map[string]int {
	h.connMu.RLock()
	defer h.connMu.RUnlock()

	out := make(map[string]int, len(h.connections))
	for ip, count := range h.connections {
		out[ip] = count
	}
	return out
}
