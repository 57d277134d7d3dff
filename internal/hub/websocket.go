package hub

import (
	"log"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// pingBase and pingJitter give each connection a ping interval jittered
// 30s +/- 5s, matching the Rust original's ws/mod.rs.
const (
	pingBase   = 30 * time.Second
	pingJitter = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	// The service has no same-origin requirement of its own; CORS at
	// the HTTP layer already governs which browsers may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request to a WebSocket and runs the
// subscriber's lifecycle to completion: connect bookkeeping, initial
// state, concurrent ping/transmission loops, disconnect bookkeeping.
// It blocks until the connection closes.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ip := clientIP(r)
	h.Connect(ip)
	defer h.Disconnect(ip)

	// gorilla permits only one concurrent writer per connection; the
	// ping loop and the transmission loop both write, so they share
	// this mutex.
	var sendMu sync.Mutex

	if err := h.sendInitialState(conn, &sendMu); err != nil {
		log.Printf("hub: send initial state to %s: %v", ip, err)
		return
	}

	done := make(chan struct{})
	var closeDone sync.Once
	signalDone := func() { closeDone.Do(func() { close(done) }) }

	go h.pingLoop(conn, &sendMu, done, signalDone)
	go h.transmissionLoop(conn, &sendMu, done, signalDone)

	<-done
}

// sendInitialState always sends exactly two frames, vehicles then
// active-stops, even at cold start: Hub.New seeds both slots with an
// encoded empty broadcast, so there is never a nil blob to skip (spec
// §8's cold-start property, boundary scenario 1).
func (h *Hub) sendInitialState(conn *websocket.Conn, sendMu *sync.Mutex) error {
	sendMu.Lock()
	defer sendMu.Unlock()

	if err := conn.WriteMessage(websocket.BinaryMessage, h.LatestVehicles()); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, h.LatestActiveStops()); err != nil {
		return err
	}
	return nil
}

// pingLoop sends a ping at a jittered interval and signals done the
// moment a write fails, which is how a dead connection is detected and
// torn down; either loop's exit ends the subscriber's lifecycle.
func (h *Hub) pingLoop(conn *websocket.Conn, sendMu *sync.Mutex, done chan struct{}, signalDone func()) {
	defer signalDone()

	for {
		jitter := time.Duration(rand.Int63n(int64(2*pingJitter))) - pingJitter
		timer := time.NewTimer(pingBase + jitter)

		select {
		case <-done:
			timer.Stop()
			return
		case <-timer.C:
		}

		sendMu.Lock()
		err := conn.WriteMessage(websocket.PingMessage, []byte{1, 2, 3})
		sendMu.Unlock()
		if err != nil {
			return
		}
	}
}

// transmissionLoop sends the hub's current transmission to the client
// each time a publication wakes it, until a write fails or pingLoop has
// already signaled done. The wake-up for the next publication is
// registered before each send, so a publication landing mid-send
// triggers one more send of the then-latest blob; several publications
// within one send coalesce into that single frame. It selects on done
// rather than blocking unconditionally on the next transmission, so a
// dead ping loop doesn't leak this goroutine until the next publish.
func (h *Hub) transmissionLoop(conn *websocket.Conn, sendMu *sync.Mutex, done chan struct{}, signalDone func()) {
	defer signalDone()

	wake := h.transmissionChan()
	for {
		select {
		case <-done:
			return
		case <-wake:
		}

		wake = h.transmissionChan()
		blob := h.transmission.Load()

		sendMu.Lock()
		err := conn.WriteMessage(websocket.BinaryMessage, blob)
		sendMu.Unlock()
		if err != nil {
			return
		}
	}
}

// clientIP extracts the request's remote address, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
