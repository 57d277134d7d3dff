// Package wire implements the Content Negotiator (C7) and the wire
// envelope types from spec §3/§6: Versioned[T], the tagged Broadcast
// union, and JSON/CBOR serialization chosen by the request's Accept
// header.
package wire

// Versioned is the envelope wrapping every entity this service emits,
// both over REST and over the WebSocket broadcast channel. V identifies
// the payload schema (currently always 1); TS is the snapshot's
// creation time in seconds since epoch, zero/omitted if no snapshot
// exists yet.
type Versioned[T any] struct {
	V  int   `json:"v" cbor:"v"`
	TS int64 `json:"ts,omitempty" cbor:"ts,omitempty"`
	D  T     `json:"d" cbor:"d"`
}

// NewVersioned wraps data at schema version 1 with the given snapshot
// timestamp (seconds since epoch; pass 0 if no snapshot exists yet).
func NewVersioned[T any](ts int64, data T) Versioned[T] {
	return Versioned[T]{V: 1, TS: ts, D: data}
}

// VehicleTuple is the positional compact-vehicle-tuple encoding from
// spec §3/§6: [id, route_id, trip_id, lat, lon]. Using a slice of `any`
// keeps the wire shape a plain array under both JSON and CBOR, instead
// of the field-name overhead of a struct, which is the point of the
// encoding on a broadcast this frequent.
type VehicleTuple []any

// Broadcast is the tagged union of payload kinds delivered over the
// WebSocket hub: exactly one of Vehicles or ActiveStops is set per
// message. The fields are pointers rather than bare slices: `omitempty`
// on a bare slice drops the key for a zero-length slice too, which would
// make a populated-but-empty variant (e.g. zero live vehicles) encode as
// `{}` with no tag at all, indistinguishable from the other variant also
// being empty. A non-nil pointer to an empty slice still marshals its
// key, so the tag survives even when the variant's list has no elements.
type Broadcast struct {
	Vehicles    *[]VehicleTuple `json:"vehicles,omitempty" cbor:"vehicles,omitempty"`
	ActiveStops *[]string       `json:"activeStops,omitempty" cbor:"activeStops,omitempty"`
}

// VehiclesBroadcast builds a Broadcast carrying a vehicles payload, even
// when tuples is empty or nil.
func VehiclesBroadcast(tuples []VehicleTuple) Broadcast {
	if tuples == nil {
		tuples = []VehicleTuple{}
	}
	return Broadcast{Vehicles: &tuples}
}

// ActiveStopsBroadcast builds a Broadcast carrying an active-stops
// payload, even when stopIDs is empty or nil.
func ActiveStopsBroadcast(stopIDs []string) Broadcast {
	if stopIDs == nil {
		stopIDs = []string{}
	}
	return Broadcast{ActiveStops: &stopIDs}
}
