package wire

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestNegotiate_DefaultsToJSON(t *testing.T) {
	ct, body, err := Negotiate(NewVersioned(42, "hello"), "")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if string(body) != `{"v":1,"ts":42,"d":"hello"}` {
		t.Errorf("body = %s", body)
	}
}

func TestNegotiate_CBOR(t *testing.T) {
	ct, body, err := Negotiate(NewVersioned(42, "hello"), "application/cbor")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if ct != "application/cbor" {
		t.Errorf("content type = %q, want application/cbor", ct)
	}

	var out Versioned[string]
	if err := cbor.Unmarshal(body, &out); err != nil {
		t.Fatalf("cbor decode: %v", err)
	}
	if out.D != "hello" || out.TS != 42 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestNegotiate_NotAcceptable(t *testing.T) {
	_, _, err := Negotiate("x", "text/html")
	if err != ErrNotAcceptable {
		t.Errorf("err = %v, want ErrNotAcceptable", err)
	}
}

func TestWriteResponse_406OnUnacceptableAccept(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	WriteResponse(rec, req, "x")

	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotAcceptable)
	}
}

func TestWriteResponse_CBORContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/cbor")
	rec := httptest.NewRecorder()

	WriteResponse(rec, req, NewVersioned(1, "hi"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/cbor" {
		t.Errorf("content-type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestVehicleTuple_CBORRoundTrip(t *testing.T) {
	broadcast := VehiclesBroadcast([]VehicleTuple{
		{"V1", "R1", "T1", 45.1, 15.2},
	})
	envelope := NewVersioned(int64(100), broadcast)

	_, body, err := Negotiate(envelope, "application/cbor")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	var out Versioned[Broadcast]
	if err := cbor.Unmarshal(body, &out); err != nil {
		t.Fatalf("cbor decode: %v", err)
	}
	if out.D.Vehicles == nil || len(*out.D.Vehicles) != 1 {
		t.Fatalf("vehicles = %v, want 1 entry", out.D.Vehicles)
	}
	if out.D.ActiveStops != nil {
		t.Errorf("ActiveStops should be omitted, got %v", *out.D.ActiveStops)
	}
}

func TestBroadcast_EmptyVariantStillTagsDiscriminator(t *testing.T) {
	broadcast := VehiclesBroadcast(nil)
	envelope := NewVersioned(int64(1), broadcast)

	_, body, err := Negotiate(envelope, "application/cbor")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	var out Versioned[Broadcast]
	if err := cbor.Unmarshal(body, &out); err != nil {
		t.Fatalf("cbor decode: %v", err)
	}
	if out.D.Vehicles == nil || len(*out.D.Vehicles) != 0 {
		t.Fatalf("vehicles = %v, want non-nil empty slice", out.D.Vehicles)
	}
	if out.D.ActiveStops != nil {
		t.Errorf("ActiveStops should be omitted, got %v", *out.D.ActiveStops)
	}
}
