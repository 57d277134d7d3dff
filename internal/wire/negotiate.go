package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// cborMode is a compact CBOR profile: the canonical encoding options,
// which sort map keys and struct field names in canonical (length-first)
// order rather than declared order and use shortest-form integers,
// matching the "compact CBOR
// profile" spec §4.7 calls for on the frequent broadcast payload.
var cborMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// ErrNotAcceptable is returned by Negotiate when the request's Accept
// header names neither JSON nor CBOR and carries no wildcard.
var ErrNotAcceptable = fmt.Errorf("no acceptable media type")

// Negotiate picks application/json or application/cbor from the
// request's Accept header (first matching media-range wins, per spec
// §4.7) and serializes value accordingly. It returns the content type
// and encoded body, or ErrNotAcceptable if neither matches and the
// header carries no wildcard.
func Negotiate(value any, accept string) (contentType string, body []byte, err error) {
	ct, ok := negotiateType(accept)
	if !ok {
		return "", nil, ErrNotAcceptable
	}

	if ct == "application/cbor" {
		b, err := cborMode.Marshal(value)
		if err != nil {
			return "", nil, fmt.Errorf("cbor encode: %w", err)
		}
		return ct, b, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return "", nil, fmt.Errorf("json encode: %w", err)
	}
	return ct, b, nil
}

// negotiateType walks the comma-separated Accept header looking for
// the first media-range that names json or cbor explicitly; falls back
// to JSON on a bare wildcard or an empty header, and reports failure
// otherwise.
func negotiateType(accept string) (string, bool) {
	if strings.TrimSpace(accept) == "" {
		return "application/json", true
	}

	for _, part := range strings.Split(accept, ",") {
		media := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch media {
		case "application/json":
			return "application/json", true
		case "application/cbor":
			return "application/cbor", true
		case "*/*", "application/*":
			return "application/json", true
		}
	}

	return "", false
}

// WriteResponse negotiates and writes value to w, applying spec §4.7's
// status codes: 406 on an unacceptable Accept header, 500 plain-text on
// a serialization failure.
func WriteResponse(w http.ResponseWriter, r *http.Request, value any) {
	contentType, body, err := Negotiate(value, r.Header.Get("Accept"))
	if errors.Is(err, ErrNotAcceptable) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte("not acceptable"))
		return
	}
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("serialization failed"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
