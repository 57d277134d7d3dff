package schedule

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/allynet/zet-live/internal/schedule/gtfsparse"
)

// Fetcher is the Schedule Fetcher (spec §4.2, C2): a fixed-interval loop
// that conditionally re-fetches the GTFS zip using Last-Modified/ETag,
// parses it on a worker goroutine, and publishes the joined Snapshot
// into an Index.
type Fetcher struct {
	URL      string
	Interval time.Duration
	Index    *Index
	Client   *http.Client

	lastModified string
	etag         string
}

// NewFetcher builds a Fetcher with the teacher's 60s per-request
// timeout for the (larger) schedule bundle.
func NewFetcher(url string, interval time.Duration, idx *Index) *Fetcher {
	return &Fetcher{
		URL:      url,
		Interval: interval,
		Index:    idx,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Run loops forever, ticking at f.Interval. On transient failure
// (network, decode, or a parse worker panic) it sleeps 1/5th of the
// interval before retrying, shortening the cold-start window, per spec
// §4.2's failure semantics. The loop never returns; cancel ctx to stop
// it between ticks.
func (f *Fetcher) Run(ctx context.Context) {
	for {
		ok := f.tick(ctx)

		wait := f.Interval
		if !ok {
			wait = f.Interval / 5
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// tick performs one fetch attempt. It returns true if the tick
// completed without a transient failure (including the "not fresh,
// skip" no-op case), false if it should be retried sooner.
func (f *Fetcher) tick(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, f.Client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.URL, nil)
	if err != nil {
		log.Printf("schedule: build request: %v", err)
		return false
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		log.Printf("schedule: fetch failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("schedule: fetch returned status %d", resp.StatusCode)
		return false
	}

	newLastModified := resp.Header.Get("Last-Modified")
	newETag := resp.Header.Get("ETag")

	if !f.isFresh(newLastModified, newETag) {
		return true
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("schedule: read body: %v", err)
		return false
	}

	snapshot, err := parseOnWorker(body)
	if err != nil {
		log.Printf("schedule: parse failed: %v", err)
		return false
	}

	f.Index.Publish(snapshot)
	f.lastModified = newLastModified
	f.etag = newETag

	log.Printf("schedule: published new snapshot (%d routes, %d stops, %d trips)",
		len(snapshot.routesByID), len(snapshot.stopsByID), len(snapshot.tripsByID))

	return true
}

// isFresh implements spec §4.2 step 2's freshness table: absence of
// either the remembered pair or the new pair is always "fresh" (erring
// toward re-fetch, notably on first start when nothing is remembered
// yet). An absent ETag on either side is also always "fresh" on its own,
// independent of any Last-Modified comparison — a deployment that never
// sends an ETag must not be judged solely on Last-Modified ordering,
// matching the ground truth of etag_changed(old, new) being true
// whenever either side's ETag is absent, even (none, none). Only when
// both sides carry a non-empty, equal ETag does Last-Modified ordering
// get a say.
func (f *Fetcher) isFresh(newLastModified, newETag string) bool {
	if f.lastModified == "" && f.etag == "" {
		return true
	}

	if f.etag == "" || newETag == "" {
		return true
	}
	if newETag != f.etag {
		return true
	}

	if newLastModified != "" && f.lastModified != "" {
		newT, errNew := http.ParseTime(newLastModified)
		oldT, errOld := http.ParseTime(f.lastModified)
		if errNew == nil && errOld == nil {
			return newT.After(oldT)
		}
	}

	return false
}

// parseOnWorker runs the CSV parse and schedule join on a separate
// goroutine so a slow zip never blocks the caller's reactor, recovering
// from a parser panic as a tick failure rather than crashing the
// process (spec §4.2, §5 "off-reactor parsing").
func parseOnWorker(zipBytes []byte) (snapshot *Snapshot, err error) {
	type result struct {
		snap *Snapshot
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic parsing gtfs zip: %v", r)}
			}
		}()

		data, perr := gtfsparse.Parse(zipBytes)
		if perr != nil {
			done <- result{err: perr}
			return
		}
		done <- result{snap: Build(data)}
	}()

	res := <-done
	return res.snap, res.err
}
