package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Fetcher is the Realtime Fetcher (spec §4.1, C1): a fixed-interval
// loop that GETs the protobuf feed, decodes it, and publishes it to a
// Cache only if its header timestamp strictly advances.
type Fetcher struct {
	URL      string
	Interval time.Duration
	Cache    *Cache
	Client   *http.Client

	lastTimestamp int64
}

// NewFetcher builds a Fetcher with the teacher's short per-request
// timeout appropriate for a small, frequent protobuf feed.
func NewFetcher(url string, interval time.Duration, cache *Cache) *Fetcher {
	return &Fetcher{
		URL:      url,
		Interval: interval,
		Cache:    cache,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Run loops forever at f.Interval; ticks never overlap (the loop is
// strictly serial) and never return on failure — transient HTTP/decode
// errors are logged at warn and the next tick proceeds on schedule
// (spec §4.1).
func (f *Fetcher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	f.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Fetcher) tick(ctx context.Context) {
	message, err := f.fetch(ctx)
	if err != nil {
		log.Printf("feed: fetch failed: %v", err)
		return
	}

	ts := int64(message.GetHeader().GetTimestamp())
	if ts <= f.lastTimestamp {
		// Stale payload: neither an error nor a notification (spec §3, §8).
		return
	}

	f.lastTimestamp = ts
	f.Cache.Publish(&Snapshot{Timestamp: ts, Message: message})
}

func (f *Fetcher) fetch(ctx context.Context) (*gtfsrt.FeedMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.Client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	message := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(body, message); err != nil {
		return nil, fmt.Errorf("decode protobuf: %w", err)
	}

	return message, nil
}
