package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/allynet/zet-live/internal/api"
	"github.com/allynet/zet-live/internal/config"
	"github.com/allynet/zet-live/internal/feed"
	"github.com/allynet/zet-live/internal/fusion"
	"github.com/allynet/zet-live/internal/hub"
	"github.com/allynet/zet-live/internal/schedule"
	"github.com/allynet/zet-live/internal/store"
	"github.com/allynet/zet-live/internal/workerpool"
)

func main() {
	log.Println("Starting zet-live server...")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf(
		"Config loaded: data=%s every %v, schedule=%s every %v",
		cfg.DataFetchEndpoint, cfg.DataFetchInterval,
		cfg.ScheduleFetchEndpoint, cfg.ScheduleFetchInterval,
	)

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Shared state
	// ═══════════════════════════════════════════════════════
	feedCache := feed.NewCache()
	scheduleIndex := schedule.NewIndex()
	broadcastHub := hub.New()
	pool := workerpool.New(runtime.NumCPU())

	var persist *store.Store
	if cfg.PersistPath != "" {
		persist, err = store.Open(cfg.PersistPath)
		if err != nil {
			log.Fatalf("Failed to open persistence store: %v", err)
		}
		defer persist.Close()
		if err := persist.VacuumOnColdStart(context.Background()); err != nil {
			log.Printf("Warning: cold-start VACUUM failed: %v", err)
		}
		log.Printf("Persistence enabled at %s", cfg.PersistPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Start fetchers and wait for each to publish once
	// ═══════════════════════════════════════════════════════
	realtimeFetcher := feed.NewFetcher(cfg.DataFetchEndpoint, cfg.DataFetchInterval, feedCache)
	scheduleFetcher := schedule.NewFetcher(cfg.ScheduleFetchEndpoint, cfg.ScheduleFetchInterval, scheduleIndex)

	go realtimeFetcher.Run(ctx)
	go scheduleFetcher.Run(ctx)

	log.Println("Waiting for initial feed and schedule publication...")
	waitForFirst(ctx, feedCache, scheduleIndex)
	log.Println("Initial feed and schedule received; starting fusion engine")

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Fusion engine
	// ═══════════════════════════════════════════════════════
	engine := fusion.New(feedCache, scheduleIndex, broadcastHub, pool)
	go engine.Run(ctx)

	if persist != nil {
		go mirrorToStore(ctx, feedCache, scheduleIndex, persist)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP listener
	// ═══════════════════════════════════════════════════════
	router := api.NewRouter(api.Deps{Feed: feedCache, Schedule: scheduleIndex, Hub: broadcastHub})

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	listener, err := listenOrInherit(addr)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", addr, err)
	}

	server := &http.Server{Handler: router}
	go func() {
		log.Printf("Listening on %s", addr)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}

// waitForFirst blocks until both the feed cache and schedule index have
// published at least once, or ctx is canceled.
func waitForFirst(ctx context.Context, feedCache *feed.Cache, idx *schedule.Index) {
	feedDone := make(chan struct{})
	go func() {
		if feedCache.Current() == nil {
			feedCache.WaitForFeedUpdate()
		}
		close(feedDone)
	}()

	scheduleDone := make(chan struct{})
	go func() {
		if idx.Current() == nil {
			idx.WaitForUpdate()
		}
		close(scheduleDone)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			return
		case <-feedDone:
			feedDone = nil
		case <-scheduleDone:
			scheduleDone = nil
		}
	}
}

// mirrorToStore runs the secondary SQLite persistence mirror: every
// feed or schedule publication is mirrored, off the fusion hot path,
// never blocking a broadcast on a disk write.
func mirrorToStore(ctx context.Context, feedCache *feed.Cache, idx *schedule.Index, persist *store.Store) {
	go func() {
		for {
			snap := feedCache.WaitForFeedUpdate()
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := persist.UpsertVehicles(ctx, snap.Timestamp, snap.Vehicles()); err != nil {
				log.Printf("store: mirror vehicles: %v", err)
			}
		}
	}()

	for {
		snap := idx.WaitForUpdate()
		select {
		case <-ctx.Done():
			return
		default:
		}
		routes, stops, trips := snap.Routes(), snap.Stops(), snap.Trips()
		ts := time.Now().UTC().Unix()
		if err := persist.RecordScheduleLoad(ctx, ts, len(routes), len(stops), len(trips)); err != nil {
			log.Printf("store: record schedule load: %v", err)
		}
	}
}

// listenFDEnvVar is the listen-fd-inherited socket protocol's
// environment marker (spec §6): when set, the server binds to the
// already-open file descriptor 3 instead of creating a fresh socket,
// matching common sd_listen_fds-style socket activation.
const listenFDEnvVar = "LISTEN_FDS"

func listenOrInherit(addr string) (net.Listener, error) {
	if os.Getenv(listenFDEnvVar) != "" {
		f := os.NewFile(3, "listen-fd")
		listener, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("inherit listen fd: %w", err)
		}
		return listener, nil
	}
	return net.Listen("tcp", addr)
}
