// Package api is the REST Surface (spec §4.8, C8): a chi router exposing
// the feed, schedule, and hub state through versioned, content-negotiated
// responses, grounded in the teacher's apps/api/main.go router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/allynet/zet-live/internal/feed"
	"github.com/allynet/zet-live/internal/hub"
	"github.com/allynet/zet-live/internal/schedule"
)

// Deps bundles every shared-state handle the router needs. Kept as a
// struct instead of a wider app-state type so handlers stay Dep-scoped
// rather than reaching for ambient globals, matching the teacher's
// per-handler repository injection in apps/api/handlers.
type Deps struct {
	Feed     *feed.Cache
	Schedule *schedule.Index
	Hub      *hub.Hub
}

// NewRouter builds the full HTTP handler tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	h := &handler{deps: deps}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/feed", h.getFeed)
		r.Get("/vehicles", h.getVehicles)
		r.Get("/alerts", h.getAlerts)
		r.Get("/health", h.getHealth)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/routes", h.getRoutes)
			r.Get("/routes/{id}", h.getRoute)
			r.Get("/stops", h.getStops)
			r.Get("/stops/{id}", h.getStop)
			r.Get("/simple-stops", h.getSimpleStops)
			r.Get("/trips", h.getTrips)
			r.Get("/trips/{id}", h.getTrip)
			r.Get("/shapes", h.getShapes)
			r.Get("/shapes/{id}", h.getShape)
			r.Get("/stop-trips", h.getStopTrips)
			r.Get("/trip-info/{trip_id}", h.getTripInfo)
		})

		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) { deps.Hub.ServeWebSocket(w, r) })
		r.Get("/ws/connections", h.getWSConnections)
	})

	return r
}

type handler struct {
	deps Deps
}

func notFound(w http.ResponseWriter, entity, id string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(entity + " not found: " + id))
}

func (h *handler) currentTimestamp() int64 {
	if snap := h.deps.Feed.Current(); snap != nil {
		return snap.Timestamp
	}
	return 0
}
