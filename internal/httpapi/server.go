// Package httpapi exposes the service over HTTP with the origin-compatible JSON routes
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/util"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Server wraps the chi router and the http.Server
type Server struct {
	httpServer *http.Server
	router     chi.Router
}

// NewRouter builds the router with the middleware chain and every route registered
func NewRouter(svc *service.Service) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors)

	h := &handler{svc: svc}

	r.Get("/health", h.health)

	r.Route("/api", func(api chi.Router) {
		api.Get("/search", h.search)
		api.Get("/search/suggestions", h.suggestions)
		api.Get("/spotlight", h.spotlight)
		api.Get("/recent", h.listing("Failed to fetch recent anime", svc.RecentlyAdded))
		api.Get("/recent-updates", h.listing("Failed to fetch recent updates", svc.RecentlyUpdated))
		api.Get("/completed", h.listing("Failed to fetch completed anime", svc.LatestCompleted))
		api.Get("/genres", h.genres)
		api.Get("/genre/{genre}", h.genreSearch)

		api.Get("/anime/{id}", h.animeInfo)
		api.Get("/anime/{id}/episode/{episodeId}/servers", h.episodeServers)
		api.Get("/anime/{id}/episode/{episodeId}/sources", h.episodeSources)

		api.Route("/user", func(user chi.Router) {
			user.Get("/preferences", h.getPreferences)
			user.Post("/preferences", h.setPreferences)
			user.Get("/recent", h.recentlyViewed)
			user.Get("/favorites", h.favorites)
			user.Post("/favorites/{animeId}", h.addFavorite)
			user.Delete("/favorites/{animeId}", h.removeFavorite)
			user.Get("/progress/{animeId}", h.getProgress)
			user.Post("/progress/{animeId}", h.updateProgress)
		})
	})

	return r
}

// NewServer creates the HTTP server listening on addr. Requests carry no write deadline
// since an uncached detail page can take several origin round trips.
func NewServer(addr string, svc *service.Service) *Server {
	r := NewRouter(svc)
	return &Server{
		router: r,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// ListenAndServe blocks until the server is closed
func (s *Server) ListenAndServe() error {
	util.Info("Server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits up to timeout for in-flight requests
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
