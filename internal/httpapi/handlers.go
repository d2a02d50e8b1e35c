package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/scraper"
	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/version"
)

// AnonymousUser is the user id of requests without an X-User-Id header
const AnonymousUser = "anonymous"

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 64 << 10

type handler struct {
	svc *service.Service
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-Id")); id != "" {
		return id
	}
	return AnonymousUser
}

// pageParam parses ?page=, treating anything unparsable as 1
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pathParam returns a URL parameter with percent-encoding undone, so composite episode
// ids and embed URLs survive being placed in a path segment
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "ok", "version": version.Version})
}

// ============================================================================
// Catalog
// ============================================================================

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		badRequest(w, "Search query is required")
		return
	}

	page, err := h.svc.Search(r.Context(), query, pageParam(r))
	if err != nil {
		fail(w, r, err, "Failed to search anime")
		return
	}
	ok(w, page)
}

func (h *handler) suggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "Query parameter is required")
		return
	}

	page, err := h.svc.Suggestions(r.Context(), q)
	if err != nil {
		fail(w, r, err, "Failed to get suggestions")
		return
	}
	ok(w, page)
}

func (h *handler) spotlight(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Spotlight(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch spotlight anime")
		return
	}
	ok(w, map[string]any{"results": results})
}

type listingFunc func(ctx context.Context, page int) (*models.SearchPage, error)

func (h *handler) listing(msg string, list listingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := list(r.Context(), pageParam(r))
		if err != nil {
			fail(w, r, err, msg)
			return
		}
		ok(w, page)
	}
}

func (h *handler) genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.svc.Genres(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch genres")
		return
	}
	ok(w, map[string]any{"genres": genres})
}

func (h *handler) genreSearch(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GenreSearch(r.Context(), pathParam(r, "genre"), pageParam(r))
	if err != nil {
		fail(w, r, err, "Failed to search anime by genre")
		return
	}
	ok(w, page)
}

// ============================================================================
// Anime and episodes
// ============================================================================

func (h *handler) animeInfo(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.AnimeInfo(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		fail(w, r, err, "Failed to fetch anime information")
		return
	}
	ok(w, detail)
}

func (h *handler) episodeServers(w http.ResponseWriter, r *http.Request) {
	track := models.ParseSubOrDub(r.URL.Query().Get("subOrDub"))

	servers, err := h.svc.EpisodeServers(r.Context(), pathParam(r, "episodeId"), track)
	if err != nil {
		fail(w, r, err, "Failed to fetch episode servers")
		return
	}
	ok(w, map[string]any{"servers": servers})
}

func (h *handler) episodeSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	server := q.Get("server")
	if server == "" {
		server = scraper.DefaultServer
	}

	source, err := h.svc.EpisodeSources(r.Context(), pathParam(r, "episodeId"), server, models.ParseSubOrDub(q.Get("subOrDub")))
	if err != nil {
		fail(w, r, err, "Failed to fetch episode sources")
		return
	}
	ok(w, source)
}

// ============================================================================
// User records
// ============================================================================

func (h *handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err, "Failed to get user preferences")
		return
	}
	ok(w, prefs)
}

func (h *handler) setPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if err := decodeBody(w, r, &prefs); err != nil {
		badRequest(w, "Invalid preferences body")
		return
	}

	if err := h.svc.SetPreferences(r.Context(), userID(r), prefs); err != nil {
		fail(w, r, err, "Failed to set user preferences")
		return
	}
	success(w)
}

func (h *handler) recentlyViewed(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.RecentlyViewed(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err, "Failed to get recently viewed anime")
		return
	}
	ok(w, map[string]any{"recentIds": ids})
}

func (h *handler) favorites(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Favorites(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err, "Failed to get favorites")
		return
	}
	ok(w, map[string]any{"favoriteIds": ids})
}

func (h *handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AddFavorite(r.Context(), userID(r), pathParam(r, "animeId")); err != nil {
		fail(w, r, err, "Failed to add to favorites")
		return
	}
	success(w)
}

func (h *handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveFavorite(r.Context(), userID(r), pathParam(r, "animeId")); err != nil {
		fail(w, r, err, "Failed to remove from favorites")
		return
	}
	success(w)
}

func (h *handler) getProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.Progress(r.Context(), userID(r), pathParam(r, "animeId"))
	if err != nil {
		fail(w, r, err, "Failed to get watch progress")
		return
	}
	ok(w, progress)
}

type progressBody struct {
	EpisodeID string  `json:"episodeId"`
	Progress  float64 `json:"progress"`
}

func (h *handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	var body progressBody
	if err := decodeBody(w, r, &body); err != nil {
		badRequest(w, "Invalid progress body")
		return
	}

	if err := h.svc.UpdateProgress(r.Context(), userID(r), pathParam(r, "animeId"), body.EpisodeID, body.Progress); err != nil {
		fail(w, r, err, "Failed to update watch progress")
		return
	}
	success(w)
}
