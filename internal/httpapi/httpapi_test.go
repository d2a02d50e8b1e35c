package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/scraper"
	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/tracking"
)

// stubEngine answers every operation from memory and records the last sources call
type stubEngine struct {
	mu          sync.Mutex
	lastServer  string
	lastTrack   models.SubOrDub
	lastEpisode string
	failSearch  bool
}

func (s *stubEngine) Search(_ context.Context, query string, page int) (*models.SearchPage, error) {
	if s.failSearch {
		return nil, errors.Wrap(scraper.ErrOperationFailed, "origin down")
	}
	out := &models.SearchPage{CurrentPage: page, Results: []models.CatalogEntry{}}
	for i := 0; i < 10; i++ {
		out.Results = append(out.Results, models.CatalogEntry{ID: query + "-" + string(rune('a'+i)), Title: query, Genres: []string{}})
	}
	return out, nil
}

func (s *stubEngine) RecentlyAdded(_ context.Context, page int) (*models.SearchPage, error) {
	return &models.SearchPage{CurrentPage: page, Results: []models.CatalogEntry{}}, nil
}

func (s *stubEngine) RecentlyUpdated(context.Context, int) (*models.SearchPage, error) {
	return models.EmptySearchPage(), nil
}

func (s *stubEngine) LatestCompleted(context.Context, int) (*models.SearchPage, error) {
	return models.EmptySearchPage(), nil
}

func (s *stubEngine) GenreSearch(_ context.Context, genre string, page int) (*models.SearchPage, error) {
	return &models.SearchPage{CurrentPage: page, Results: []models.CatalogEntry{{ID: genre, Title: genre, Genres: []string{genre}}}}, nil
}

func (s *stubEngine) Spotlight(context.Context) ([]models.CatalogEntry, error) {
	return []models.CatalogEntry{{ID: "frieren", Title: "Frieren", Genres: []string{}}}, nil
}

func (s *stubEngine) Genres(context.Context) ([]string, error) {
	return []string{"action", "romance"}, nil
}

func (s *stubEngine) AnimeInfo(_ context.Context, id string) (*models.AnimeDetail, error) {
	if id == "missing" {
		return nil, errors.Wrap(scraper.ErrOperationFailed, "status 404")
	}
	return &models.AnimeDetail{CatalogEntry: models.CatalogEntry{ID: id, Title: "Naruto", Genres: []string{}}}, nil
}

func (s *stubEngine) EpisodeServers(_ context.Context, episodeID string, track models.SubOrDub) ([]models.EpisodeServer, error) {
	if _, err := models.ParseEpisodeRef(episodeID); err != nil {
		return nil, errors.Wrap(scraper.ErrInvalidInput, err.Error())
	}
	return []models.EpisodeServer{{Name: "MegaUp " + string(track), URL: "https://megaup.test/e/1"}}, nil
}

func (s *stubEngine) EpisodeSources(_ context.Context, episodeID, server string, track models.SubOrDub) (*models.Source, error) {
	s.mu.Lock()
	s.lastEpisode, s.lastServer, s.lastTrack = episodeID, server, track
	s.mu.Unlock()

	src := models.NewSource()
	src.Streams = append(src.Streams, models.Stream{URL: "https://cdn.test/master.m3u8", IsM3U8: true})
	return src, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubEngine) {
	t.Helper()
	engine := &stubEngine{}
	svc := service.New(engine, tracking.NewMemoryStore(), time.Minute)
	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Close()
	})
	return srv, engine
}

func do(t *testing.T, method, target, user, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestPreflightAndCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodOptions, srv.URL+"/api/user/favorites/naruto", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-User-Id")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/genres", "", "")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, data)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestSearchRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/search", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Search query is required", decode[map[string]string](t, data)["error"])

	resp, data = do(t, http.MethodGet, srv.URL+"/api/search?query=naruto&page=abc", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	page := decode[models.SearchPage](t, data)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Results, 10)

	resp, data = do(t, http.MethodGet, srv.URL+"/api/search?query=naruto&page=3", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decode[models.SearchPage](t, data).CurrentPage)
}

func TestSearchFailureIsGeneric500(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.failSearch = true

	resp, data := do(t, http.MethodGet, srv.URL+"/api/search?query=naruto", "", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to search anime", decode[map[string]string](t, data)["error"])
}

func TestSuggestionsRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/search/suggestions", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Query parameter is required", decode[map[string]string](t, data)["error"])

	resp, data = do(t, http.MethodGet, srv.URL+"/api/search/suggestions?q=one", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[models.SearchPage](t, data).Results, service.MaxSuggestions)
}

func TestHomeRoutesShapes(t *testing.T) {
	srv, _ := newTestServer(t)

	_, data := do(t, http.MethodGet, srv.URL+"/api/genres", "", "")
	assert.Equal(t, []string{"action", "romance"}, decode[map[string][]string](t, data)["genres"])

	_, data = do(t, http.MethodGet, srv.URL+"/api/spotlight", "", "")
	spot := decode[map[string][]models.CatalogEntry](t, data)
	require.Len(t, spot["results"], 1)
	assert.Equal(t, "frieren", spot["results"][0].ID)

	_, data = do(t, http.MethodGet, srv.URL+"/api/recent?page=2", "", "")
	assert.Equal(t, 2, decode[models.SearchPage](t, data).CurrentPage)

	_, data = do(t, http.MethodGet, srv.URL+"/api/genre/"+url.PathEscape("slice of life"), "", "")
	page := decode[models.SearchPage](t, data)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "slice of life", page.Results[0].ID)
}

func TestAnimeInfoRecordsRecentlyViewed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/anime/naruto", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "naruto", decode[models.AnimeDetail](t, data).ID)

	_, data = do(t, http.MethodGet, srv.URL+"/api/user/recent", "alice", "")
	assert.Equal(t, []string{"naruto"}, decode[map[string][]string](t, data)["recentIds"])

	_, data = do(t, http.MethodGet, srv.URL+"/api/user/recent", "", "")
	assert.Empty(t, decode[map[string][]string](t, data)["recentIds"])

	resp, data = do(t, http.MethodGet, srv.URL+"/api/anime/missing", "alice", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch anime information", decode[map[string]string](t, data)["error"])
}

func TestEpisodeRoutes(t *testing.T) {
	srv, engine := newTestServer(t)
	episode := url.PathEscape("naruto$ep=3$token=abc")

	resp, data := do(t, http.MethodGet, srv.URL+"/api/anime/naruto/episode/"+episode+"/servers?subOrDub=dub", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	servers := decode[map[string][]models.EpisodeServer](t, data)["servers"]
	require.Len(t, servers, 1)
	assert.Equal(t, "MegaUp dub", servers[0].Name)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/anime/naruto/episode/garbage/servers", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, http.MethodGet, srv.URL+"/api/anime/naruto/episode/"+episode+"/sources", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	src := decode[models.Source](t, data)
	require.Len(t, src.Streams, 1)
	assert.True(t, src.Streams[0].IsM3U8)

	engine.mu.Lock()
	assert.Equal(t, "naruto$ep=3$token=abc", engine.lastEpisode)
	assert.Equal(t, scraper.DefaultServer, engine.lastServer)
	assert.Equal(t, models.Sub, engine.lastTrack)
	engine.mu.Unlock()
}

func TestPreferencesRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	_, data := do(t, http.MethodGet, srv.URL+"/api/user/preferences", "alice", "")
	assert.Equal(t, models.DefaultPreferences(), decode[models.Preferences](t, data))

	resp, data := do(t, http.MethodPost, srv.URL+"/api/user/preferences", "alice", `{"preferredLanguage":"dub","preferredQuality":"1080p","theme":"light"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]bool](t, data)["success"])

	_, data = do(t, http.MethodGet, srv.URL+"/api/user/preferences", "alice", "")
	assert.Equal(t, "1080p", decode[models.Preferences](t, data).PreferredQuality)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/user/preferences", "alice", `{"preferredQuality":"4k"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/user/preferences", "alice", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFavoritesRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, id := range []string{"naruto", "bleach"} {
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/user/favorites/"+id, "bob", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/user/favorites/naruto", "bob", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, data := do(t, http.MethodGet, srv.URL+"/api/user/favorites", "bob", "")
	assert.Equal(t, []string{"bleach"}, decode[map[string][]string](t, data)["favoriteIds"])
}

func TestProgressRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/user/progress/naruto", "carol", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/user/progress/naruto", "carol", `{"episodeId":"naruto$ep=2$token=t","progress":95.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, data = do(t, http.MethodGet, srv.URL+"/api/user/progress/naruto", "carol", "")
	progress := decode[models.WatchProgress](t, data)
	assert.Equal(t, "naruto$ep=2$token=t", progress.EpisodeID)
	assert.InDelta(t, 95.5, progress.Progress, 0.001)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/user/progress/naruto", "carol", `{"episodeId":"","progress":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPageParam(t *testing.T) {
	for raw, want := range map[string]int{"": 1, "abc": 1, "0": 1, "-4": 1, "7": 7} {
		r := httptest.NewRequest(http.MethodGet, "/api/recent?page="+raw, nil)
		assert.Equal(t, want, pageParam(r), "page=%q", raw)
	}
}
