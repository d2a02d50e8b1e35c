// Package service puts the result caches and the user store in front of the extraction engine
package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/alvarorichard/kaistream/internal/cache"
	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/scraper"
	"github.com/alvarorichard/kaistream/internal/tracking"
	"github.com/alvarorichard/kaistream/internal/util"
)

// MaxSuggestions is how many search results a suggestion list carries
const MaxSuggestions = 8

// maxFlightDuration bounds a shared origin fetch once it no longer follows any caller's context
const maxFlightDuration = 2 * time.Minute

// ErrInvalidInput is the engine's client-input failure, re-exported for callers of the service
var ErrInvalidInput = scraper.ErrInvalidInput

// Engine is the set of extraction operations the service fronts
type Engine interface {
	Search(ctx context.Context, query string, page int) (*models.SearchPage, error)
	RecentlyAdded(ctx context.Context, page int) (*models.SearchPage, error)
	RecentlyUpdated(ctx context.Context, page int) (*models.SearchPage, error)
	LatestCompleted(ctx context.Context, page int) (*models.SearchPage, error)
	GenreSearch(ctx context.Context, genre string, page int) (*models.SearchPage, error)
	Spotlight(ctx context.Context) ([]models.CatalogEntry, error)
	Genres(ctx context.Context) ([]string, error)
	AnimeInfo(ctx context.Context, id string) (*models.AnimeDetail, error)
	EpisodeServers(ctx context.Context, episodeID string, track models.SubOrDub) ([]models.EpisodeServer, error)
	EpisodeSources(ctx context.Context, episodeID, server string, track models.SubOrDub) (*models.Source, error)
}

// Service is what the routing layer and the library client call
type Service struct {
	engine   Engine
	store    tracking.Store
	searches *cache.TTLCache[*models.SearchPage]
	details  *cache.TTLCache[*models.AnimeDetail]
	flights  singleflight.Group
}

// New wires engine and store behind caches holding results for ttl
func New(engine Engine, store tracking.Store, ttl time.Duration, opts ...cache.Option) *Service {
	if store == nil {
		store = tracking.NewMemoryStore()
	}
	return &Service{
		engine:   engine,
		store:    store,
		searches: cache.New[*models.SearchPage](ttl, opts...),
		details:  cache.New[*models.AnimeDetail](ttl, opts...),
	}
}

// Close releases the user store
func (s *Service) Close() error {
	return s.store.Close()
}

// ============================================================================
// Catalog
// ============================================================================

// Search returns one page of keyword results, served from cache when fresh.
// Empty pages are not cached since they are also what an unreachable origin yields.
func (s *Service) Search(ctx context.Context, query string, page int) (*models.SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Wrap(ErrInvalidInput, "search query is required")
	}
	if page < 1 {
		page = 1
	}

	key := cache.SearchKey(query, page)
	if cached, ok := s.searches.Get(key); ok {
		util.Debug("Search cache hit", "key", key)
		return cached.Clone(), nil
	}

	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		result, err := s.engine.Search(ctx, query, page)
		if err != nil {
			return nil, err
		}
		if len(result.Results) > 0 {
			s.searches.Put(key, result.Clone())
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.SearchPage).Clone(), nil
}

// shared runs fn once for all concurrent callers of key. fn gets a context detached from
// any single caller, so one caller leaving does not fail the others; each caller stops
// waiting when its own ctx is done.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxFlightDuration)
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Suggestions returns the first MaxSuggestions results of page 1 for q
func (s *Service) Suggestions(ctx context.Context, q string) (*models.SearchPage, error) {
	page, err := s.Search(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Results) > MaxSuggestions {
		page.Results = page.Results[:MaxSuggestions]
	}
	return page, nil
}

func (s *Service) RecentlyAdded(ctx context.Context, page int) (*models.SearchPage, error) {
	return s.engine.RecentlyAdded(ctx, page)
}

func (s *Service) RecentlyUpdated(ctx context.Context, page int) (*models.SearchPage, error) {
	return s.engine.RecentlyUpdated(ctx, page)
}

func (s *Service) LatestCompleted(ctx context.Context, page int) (*models.SearchPage, error) {
	return s.engine.LatestCompleted(ctx, page)
}

func (s *Service) GenreSearch(ctx context.Context, genre string, page int) (*models.SearchPage, error) {
	return s.engine.GenreSearch(ctx, genre, page)
}

func (s *Service) Spotlight(ctx context.Context) ([]models.CatalogEntry, error) {
	return s.engine.Spotlight(ctx)
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.engine.Genres(ctx)
}

// ============================================================================
// Anime and episodes
// ============================================================================

// AnimeInfo returns the detail record of id, served from cache when fresh, and records
// it in userID's recently viewed list. Failing to record the view does not fail the call.
// Records without episodes are not cached.
func (s *Service) AnimeInfo(ctx context.Context, userID, id string) (*models.AnimeDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "anime id is required")
	}

	key := cache.AnimeInfoKey(id)
	detail, ok := s.details.Get(key)
	if ok {
		util.Debug("Anime info cache hit", "key", key)
	} else {
		v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
			result, err := s.engine.AnimeInfo(ctx, id)
			if err != nil {
				return nil, err
			}
			// zero episodes is also what a failed episode list degrades to
			if len(result.Episodes) > 0 {
				s.details.Put(key, result.Clone())
			}
			return result, nil
		})
		if err != nil {
			return nil, err
		}
		detail = v.(*models.AnimeDetail)
	}

	if err := s.store.AddRecentlyViewed(ctx, userID, id); err != nil {
		util.Warn("Failed to record recently viewed anime", "user", userID, "id", id, "error", err)
	}
	return detail.Clone(), nil
}

func (s *Service) EpisodeServers(ctx context.Context, episodeID string, track models.SubOrDub) ([]models.EpisodeServer, error) {
	return s.engine.EpisodeServers(ctx, episodeID, track)
}

func (s *Service) EpisodeSources(ctx context.Context, episodeID, server string, track models.SubOrDub) (*models.Source, error) {
	return s.engine.EpisodeSources(ctx, episodeID, server, track)
}

// ============================================================================
// User records
// ============================================================================

func (s *Service) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	return s.store.Preferences(ctx, userID)
}

func (s *Service) SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	return s.store.SetPreferences(ctx, userID, prefs)
}

func (s *Service) RecentlyViewed(ctx context.Context, userID string) ([]string, error) {
	return s.store.RecentlyViewed(ctx, userID)
}

func (s *Service) Favorites(ctx context.Context, userID string) ([]string, error) {
	return s.store.Favorites(ctx, userID)
}

func (s *Service) AddFavorite(ctx context.Context, userID, animeID string) error {
	if strings.TrimSpace(animeID) == "" {
		return errors.Wrap(ErrInvalidInput, "anime id is required")
	}
	return s.store.AddFavorite(ctx, userID, animeID)
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, animeID string) error {
	if strings.TrimSpace(animeID) == "" {
		return errors.Wrap(ErrInvalidInput, "anime id is required")
	}
	return s.store.RemoveFavorite(ctx, userID, animeID)
}

func (s *Service) Progress(ctx context.Context, userID, animeID string) (*models.WatchProgress, error) {
	return s.store.Progress(ctx, userID, animeID)
}

func (s *Service) UpdateProgress(ctx context.Context, userID, animeID, episodeID string, progress float64) error {
	if strings.TrimSpace(animeID) == "" {
		return errors.Wrap(ErrInvalidInput, "anime id is required")
	}
	return s.store.UpdateProgress(ctx, userID, animeID, episodeID, progress)
}

// IsInvalidInput reports whether err was caused by the caller's input rather than the origin or storage
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, tracking.ErrInvalidPreferences) ||
		errors.Is(err, tracking.ErrInvalidProgress)
}
