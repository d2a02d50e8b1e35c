// Package kaistream provides a public API for searching AnimeKai and resolving episode streams.
// This package can be used as a library in other Go projects.
package kaistream

import (
	"context"
	"net/http"
	"time"

	"github.com/alvarorichard/kaistream/internal/cache"
	"github.com/alvarorichard/kaistream/internal/extractor"
	"github.com/alvarorichard/kaistream/internal/fetch"
	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/scraper"
	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/tracking"
	"github.com/alvarorichard/kaistream/internal/util"
)

type (
	CatalogEntry  = models.CatalogEntry
	SearchPage    = models.SearchPage
	AnimeDetail   = models.AnimeDetail
	Episode       = models.Episode
	EpisodeServer = models.EpisodeServer
	Source        = models.Source
	Stream        = models.Stream
	Subtitle      = models.Subtitle
	Skip          = models.Skip
	SubOrDub      = models.SubOrDub
	Preferences   = models.Preferences
	WatchProgress = models.WatchProgress
)

const (
	Sub     = models.Sub
	Dub     = models.Dub
	SoftSub = models.SoftSub
)

// Options configures a Client. The zero value scrapes animekai.to with in-memory user records.
type Options struct {
	// BaseURL overrides the origin, mostly for tests and mirrors
	BaseURL   string
	UserAgent string
	TokenKey  string
	Timeout   time.Duration
	CacheTTL  time.Duration
	// DatabasePath enables persistent user records in SQLite
	DatabasePath string
	// HTTPClient replaces the default origin client; Timeout is then ignored
	HTTPClient *http.Client
	// UserID scopes favorites, history and progress; defaults to DefaultUserID
	UserID string
}

// DefaultUserID owns the user records of clients that set no UserID
const DefaultUserID = "anonymous"

// Client is the main client for interacting with AnimeKai
type Client struct {
	svc    *service.Service
	engine *scraper.AnimeKaiClient
	user   string
}

// NewClient creates a client with the default options
func NewClient() *Client {
	c, err := NewClientWithOptions(Options{})
	if err != nil {
		// only a database path can fail, and the defaults carry none
		panic(err)
	}
	return c
}

// NewClientWithOptions creates a client from opts
func NewClientWithOptions(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = util.NewOriginClient(opts.Timeout)
	}

	fetcher := fetch.New(fetch.Config{Client: client, UserAgent: opts.UserAgent})
	engine := scraper.NewAnimeKaiClient(opts.BaseURL, fetcher,
		scraper.WithTokenDeriver(extractor.NewTokenDeriver(opts.TokenKey)))

	store, err := tracking.Open(opts.DatabasePath)
	if err != nil {
		return nil, err
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	user := opts.UserID
	if user == "" {
		user = DefaultUserID
	}
	return &Client{svc: service.New(engine, store, ttl), engine: engine, user: user}, nil
}

// Close releases the user store
func (c *Client) Close() error {
	return c.svc.Close()
}

// BaseURL returns the origin the client scrapes
func (c *Client) BaseURL() string {
	return c.engine.BaseURL()
}

// SearchAnime returns one page of keyword results
func (c *Client) SearchAnime(ctx context.Context, query string, page int) (*SearchPage, error) {
	return c.svc.Search(ctx, query, page)
}

// Suggestions returns the first few results for a partial query
func (c *Client) Suggestions(ctx context.Context, query string) (*SearchPage, error) {
	return c.svc.Suggestions(ctx, query)
}

func (c *Client) RecentlyAdded(ctx context.Context, page int) (*SearchPage, error) {
	return c.svc.RecentlyAdded(ctx, page)
}

func (c *Client) RecentlyUpdated(ctx context.Context, page int) (*SearchPage, error) {
	return c.svc.RecentlyUpdated(ctx, page)
}

func (c *Client) LatestCompleted(ctx context.Context, page int) (*SearchPage, error) {
	return c.svc.LatestCompleted(ctx, page)
}

func (c *Client) GenreSearch(ctx context.Context, genre string, page int) (*SearchPage, error) {
	return c.svc.GenreSearch(ctx, genre, page)
}

func (c *Client) Spotlight(ctx context.Context) ([]CatalogEntry, error) {
	return c.svc.Spotlight(ctx)
}

func (c *Client) Genres(ctx context.Context) ([]string, error) {
	return c.svc.Genres(ctx)
}

// GetAnime retrieves the detail record and episode list of an anime.
// The id should be obtained from a search result.
func (c *Client) GetAnime(ctx context.Context, id string) (*AnimeDetail, error) {
	return c.svc.AnimeInfo(ctx, c.user, id)
}

// GetEpisodeServers lists the playback servers of an episode.
// Episode ids embed a short-lived token, so fetch them shortly before use.
func (c *Client) GetEpisodeServers(ctx context.Context, episodeID string, track SubOrDub) ([]EpisodeServer, error) {
	return c.svc.EpisodeServers(ctx, episodeID, track)
}

// GetEpisodeSources resolves the streams of an episode on the named server.
// An empty server selects MegaUp.
func (c *Client) GetEpisodeSources(ctx context.Context, episodeID, server string, track SubOrDub) (*Source, error) {
	return c.svc.EpisodeSources(ctx, episodeID, server, track)
}

// ============================================================================
// User records
// ============================================================================

func (c *Client) Preferences(ctx context.Context) (Preferences, error) {
	return c.svc.Preferences(ctx, c.user)
}

func (c *Client) SetPreferences(ctx context.Context, prefs Preferences) error {
	return c.svc.SetPreferences(ctx, c.user, prefs)
}

// RecentlyViewed returns the ids of the anime opened with GetAnime, newest first
func (c *Client) RecentlyViewed(ctx context.Context) ([]string, error) {
	return c.svc.RecentlyViewed(ctx, c.user)
}

func (c *Client) Favorites(ctx context.Context) ([]string, error) {
	return c.svc.Favorites(ctx, c.user)
}

func (c *Client) AddFavorite(ctx context.Context, animeID string) error {
	return c.svc.AddFavorite(ctx, c.user, animeID)
}

func (c *Client) RemoveFavorite(ctx context.Context, animeID string) error {
	return c.svc.RemoveFavorite(ctx, c.user, animeID)
}

// Progress returns nil when nothing was recorded for animeID
func (c *Client) Progress(ctx context.Context, animeID string) (*WatchProgress, error) {
	return c.svc.Progress(ctx, c.user, animeID)
}

func (c *Client) UpdateProgress(ctx context.Context, animeID, episodeID string, seconds float64) error {
	return c.svc.UpdateProgress(ctx, c.user, animeID, episodeID, seconds)
}

// IsInvalidInput reports whether err was caused by a bad argument rather than the origin
func IsInvalidInput(err error) bool {
	return service.IsInvalidInput(err)
}
