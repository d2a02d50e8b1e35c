// Package scraper parses the AnimeKai origin's pages and orchestrates the fetches behind each use case
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/kaistream/internal/extractor"
	"github.com/alvarorichard/kaistream/internal/fetch"
	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/util"
)

const (
	AnimeKaiBase = "https://animekai.to"
	// DefaultServer is the server requested when the caller names none
	DefaultServer = "megaup"
)

// PageFetcher is the part of fetch.Fetcher the engine depends on
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts ...fetch.Option) (string, error)
	FetchDocument(ctx context.Context, url string, opts ...fetch.Option) (*goquery.Document, error)
}

// SourceExtractor turns an embed page into playable streams
type SourceExtractor interface {
	Extract(ctx context.Context, serverURL string) *models.Source
}

// AnimeKaiClient is the extraction engine: one method per use case
type AnimeKaiClient struct {
	fetcher   PageFetcher
	tokens    *extractor.TokenDeriver
	extractor SourceExtractor
	baseURL   string
}

// ClientOption customizes an AnimeKaiClient
type ClientOption func(*AnimeKaiClient)

// WithTokenDeriver replaces the default token deriver
func WithTokenDeriver(d *extractor.TokenDeriver) ClientOption {
	return func(c *AnimeKaiClient) { c.tokens = d }
}

// WithSourceExtractor replaces the MegaUp extractor
func WithSourceExtractor(e SourceExtractor) ClientOption {
	return func(c *AnimeKaiClient) { c.extractor = e }
}

// NewAnimeKaiClient creates an engine for baseURL (see NormalizeBaseURL)
func NewAnimeKaiClient(baseURL string, fetcher PageFetcher, opts ...ClientOption) *AnimeKaiClient {
	c := &AnimeKaiClient{
		fetcher: fetcher,
		tokens:  extractor.NewTokenDeriver(""),
		baseURL: NormalizeBaseURL(baseURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = extractor.NewMegaUp(fetcher)
	}
	return c
}

// NormalizeBaseURL defaults an empty base to AnimeKaiBase and prefixes http:// when no scheme is given
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return AnimeKaiBase
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

// BaseURL returns the origin the client scrapes
func (c *AnimeKaiClient) BaseURL() string {
	return c.baseURL
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ============================================================================
// Catalog listings
// ============================================================================

// Search runs a keyword search
func (c *AnimeKaiClient) Search(ctx context.Context, query string, page int) (*models.SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("search query is required")
	}
	return c.catalogPage(ctx, fmt.Sprintf("%s/browser?keyword=%s&page=%d", c.baseURL, url.QueryEscape(query), clampPage(page)))
}

// RecentlyAdded lists newly added anime
func (c *AnimeKaiClient) RecentlyAdded(ctx context.Context, page int) (*models.SearchPage, error) {
	return c.catalogPage(ctx, fmt.Sprintf("%s/recent?page=%d", c.baseURL, clampPage(page)))
}

// RecentlyUpdated lists anime with new episodes
func (c *AnimeKaiClient) RecentlyUpdated(ctx context.Context, page int) (*models.SearchPage, error) {
	return c.catalogPage(ctx, fmt.Sprintf("%s/updates?page=%d", c.baseURL, clampPage(page)))
}

// LatestCompleted lists anime that finished airing
func (c *AnimeKaiClient) LatestCompleted(ctx context.Context, page int) (*models.SearchPage, error) {
	return c.catalogPage(ctx, fmt.Sprintf("%s/completed?page=%d", c.baseURL, clampPage(page)))
}

// GenreSearch lists anime of one genre
func (c *AnimeKaiClient) GenreSearch(ctx context.Context, genre string, page int) (*models.SearchPage, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, invalid("genre is required")
	}
	return c.catalogPage(ctx, fmt.Sprintf("%s/genres/%s?page=%d", c.baseURL, url.PathEscape(genre), clampPage(page)))
}

// catalogPage fetches and parses a listing page. Fetch failures yield an empty page;
// only a cancelled context is reported.
func (c *AnimeKaiClient) catalogPage(ctx context.Context, pageURL string) (*models.SearchPage, error) {
	doc, err := c.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		util.Warn("Catalog page unavailable, returning empty page", "url", pageURL, "error", err)
		return models.EmptySearchPage(), nil
	}
	return catalogParser{baseURL: c.baseURL}.Parse(doc), nil
}

// Spotlight returns the featured anime of the home page
func (c *AnimeKaiClient) Spotlight(ctx context.Context) ([]models.CatalogEntry, error) {
	doc, err := c.home(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []models.CatalogEntry{}, nil
	}
	return spotlightParser{baseURL: c.baseURL}.Parse(doc), nil
}

// Genres returns the genre names linked from the home page
func (c *AnimeKaiClient) Genres(ctx context.Context) ([]string, error) {
	doc, err := c.home(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []string{}, nil
	}
	return parseGenres(doc), nil
}

func (c *AnimeKaiClient) home(ctx context.Context) (*goquery.Document, error) {
	homeURL := c.baseURL + "/home"
	doc, err := c.fetcher.FetchDocument(ctx, homeURL)
	if err != nil && ctx.Err() == nil {
		util.Warn("Home page unavailable", "url", homeURL, "error", err)
	}
	return doc, err
}

// ============================================================================
// Anime detail and episodes
// ============================================================================

// AnimeInfo fetches the watch page of id and attaches its episode list.
// A failed episode list degrades to zero episodes; a failed watch page fails the call.
func (c *AnimeKaiClient) AnimeInfo(ctx context.Context, id string) (*models.AnimeDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("anime id is required")
	}

	watchURL := c.watchURL(id)
	doc, err := c.fetcher.FetchDocument(ctx, watchURL)
	if err != nil {
		return nil, failed("fetch anime info", err)
	}

	page := detailParser{baseURL: c.baseURL}.Parse(doc, id)
	detail := page.detail

	episodes, err := c.episodeList(ctx, id, page.aniID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failed("fetch anime info", ctx.Err())
		}
		util.Warn("Episode list unavailable, returning anime without episodes", "id", id, "error", err)
		episodes = []models.Episode{}
	}

	detail.Episodes = episodes
	if len(episodes) > 0 || detail.TotalEpisodes == 0 {
		detail.TotalEpisodes = len(episodes)
	}
	return detail, nil
}

func (c *AnimeKaiClient) episodeList(ctx context.Context, id, aniID string) ([]models.Episode, error) {
	listURL := fmt.Sprintf("%s/ajax/episodes/list?ani_id=%s&_=%s",
		c.baseURL, url.QueryEscape(aniID), url.QueryEscape(c.tokens.Derive(aniID)))

	body, err := c.fetcher.Fetch(ctx, listURL, fetch.AsXHR(c.watchURL(id)))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ajaxFragment(body)))
	if err != nil {
		return nil, err
	}
	return episodeListParser{baseURL: c.baseURL, animeID: id}.Parse(doc), nil
}

// EpisodeServers lists the embed servers of an episode for the given track.
// A failed request yields an empty list.
func (c *AnimeKaiClient) EpisodeServers(ctx context.Context, episodeID string, track models.SubOrDub) ([]models.EpisodeServer, error) {
	ref, err := models.ParseEpisodeRef(strings.TrimSpace(episodeID))
	if err != nil {
		return nil, invalid("%v", err)
	}

	servers, err := c.servers(ctx, ref, track)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		util.Warn("Episode servers unavailable", "episode", episodeID, "error", err)
		return []models.EpisodeServer{}, nil
	}
	return servers, nil
}

func (c *AnimeKaiClient) servers(ctx context.Context, ref models.EpisodeRef, track models.SubOrDub) ([]models.EpisodeServer, error) {
	serversURL := fmt.Sprintf("%s/ajax/episodes/servers?ani_id=%s&ep=%d&token=%s",
		c.baseURL, url.QueryEscape(ref.AnimeID), ref.Number, url.QueryEscape(ref.Token))

	body, err := c.fetcher.Fetch(ctx, serversURL, fetch.AsXHR(c.watchURL(ref.AnimeID)))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ajaxFragment(body)))
	if err != nil {
		return nil, err
	}
	return serverListParser{baseURL: c.baseURL, track: track}.Parse(doc), nil
}

// ============================================================================
// Sources
// ============================================================================

// EpisodeSources resolves the servers of an episode, picks one by name and extracts its streams.
// episodeID may also be an absolute embed URL, which is extracted directly.
func (c *AnimeKaiClient) EpisodeSources(ctx context.Context, episodeID, server string, track models.SubOrDub) (*models.Source, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return nil, invalid("episode id is required")
	}

	if strings.HasPrefix(episodeID, "http://") || strings.HasPrefix(episodeID, "https://") {
		if _, err := url.ParseRequestURI(episodeID); err != nil {
			return nil, invalid("embed url %q: %v", episodeID, err)
		}
		return c.extract(ctx, episodeID)
	}

	ref, err := models.ParseEpisodeRef(episodeID)
	if err != nil {
		return nil, invalid("%v", err)
	}

	servers, err := c.servers(ctx, ref, track)
	if err != nil {
		return nil, failed("fetch episode sources", err)
	}
	if len(servers) == 0 {
		return nil, failed("fetch episode sources", ErrNoServers)
	}

	if server == "" {
		server = DefaultServer
	}
	selected, matched := SelectServer(servers, server)
	if !matched {
		util.Warn("Requested server not listed, using first available server",
			"episode", episodeID, "requested", server, "using", selected.Name)
	}

	return c.extract(ctx, selected.URL)
}

func (c *AnimeKaiClient) extract(ctx context.Context, serverURL string) (*models.Source, error) {
	source := c.extractor.Extract(ctx, serverURL)
	if err := ctx.Err(); err != nil {
		return nil, failed("fetch episode sources", err)
	}
	return source, nil
}

// SelectServer returns the first server whose name contains name case-insensitively.
// Without a match it returns the first server and false; servers must not be empty.
func SelectServer(servers []models.EpisodeServer, name string) (models.EpisodeServer, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range servers {
		if strings.Contains(strings.ToLower(s.Name), want) {
			return s, true
		}
	}
	return servers[0], false
}

func (c *AnimeKaiClient) watchURL(id string) string {
	return c.baseURL + "/watch/" + url.PathEscape(id)
}
