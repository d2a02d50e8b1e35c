// Package models contains the normalized records produced by the scrapers
package models

import (
	"strings"
)

// MediaFormat represents the release format of an anime as shown by the origin
type MediaFormat string

const (
	FormatTV      MediaFormat = "TV"
	FormatMovie   MediaFormat = "MOVIE"
	FormatOVA     MediaFormat = "OVA"
	FormatONA     MediaFormat = "ONA"
	FormatSpecial MediaFormat = "SPECIAL"
	FormatMusic   MediaFormat = "MUSIC"
)

// MediaStatus represents the airing status of an anime
type MediaStatus string

const (
	StatusCompleted   MediaStatus = "COMPLETED"
	StatusOngoing     MediaStatus = "ONGOING"
	StatusNotYetAired MediaStatus = "NOT_YET_AIRED"
	StatusUnknown     MediaStatus = "UNKNOWN"
)

// CatalogEntry is a single anime card as found on listing, search and home pages.
// Optional fields are left empty when the markup does not carry them.
type CatalogEntry struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	JapaneseTitle string      `json:"japaneseTitle,omitempty"`
	URL           string      `json:"url"`
	Image         string      `json:"image,omitempty"`
	Banner        string      `json:"banner,omitempty"`
	Format        MediaFormat `json:"type,omitempty"`
	Year          string      `json:"year,omitempty"`
	SubCount      int         `json:"sub"`
	DubCount      int         `json:"dub"`
	EpisodeCount  int         `json:"episodes"`
	Genres        []string    `json:"genres"`
	Description   string      `json:"description,omitempty"`
}

// SearchPage is one page of catalog results
type SearchPage struct {
	CurrentPage int            `json:"currentPage"`
	HasNextPage bool           `json:"hasNextPage"`
	Results     []CatalogEntry `json:"results"`
}

// EmptySearchPage returns the page reported when nothing could be parsed
func EmptySearchPage() *SearchPage {
	return &SearchPage{CurrentPage: 1, Results: []CatalogEntry{}}
}

// Clone returns a copy of the entry that shares no slices with e
func (e CatalogEntry) Clone() CatalogEntry {
	out := e
	out.Genres = append([]string(nil), e.Genres...)
	if out.Genres == nil {
		out.Genres = []string{}
	}
	return out
}

// Clone returns a deep copy of the page
func (p *SearchPage) Clone() *SearchPage {
	if p == nil {
		return nil
	}
	out := &SearchPage{
		CurrentPage: p.CurrentPage,
		HasNextPage: p.HasNextPage,
		Results:     make([]CatalogEntry, len(p.Results)),
	}
	for i := range p.Results {
		out.Results[i] = p.Results[i].Clone()
	}
	return out
}

// GetDisplayName returns the title with the japanese title and format appended when known
func (e CatalogEntry) GetDisplayName() string {
	name := e.Title
	if e.JapaneseTitle != "" && !strings.EqualFold(e.JapaneseTitle, e.Title) {
		name += " / " + e.JapaneseTitle
	}
	if e.Format != "" {
		name += " [" + string(e.Format) + "]"
	}
	return name
}

// GetGenresDisplay returns up to three genres as a comma-separated string
func (e CatalogEntry) GetGenresDisplay() string {
	if len(e.Genres) == 0 {
		return ""
	}
	maxGenres := 3
	if len(e.Genres) < maxGenres {
		maxGenres = len(e.Genres)
	}
	return strings.Join(e.Genres[:maxGenres], ", ")
}
