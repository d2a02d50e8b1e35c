package models

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidEpisodeRef is returned when a composite episode id cannot be decoded
var ErrInvalidEpisodeRef = errors.New("invalid episode id")

const (
	episodeMarker = "$ep="
	tokenMarker   = "$token="
)

// Episode is one entry of an anime's episode list.
// ID is the encoded EpisodeRef and is the only handle callers get for playback.
type Episode struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Title    string `json:"title,omitempty"`
	IsFiller bool   `json:"isFiller"`
	URL      string `json:"url,omitempty"`
}

// SortEpisodes orders episodes by ascending number, keeping list order for equal numbers
func SortEpisodes(episodes []Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Number < episodes[j].Number
	})
}

// EpisodeRef identifies an episode for the origin's servers endpoint.
// Token is the value captured when the episode list was fetched; it is time-bound,
// so a ref is a short-lived capability rather than a stable key.
type EpisodeRef struct {
	AnimeID string
	Number  int
	Token   string
}

// String encodes the ref as "{animeID}$ep={number}$token={token}"
func (r EpisodeRef) String() string {
	return r.AnimeID + episodeMarker + strconv.Itoa(r.Number) + tokenMarker + r.Token
}

// ParseEpisodeRef decodes a composite episode id produced by EpisodeRef.String
func ParseEpisodeRef(s string) (EpisodeRef, error) {
	animeID, rest, ok := strings.Cut(s, episodeMarker)
	if !ok || strings.TrimSpace(animeID) == "" {
		return EpisodeRef{}, errors.Wrapf(ErrInvalidEpisodeRef, "%q has no anime id", s)
	}

	numPart, token, _ := strings.Cut(rest, tokenMarker)
	num, err := strconv.Atoi(strings.TrimSpace(numPart))
	if err != nil || num <= 0 {
		return EpisodeRef{}, errors.Wrapf(ErrInvalidEpisodeRef, "%q has no valid episode number", s)
	}

	return EpisodeRef{AnimeID: animeID, Number: num, Token: token}, nil
}
