package models

// EpisodeServer is one playback server offered for an episode.
// Server URLs expire quickly and are never cached.
type EpisodeServer struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Stream is a playable video URL
type Stream struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
	IsM3U8  bool   `json:"isM3U8"`
}

// Subtitle represents a subtitle track for video playback
type Subtitle struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}

// Source contains everything a player needs to play one episode from one server
type Source struct {
	Streams   []Stream          `json:"sources"`
	Subtitles []Subtitle        `json:"subtitles"`
	Intro     *Skip             `json:"intro,omitempty"`
	Outro     *Skip             `json:"outro,omitempty"`
	Headers   map[string]string `json:"headers"`
	Download  string            `json:"download,omitempty"`
}

// NewSource returns a Source with empty, non-nil collections
func NewSource() *Source {
	return &Source{
		Streams:   []Stream{},
		Subtitles: []Subtitle{},
		Headers:   map[string]string{},
	}
}
