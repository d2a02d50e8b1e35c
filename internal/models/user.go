package models

import "time"

// Preferences are the per-user playback and display settings
type Preferences struct {
	PreferredLanguage string `json:"preferredLanguage"`
	PreferredQuality  string `json:"preferredQuality"`
	Theme             string `json:"theme"`
}

// DefaultPreferences is what a user without stored preferences gets
func DefaultPreferences() Preferences {
	return Preferences{
		PreferredLanguage: "sub",
		PreferredQuality:  "720p",
		Theme:             "dark",
	}
}

// WatchProgress records how far a user got in an anime
type WatchProgress struct {
	EpisodeID string    `json:"episodeId"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt"`
}
