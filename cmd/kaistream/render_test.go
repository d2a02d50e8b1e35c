package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

func TestRenderSource(t *testing.T) {
	anime := &kaistream.AnimeDetail{CatalogEntry: kaistream.CatalogEntry{
		Title:  "Frieren",
		Genres: []string{"adventure", "drama", "fantasy", "shounen"},
	}}
	episode := kaistream.Episode{Number: 3}

	source := &kaistream.Source{
		Streams:   []kaistream.Stream{{URL: "https://cdn.test/master.m3u8", IsM3U8: true}},
		Subtitles: []kaistream.Subtitle{{URL: "https://cdn.test/en.vtt", Lang: "English"}},
		Headers:   map[string]string{"Referer": "https://megaup.test/"},
		Download:  "https://megaup.test/download/1",
		Intro:     &kaistream.Skip{Start: 30, End: 110},
		Outro:     &kaistream.Skip{Start: 1400, End: 1400},
	}
	out := renderSource(anime, episode, source)
	assert.Contains(t, out, "Frieren - Episode 3")
	assert.Contains(t, out, "https://cdn.test/master.m3u8")
	assert.Contains(t, out, "[English]")
	assert.Contains(t, out, "Referer: https://megaup.test/")
	assert.Contains(t, out, "https://megaup.test/download/1")
	assert.Contains(t, out, "adventure, drama, fantasy")
	assert.NotContains(t, out, "shounen")
	assert.Contains(t, out, "Intro")
	assert.Contains(t, out, "0:30-1:50")
	// an empty interval is not shown
	assert.NotContains(t, out, "Outro")

	empty := renderSource(anime, episode, &kaistream.Source{})
	assert.Contains(t, empty, "No playable streams")
}

func TestFormatSkip(t *testing.T) {
	assert.Equal(t, "0:05-1:30", formatSkip(kaistream.Skip{Start: 5, End: 90}))
	assert.Equal(t, "22:00-23:45", formatSkip(kaistream.Skip{Start: 1320, End: 1425}))
}
