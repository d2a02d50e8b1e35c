package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#6366F1")).
			Bold(true).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A5B4FC")).Bold(true)
	urlStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6366F1")).
			Padding(0, 1)
)

// renderSource formats the extracted streams for the terminal
func renderSource(anime *kaistream.AnimeDetail, episode kaistream.Episode, source *kaistream.Source) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s - Episode %d", anime.Title, episode.Number)))
	b.WriteString("\n")
	if genres := anime.GetGenresDisplay(); genres != "" {
		b.WriteString(mutedStyle.Render(genres))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(source.Streams) == 0 {
		b.WriteString(mutedStyle.Render("No playable streams were found on this server."))
		return boxStyle.Render(b.String())
	}

	b.WriteString(labelStyle.Render("Streams"))
	b.WriteString("\n")
	for _, s := range source.Streams {
		kind := "mp4"
		if s.IsM3U8 {
			kind = "hls"
		}
		quality := s.Quality
		if quality == "" {
			quality = "auto"
		}
		fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("[%s %s]", kind, quality)), urlStyle.Render(s.URL))
	}

	if len(source.Subtitles) > 0 {
		b.WriteString(labelStyle.Render("Subtitles"))
		b.WriteString("\n")
		for _, sub := range source.Subtitles {
			fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("["+sub.Lang+"]"), sub.URL)
		}
	}

	if len(source.Headers) > 0 {
		b.WriteString(labelStyle.Render("Headers"))
		b.WriteString("\n")
		keys := make([]string, 0, len(source.Headers))
		for k := range source.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, source.Headers[k])
		}
	}

	for _, skip := range []struct {
		label    string
		interval *kaistream.Skip
	}{{"Intro", source.Intro}, {"Outro", source.Outro}} {
		if skip.interval != nil && skip.interval.Valid() {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(skip.label), formatSkip(*skip.interval))
		}
	}

	if source.Download != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Download"), urlStyle.Render(source.Download))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// formatSkip renders an interval as m:ss-m:ss
func formatSkip(s kaistream.Skip) string {
	return fmt.Sprintf("%d:%02d-%d:%02d", s.Start/60, s.Start%60, s.End/60, s.End%60)
}
