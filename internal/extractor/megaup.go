package extractor

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/kaistream/internal/fetch"
	"github.com/alvarorichard/kaistream/internal/models"
	"github.com/alvarorichard/kaistream/internal/util"
)

var (
	m3u8Pattern      = regexp.MustCompile(`https?://[^\s"'\\]+\.m3u8[^\s"'\\]*`)
	trackPattern     = regexp.MustCompile(`\{[^{}]*?["']?file["']?\s*:\s*["']([^"']+\.vtt[^"']*)["'][^{}]*\}`)
	trackLabel       = regexp.MustCompile(`["']?label["']?\s*:\s*["']([^"']+)["']`)
	embedPathSegment = regexp.MustCompile(`/e/`)
)

// DocumentFetcher is the part of the page fetcher the extractor needs
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string, opts ...fetch.Option) (*goquery.Document, error)
}

// MegaUp extracts streams from the origin's MegaUp embed pages
type MegaUp struct {
	fetcher DocumentFetcher
}

// NewMegaUp creates a MegaUp extractor
func NewMegaUp(fetcher DocumentFetcher) *MegaUp {
	return &MegaUp{fetcher: fetcher}
}

// Extract loads the server page and collects its streams.
// It never fails: fetch or parse problems yield a Source with no streams.
func (m *MegaUp) Extract(ctx context.Context, serverURL string) *models.Source {
	source := models.NewSource()
	source.Headers["Referer"] = serverURL
	source.Download = DownloadURL(serverURL)

	doc, err := m.fetcher.FetchDocument(ctx, serverURL, fetch.WithHeader("Referer", serverURL))
	if err != nil {
		util.Warn("MegaUp extraction failed", "url", serverURL, "error", err)
		return source
	}

	source.Streams = scriptStreams(doc)
	if len(source.Streams) == 0 {
		source.Streams = videoElementStreams(doc)
	}
	source.Subtitles = scriptSubtitles(doc)

	util.Debug("MegaUp extraction finished", "url", serverURL, "streams", len(source.Streams), "subtitles", len(source.Subtitles))
	return source
}

// DownloadURL derives the download page from an embed URL by swapping /e/ for /download/
func DownloadURL(serverURL string) string {
	return embedPathSegment.ReplaceAllLiteralString(serverURL, "/download/")
}

// scriptStreams turns every absolute .m3u8 URL inside inline scripts into an HLS stream
func scriptStreams(doc *goquery.Document) []models.Stream {
	streams := []models.Stream{}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, url := range m3u8Pattern.FindAllString(scriptText(s), -1) {
			streams = append(streams, models.Stream{URL: url, Quality: "auto", IsM3U8: true})
		}
	})
	return streams
}

// videoElementStreams is the fallback for pages that embed a plain <video><source>
func videoElementStreams(doc *goquery.Document) []models.Stream {
	src := strings.TrimSpace(doc.Find("video source").First().AttrOr("src", ""))
	if src == "" {
		return []models.Stream{}
	}
	return []models.Stream{{
		URL:     src,
		Quality: "auto",
		IsM3U8:  m3u8Pattern.MatchString(src),
	}}
}

// scriptSubtitles collects {file: "...vtt", label: "..."} track declarations from player scripts
func scriptSubtitles(doc *goquery.Document) []models.Subtitle {
	subtitles := []models.Subtitle{}
	seen := map[string]bool{}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, match := range trackPattern.FindAllStringSubmatch(scriptText(s), -1) {
			url := match[1]
			if seen[url] {
				continue
			}
			seen[url] = true

			lang := ""
			if label := trackLabel.FindStringSubmatch(match[0]); label != nil {
				lang = label[1]
			}
			if lang == "" {
				lang = strings.TrimSuffix(path.Base(url), path.Ext(path.Base(url)))
			}
			subtitles = append(subtitles, models.Subtitle{URL: url, Lang: lang})
		}
	})
	return subtitles
}

// scriptText returns the script body with JSON-escaped slashes undone
func scriptText(s *goquery.Selection) string {
	return strings.ReplaceAll(s.Text(), `\/`, "/")
}
