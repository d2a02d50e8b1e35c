package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/kaistream/internal/models"
)

const (
	episodeSelector = "li a, .episode-item a"
	serverSelector  = ".server-item, .server-link"
)

// episodeListParser reads the episode list AJAX fragment of one anime
type episodeListParser struct {
	baseURL string
	animeID string
}

func (p episodeListParser) Parse(doc *goquery.Document) []models.Episode {
	episodes := []models.Episode{}
	doc.Find(episodeSelector).Each(func(_ int, a *goquery.Selection) {
		number, err := strconv.Atoi(firstAttr(a, "num", "data-episode", "data-num"))
		if err != nil || number <= 0 {
			return
		}

		title := cleanText(a.Find("span").First().Text())
		if title == "" {
			title = fmt.Sprintf("Episode %d", number)
		}

		ref := models.EpisodeRef{
			AnimeID: p.animeID,
			Number:  number,
			Token:   firstAttr(a, "token", "data-token"),
		}

		episodes = append(episodes, models.Episode{
			ID:       ref.String(),
			Number:   number,
			Title:    title,
			IsFiller: a.HasClass("filler") || a.Parent().HasClass("filler"),
			URL:      p.baseURL + "/watch/" + p.animeID + a.AttrOr("href", ""),
		})
	})

	models.SortEpisodes(episodes)
	return episodes
}

// serverListParser reads the servers AJAX fragment of one episode.
// When the fragment groups servers by track, only the requested track's group is read.
type serverListParser struct {
	baseURL string
	track   models.SubOrDub
}

func (p serverListParser) Parse(doc *goquery.Document) []models.EpisodeServer {
	rows := p.scope(doc).Find(serverSelector)

	servers := []models.EpisodeServer{}
	rows.Each(func(i int, row *goquery.Selection) {
		link := firstAttr(row, "href", "data-url", "data-link")
		if link == "" || link == "#" || strings.HasPrefix(link, "javascript:") {
			return
		}

		name := cleanText(row.Find(".server-name").First().Text())
		if name == "" {
			name = fmt.Sprintf("Server %d", i+1)
		}

		servers = append(servers, models.EpisodeServer{
			Name: name,
			URL:  resolveURL(p.baseURL, link),
		})
	})
	return servers
}

func (p serverListParser) scope(doc *goquery.Document) *goquery.Selection {
	track := p.track
	if track == models.SubOrDubUnknown || track == models.Both {
		track = models.Sub
	}

	group := doc.Find(fmt.Sprintf(`[data-id=%q]`, string(track))).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(serverSelector).Length() > 0
	})
	if group.Length() > 0 {
		return group.First()
	}
	return doc.Selection
}
