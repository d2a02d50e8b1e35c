package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/kaistream/internal/models"
)

// cardFields is the selector table shared by every listing page that renders anime cards
var cardFields = struct {
	title, link, image, format, year, sub, dub, episodes selectorChain
}{
	title:    selectorChain{".title", ".name", ".anime-title"},
	link:     selectorChain{"a"},
	image:    selectorChain{"img"},
	format:   selectorChain{".type", ".format", ".info .fdi-type"},
	year:     selectorChain{".year", ".release"},
	sub:      selectorChain{".sub", ".subtitle"},
	dub:      selectorChain{".dub", ".dubbed"},
	episodes: selectorChain{".eps", ".ep-count", ".total"},
}

const (
	cardSelector      = ".aitem, .item, .anime-item"
	currentPageMarker = ".pagination .current, .pagination .active, .pagination .selected, nav .current, nav .active, nav .selected"
	nextPageMarker    = ".next, [rel=\"next\"]"
)

var spotlightFields = struct {
	title, link, image, description, genres selectorChain
}{
	title:       selectorChain{".title", ".name"},
	link:        selectorChain{"a"},
	image:       selectorChain{"img"},
	description: selectorChain{".desc", ".description"},
	genres:      selectorChain{".genres", ".genre"},
}

const (
	spotlightSelector = ".swiper-slide, .spotlight-item, .featured-item"
	genreSelector     = "#menu ul.c4 li a, .genre-list a"
)

// catalogParser turns a listing page into a SearchPage
type catalogParser struct {
	baseURL string
}

func (p catalogParser) Parse(doc *goquery.Document) *models.SearchPage {
	results := []models.CatalogEntry{}
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		if entry, ok := parseCard(p.baseURL, card); ok {
			results = append(results, entry)
		}
	})

	if len(results) == 0 {
		return models.EmptySearchPage()
	}

	page := &models.SearchPage{CurrentPage: 1, Results: results}
	doc.Find(currentPageMarker).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n := parseCount(s.Text()); n > 0 {
			page.CurrentPage = n
			return false
		}
		return true
	})
	page.HasNextPage = doc.Find(nextPageMarker).Length() > 0
	return page
}

// parseCard reads one anime card; cards without an id or title are skipped
func parseCard(baseURL string, card *goquery.Selection) (models.CatalogEntry, bool) {
	href := firstAttr(card, "href")
	if href == "" {
		href = cardFields.link.attr(card, "href")
	}

	entry := models.CatalogEntry{
		ID:            idFromHref(href),
		Title:         cardFields.title.text(card),
		JapaneseTitle: cardFields.title.attr(card, "data-jp"),
		Image:         cardFields.image.attr(card, "src", "data-src"),
		Format:        models.MediaFormat(strings.ToUpper(cardFields.format.text(card))),
		Year:          cardFields.year.text(card),
		SubCount:      cardFields.sub.count(card),
		DubCount:      cardFields.dub.count(card),
		EpisodeCount:  cardFields.episodes.count(card),
		Genres:        []string{},
	}
	if entry.ID == "" || entry.Title == "" {
		return models.CatalogEntry{}, false
	}
	entry.URL = resolveURL(baseURL, href)
	return entry, true
}

// spotlightParser reads the featured carousel of the home page
type spotlightParser struct {
	baseURL string
}

func (p spotlightParser) Parse(doc *goquery.Document) []models.CatalogEntry {
	results := []models.CatalogEntry{}
	seen := map[string]bool{}

	doc.Find(spotlightSelector).Each(func(_ int, slide *goquery.Selection) {
		href := spotlightFields.link.attr(slide, "href")
		id := watchID(href)
		if id == "" {
			id = idFromHref(href)
		}
		title := spotlightFields.title.text(slide)
		if id == "" || title == "" || seen[id] {
			return
		}
		seen[id] = true

		banner := backgroundImage(slide.AttrOr("style", ""))
		if banner == "" {
			banner = backgroundImage(slide.Find("[style*='background-image']").First().AttrOr("style", ""))
		}

		results = append(results, models.CatalogEntry{
			ID:            id,
			Title:         title,
			JapaneseTitle: spotlightFields.title.attr(slide, "data-jp"),
			URL:           p.baseURL + "/watch/" + id,
			Image:         spotlightFields.image.attr(slide, "src", "data-src"),
			Banner:        banner,
			Description:   spotlightFields.description.text(slide),
			Genres:        splitList(spotlightFields.genres.text(slide)),
		})
	})
	return results
}

// parseGenres collects the lower-cased genre names linked from the home page menu
func parseGenres(doc *goquery.Document) []string {
	genres := []string{}
	seen := map[string]bool{}
	doc.Find(genreSelector).Each(func(_ int, s *goquery.Selection) {
		genre := strings.ToLower(cleanText(s.Text()))
		if genre == "" || seen[genre] {
			return
		}
		seen[genre] = true
		genres = append(genres, genre)
	})
	return genres
}
