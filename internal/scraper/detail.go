package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/kaistream/internal/models"
)

var detailFields = struct {
	title, image, description, info, sub, dub, aniID, metaRows selectorChain
	recommendations, relations                                 selectorChain
}{
	title:           selectorChain{".entity-scroll > .title", ".anime-title"},
	image:           selectorChain{".poster img", ".anime-image img"},
	description:     selectorChain{".entity-scroll > .desc", ".anime-description"},
	info:            selectorChain{".entity-scroll > .info", ".anime-info"},
	sub:             selectorChain{".info span.sub", ".anime-info .sub"},
	dub:             selectorChain{".info span.dub", ".anime-info .dub"},
	aniID:           selectorChain{".rate-box#anime-rating", "#anime-rating"},
	metaRows:        selectorChain{".entity-scroll .detail > div", ".anime-detail > div"},
	recommendations: selectorChain{"#recommendations", ".recommendations", ".sidebar-section:not(#related-anime)"},
	relations:       selectorChain{"#related-anime", ".related-anime"},
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// detailPage is the parsed watch page plus the numeric id its episode list is keyed by
type detailPage struct {
	detail *models.AnimeDetail
	aniID  string
}

// detailParser reads an anime's watch page
type detailParser struct {
	baseURL string
}

func (p detailParser) Parse(doc *goquery.Document, id string) detailPage {
	root := doc.Selection

	detail := &models.AnimeDetail{
		CatalogEntry: models.CatalogEntry{
			ID:            id,
			Title:         detailFields.title.text(root),
			JapaneseTitle: detailFields.title.attr(root, "data-jp"),
			URL:           p.baseURL + "/watch/" + id,
			Image:         detailFields.image.attr(root, "src", "data-src"),
			Description:   detailFields.description.text(root),
			Format:        models.MediaFormat(strings.ToUpper(lastInfoChild(root))),
			Genres:        []string{},
		},
		Episodes:        []models.Episode{},
		Recommendations: p.cards(root, detailFields.recommendations, id),
		Relations:       p.relations(root, id),
	}
	detail.SetCounts(detailFields.sub.count(root), detailFields.dub.count(root))
	p.applyMeta(root, detail)

	aniID := detailFields.aniID.attr(root, "data-id")
	if aniID == "" {
		aniID = id
	}
	return detailPage{detail: detail, aniID: aniID}
}

// lastInfoChild returns the text of the last element in the info row, which holds the format
func lastInfoChild(root *goquery.Selection) string {
	for _, sel := range detailFields.info {
		if last := root.Find(sel).First().Children().Last(); last.Length() > 0 {
			if text := cleanText(last.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// applyMeta reads the "Label: value" rows of the detail block
func (p detailParser) applyMeta(root *goquery.Selection, detail *models.AnimeDetail) {
	for _, sel := range detailFields.metaRows {
		rows := root.Find(sel)
		if rows.Length() == 0 {
			continue
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			label, value, ok := strings.Cut(cleanText(row.Text()), ":")
			if !ok {
				return
			}
			value = strings.TrimSpace(value)

			switch strings.ToLower(strings.TrimSpace(label)) {
			case "genres", "genre":
				links := row.Find("a")
				if links.Length() > 0 {
					links.Each(func(_ int, a *goquery.Selection) {
						if g := cleanText(a.Text()); g != "" {
							detail.Genres = append(detail.Genres, g)
						}
					})
				} else {
					detail.Genres = splitList(value)
				}
			case "status":
				detail.Status = parseStatus(value)
			case "premiered", "season":
				detail.Season = value
			case "date aired", "aired":
				if y := yearPattern.FindString(value); y != "" {
					detail.Year = y
				}
			case "episodes":
				detail.TotalEpisodes = parseCount(value)
			}
		})
		return
	}
}

func parseStatus(s string) models.MediaStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "releasing", "currently airing", "ongoing", "airing":
		return models.StatusOngoing
	case "completed", "finished airing", "finished":
		return models.StatusCompleted
	case "not yet aired", "upcoming", "not yet released":
		return models.StatusNotYetAired
	default:
		return models.StatusUnknown
	}
}

// cards parses the anime cards inside the first matching sidebar section, excluding self
func (p detailParser) cards(root *goquery.Selection, sections selectorChain, self string) []models.CatalogEntry {
	out := []models.CatalogEntry{}
	for _, sel := range sections {
		section := root.Find(sel).First()
		if section.Length() == 0 {
			continue
		}
		section.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
			if entry, ok := parseCard(p.baseURL, card); ok && entry.ID != self {
				out = append(out, entry)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return out
}

// relations parses the related-anime section; the relation kind is the card's trailing info label
func (p detailParser) relations(root *goquery.Selection, self string) []models.Relation {
	out := []models.Relation{}
	for _, sel := range detailFields.relations {
		section := root.Find(sel).First()
		if section.Length() == 0 {
			continue
		}
		section.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
			entry, ok := parseCard(p.baseURL, card)
			if !ok || entry.ID == self {
				return
			}
			kind := cleanText(card.Find(".relation, .rel-type").First().Text())
			if kind == "" {
				kind = cleanText(card.Find(".info > b, .info > span").Last().Text())
			}
			out = append(out, models.Relation{CatalogEntry: entry, Kind: kind})
		})
		if len(out) > 0 {
			return out
		}
	}
	return out
}
