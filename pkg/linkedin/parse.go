package linkedin

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"profilescout/pkg/models"
	"profilescout/pkg/normalize"
)

// CSS selectors of a people-search result card
const (
	SelectorResultsContainer = ".search-results-container"
	SelectorResult           = ".entity-result__item"
	selectorName             = ".entity-result__title-text"
	selectorHeadline         = ".entity-result__primary-subtitle"
	selectorLocation         = ".entity-result__secondary-subtitle"
	selectorCompany          = ".entity-result__tertiary-subtitle"
	selectorProfileLink      = "a[href*='/in/'], a[href*='/pub/']"
)

// follower counts appear in any of these, first readable one wins
var followerSelectors = []string{
	".entity-result__secondary-subtitle",
	".entity-result__metadata",
	".search-result__info",
	".entity-result__tertiary-subtitle",
}

// ParseSearchResults reads the result cards of a search page, at most limit of
// them when limit > 0. Cards keep their page order. A card whose link is not a
// member profile gets an empty url so the normalizer counts it as missing identity.
func ParseSearchResults(r io.Reader, limit int) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var records []models.RawRecord
	doc.Find(SelectorResult).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if limit > 0 && len(records) >= limit {
			return false
		}
		records = append(records, parseCard(card))
		return true
	})
	return records, nil
}

func parseCard(card *goquery.Selection) models.RawRecord {
	href, _ := card.Find(selectorProfileLink).First().Attr("href")

	record := models.RawRecord{
		models.FieldName:     visibleText(card.Find(selectorName).First()),
		models.FieldHeadline: text(card.Find(selectorHeadline).First()),
		models.FieldLocation: text(card.Find(selectorLocation).First()),
		models.FieldURL:      ResolveProfileURL(href),
		models.FieldCompany:  strings.TrimPrefix(text(card.Find(selectorCompany).First()), "Current: "),
	}

	for _, sel := range followerSelectors {
		candidate := text(card.Find(sel).First())
		if _, ok := normalize.ParseFollowerCount(candidate); ok && mentionsAudience(candidate) {
			record[models.FieldFollowerText] = candidate
			break
		}
	}
	return record
}

// visibleText prefers the aria-hidden span LinkedIn uses for the rendered name,
// falling back to the full text
func visibleText(s *goquery.Selection) string {
	if hidden := s.Find("span[aria-hidden='true']").First(); hidden.Length() > 0 {
		if t := text(hidden); t != "" {
			return t
		}
	}
	return text(s)
}

func text(s *goquery.Selection) string {
	return normalize.CleanText(s.Text())
}

func mentionsAudience(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "follower") || strings.Contains(lower, "connection") || strings.Contains(lower, "member")
}
