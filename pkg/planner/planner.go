// Package planner turns the configured keywords and target companies into the
// ordered list of search queries for one run.
package planner

import (
	"strings"

	"profilescout/pkg/models"
)

// Plan returns one keyword query per keyword followed by one company query per company,
// in declaration order. Blank terms are skipped and a term repeated within the same
// source is planned once. Empty input yields an empty plan.
func Plan(keywords, companies []string) []models.Query {
	plan := make([]models.Query, 0, len(keywords)+len(companies))
	plan = appendSource(plan, keywords, models.SourceKeyword)
	plan = appendSource(plan, companies, models.SourceCompany)
	return plan
}

func appendSource(plan []models.Query, terms []string, source models.QuerySource) []models.Query {
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		plan = append(plan, models.Query{Term: term, Source: source})
	}
	return plan
}
