// Package scoring computes the confidence and completeness scores of a profile.
//
// Both scores are pure functions of the profile fields and the engine configuration.
// Confidence is a weighted sum of three signals in [0, 1]:
//
//   - keyword: how much of a vocabulary term appears in the headline
//   - centrality: how close the follower count is to the middle of the band
//   - company: whether the profile company matches a target company
//
// Weights are non-negative, so a stronger signal never lowers the score, and the
// sum is clamped to [0, 1].
package scoring

import (
	"math"
	"strings"
	"unicode"

	"profilescout/pkg/models"
)

// Weights are the confidence weights. Base is added unconditionally.
type Weights struct {
	Base       float64
	Keyword    float64
	Centrality float64
	Company    float64
}

// DefaultWeights returns the weights used when none are configured
func DefaultWeights() Weights {
	return Weights{Base: 0.2, Keyword: 0.4, Centrality: 0.2, Company: 0.2}
}

// Config holds everything the engine scores against
type Config struct {
	Weights      Weights
	Keywords     []string
	Companies    []string
	MinFollowers int
	MaxFollowers int
}

// Engine scores profiles. It is safe for concurrent use.
type Engine struct {
	weights   Weights
	vocab     [][]string
	companies []string
	min, max  int
}

// New prepares an Engine. Negative weights are treated as zero.
func New(cfg Config) *Engine {
	e := &Engine{
		weights: Weights{
			Base:       math.Max(cfg.Weights.Base, 0),
			Keyword:    math.Max(cfg.Weights.Keyword, 0),
			Centrality: math.Max(cfg.Weights.Centrality, 0),
			Company:    math.Max(cfg.Weights.Company, 0),
		},
		min: cfg.MinFollowers,
		max: cfg.MaxFollowers,
	}
	for _, kw := range cfg.Keywords {
		if tokens := tokenize(kw); len(tokens) > 0 {
			e.vocab = append(e.vocab, tokens)
		}
	}
	for _, c := range cfg.Companies {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			e.companies = append(e.companies, c)
		}
	}
	return e
}

// Score returns (confidence, completeness) for p
func (e *Engine) Score(p *models.Profile) (confidence, completeness float64) {
	return e.Confidence(p), Completeness(p)
}

// Apply scores p and stores the result on it
func (e *Engine) Apply(p *models.Profile) {
	p.ConfidenceScore, p.CompletenessScore = e.Score(p)
}

// Confidence combines the keyword, centrality and company signals
func (e *Engine) Confidence(p *models.Profile) float64 {
	sum := e.weights.Base +
		e.weights.Keyword*e.KeywordSignal(p.Headline) +
		e.weights.Centrality*e.CentralitySignal(p.FollowerCount) +
		e.weights.Company*e.CompanySignal(p.Company)
	return clamp01(sum)
}

// KeywordSignal is the best fraction of any vocabulary term's words found in the
// headline. A full phrase match yields 1.
func (e *Engine) KeywordSignal(headline string) float64 {
	words := make(map[string]struct{})
	for _, w := range tokenize(headline) {
		words[w] = struct{}{}
	}
	if len(words) == 0 {
		return 0
	}

	best := 0.0
	for _, term := range e.vocab {
		hits := 0
		for _, tok := range term {
			if _, ok := words[tok]; ok {
				hits++
			}
		}
		if frac := float64(hits) / float64(len(term)); frac > best {
			best = frac
			if best == 1 {
				break
			}
		}
	}
	return best
}

// CentralitySignal is 1 at the middle of the follower band and falls linearly to 0
// at its edges. Unknown counts score 0; a single-point band scores 1 on that point.
func (e *Engine) CentralitySignal(followers *int) float64 {
	if followers == nil {
		return 0
	}
	f := float64(*followers)
	lo, hi := float64(e.min), float64(e.max)
	if f < lo || f > hi {
		return 0
	}
	half := (hi - lo) / 2
	if half == 0 {
		return 1
	}
	mid := lo + half
	return clamp01(1 - math.Abs(f-mid)/half)
}

// CompanySignal is 1 when the company equals or contains a target company
// (case-insensitive), otherwise 0.
func (e *Engine) CompanySignal(company string) float64 {
	c := strings.ToLower(strings.TrimSpace(company))
	if c == "" {
		return 0
	}
	for _, target := range e.companies {
		if c == target || strings.Contains(c, target) {
			return 1
		}
	}
	return 0
}

// Completeness is the fraction of {name, headline, location, company, follower_count}
// that is present, each worth 1/5.
func Completeness(p *models.Profile) float64 {
	present := 0
	for _, field := range []string{p.Name, p.Headline, p.Location, p.Company} {
		if strings.TrimSpace(field) != "" {
			present++
		}
	}
	if p.FollowerCount != nil {
		present++
	}
	return float64(present) / 5
}

// tokenize lower-cases s and splits it on anything other than letters, digits, dots
// and hyphens, so "Make.com" and "no-code" stay single tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
