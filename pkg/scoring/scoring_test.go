package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"profilescout/pkg/models"
)

func intp(v int) *int { return &v }

func newEngine() *Engine {
	return New(Config{
		Weights:      DefaultWeights(),
		Keywords:     []string{"automation specialist", "RPA", "Make.com", "no-code automation"},
		Companies:    []string{"Zapier", "Make.com"},
		MinFollowers: 1000,
		MaxFollowers: 10000,
	})
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name    string
		profile models.Profile
		want    float64
	}{
		{"empty", models.Profile{}, 0},
		{"name only", models.Profile{Name: "Jane"}, 0.2},
		{"whitespace does not count", models.Profile{Name: "Jane", Headline: "  "}, 0.2},
		{"followers count as a field", models.Profile{Name: "Jane", FollowerCount: intp(0)}, 0.4},
		{"all present", models.Profile{Name: "Jane", Headline: "h", Location: "l", Company: "c", FollowerCount: intp(5000)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Completeness(&tt.profile), 1e-9)
		})
	}
}

func TestKeywordSignal(t *testing.T) {
	e := newEngine()

	assert.Equal(t, 1.0, e.KeywordSignal("Senior Automation Specialist | Zapier Expert"))
	assert.Equal(t, 1.0, e.KeywordSignal("RPA developer"))
	assert.Equal(t, 1.0, e.KeywordSignal("Building with Make.com and n8n"))
	assert.Equal(t, 1.0, e.KeywordSignal("No-code automation for SMBs"))
	assert.Equal(t, 0.5, e.KeywordSignal("Marketing automation lead"))
	assert.Equal(t, 0.0, e.KeywordSignal("Pastry chef"))
	assert.Equal(t, 0.0, e.KeywordSignal(""))
	// "rpa" must match as a word, not inside another word
	assert.Equal(t, 0.0, e.KeywordSignal("Sherpa guide"))
}

func TestCentralitySignal(t *testing.T) {
	e := newEngine()

	assert.InDelta(t, 1.0, e.CentralitySignal(intp(5500)), 1e-9)
	assert.InDelta(t, 0.0, e.CentralitySignal(intp(1000)), 1e-9)
	assert.InDelta(t, 0.0, e.CentralitySignal(intp(10000)), 1e-9)
	assert.InDelta(t, 1-500.0/4500, e.CentralitySignal(intp(5000)), 1e-9)
	assert.Greater(t, e.CentralitySignal(intp(5000)), e.CentralitySignal(intp(2500)))
	assert.Equal(t, 0.0, e.CentralitySignal(nil))
	assert.Equal(t, 0.0, e.CentralitySignal(intp(50000)))

	point := New(Config{MinFollowers: 3000, MaxFollowers: 3000})
	assert.Equal(t, 1.0, point.CentralitySignal(intp(3000)))
}

func TestCompanySignal(t *testing.T) {
	e := newEngine()

	assert.Equal(t, 1.0, e.CompanySignal("Zapier"))
	assert.Equal(t, 1.0, e.CompanySignal("zapier inc."))
	assert.Equal(t, 1.0, e.CompanySignal("MAKE.COM"))
	assert.Equal(t, 0.0, e.CompanySignal("Acme"))
	assert.Equal(t, 0.0, e.CompanySignal(""))
}

func TestConfidenceIsDeterministicAndBounded(t *testing.T) {
	e := newEngine()
	profiles := []models.Profile{
		{},
		{Headline: "automation specialist", Company: "Zapier", FollowerCount: intp(5500)},
		{Headline: "RPA", FollowerCount: intp(1000)},
		{Headline: "chef", Company: "Acme", FollowerCount: intp(9999)},
	}

	for _, p := range profiles {
		c1, k1 := e.Score(&p)
		c2, k2 := e.Score(&p)
		assert.Equal(t, c1, c2)
		assert.Equal(t, k1, k2)
		assert.GreaterOrEqual(t, c1, 0.0)
		assert.LessOrEqual(t, c1, 1.0)
		assert.GreaterOrEqual(t, k1, 0.0)
		assert.LessOrEqual(t, k1, 1.0)
	}
}

func TestConfidenceIsMonotone(t *testing.T) {
	e := newEngine()

	base := models.Profile{Headline: "Consultant", Company: "Acme", FollowerCount: intp(2000)}
	withKeyword := base
	withKeyword.Headline = "Automation specialist consultant"
	withCompany := withKeyword
	withCompany.Company = "Zapier"
	moreCentral := withCompany
	moreCentral.FollowerCount = intp(5000)

	c0 := e.Confidence(&base)
	c1 := e.Confidence(&withKeyword)
	c2 := e.Confidence(&withCompany)
	c3 := e.Confidence(&moreCentral)

	assert.Less(t, c0, c1)
	assert.Less(t, c1, c2)
	assert.Less(t, c2, c3)
}

func TestConfidenceClamped(t *testing.T) {
	e := New(Config{
		Weights:      Weights{Base: 0.9, Keyword: 1, Centrality: 1, Company: 1},
		Keywords:     []string{"RPA"},
		Companies:    []string{"Zapier"},
		MinFollowers: 0,
		MaxFollowers: 100,
	})
	p := models.Profile{Headline: "RPA", Company: "Zapier", FollowerCount: intp(50)}
	assert.Equal(t, 1.0, e.Confidence(&p))

	negative := New(Config{Weights: Weights{Base: -3}})
	assert.Equal(t, 0.0, negative.Confidence(&models.Profile{}))
}

func TestApply(t *testing.T) {
	e := newEngine()
	p := &models.Profile{Name: "Jane", Headline: "Automation Specialist", Company: "Zapier", FollowerCount: intp(5500)}
	e.Apply(p)

	assert.InDelta(t, 1.0, p.ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.8, p.CompletenessScore, 1e-9)
}
