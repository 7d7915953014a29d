package normalize

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"profilescout/pkg/errors"
	"profilescout/pkg/models"
)

var (
	fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	query    = models.Query{Term: "automation specialist", Source: models.SourceKeyword}
)

func newNormalizer(allowUnknown bool) *Normalizer {
	return New(Config{MinFollowers: 1000, MaxFollowers: 10000, AllowUnknown: allowUnknown}, func() time.Time { return fixedNow })
}

func TestParseFollowerCount(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"5k", 5000, true},
		{"50k", 50000, true},
		{"2,500", 2500, true},
		{"50K followers", 50000, true},
		{"1.2k followers", 1200, true},
		{"3 thousand", 3000, true},
		{"1.5m", 1500000, true},
		{"10,000+ connections", 10000, true},
		{"500+ connections", 500, true},
		{"1,234,567 members", 1234567, true},
		{"Top 3 voice · 4,200 followers", 4200, true},
		{"7", 7, true},
		{"5,000,000,000 followers", 5_000_000_000, true},
		{"3000m followers", 3_000_000_000, true},
		{"1" + strings.Repeat("0", 400) + " followers", math.MaxInt, true},
		{"", 0, false},
		{"followers hidden", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseFollowerCount(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeFollowerScenario(t *testing.T) {
	n := newNormalizer(false)

	var accepted []int
	rejected := 0
	for i, text := range []string{"5k", "50k", "2,500"} {
		raw := models.RawRecord{
			models.FieldURL:          "https://www.linkedin.com/in/person-" + string(rune('a'+i)),
			models.FieldFollowerText: text,
		}
		p, err := n.Normalize(raw, query)
		if err != nil {
			assert.ErrorIs(t, err, errors.ErrFollowerOutOfRange)
			rejected++
			continue
		}
		accepted = append(accepted, *p.FollowerCount)
	}

	assert.Equal(t, []int{5000, 2500}, accepted)
	assert.Equal(t, 1, rejected)
}

func TestNormalizeRejectsOutOfRange(t *testing.T) {
	n := newNormalizer(true)
	for _, text := range []string{"999", "10,001", "12k", "0 followers",
		"5,000,000,000 followers", "3000m followers", "1" + strings.Repeat("0", 400) + " followers"} {
		_, err := n.Normalize(models.RawRecord{models.FieldURL: "linkedin.com/in/x", models.FieldFollowerText: text}, query)
		assert.ErrorIs(t, err, errors.ErrFollowerOutOfRange, text)
	}

	for _, text := range []string{"1000", "10,000", "10k"} {
		_, err := n.Normalize(models.RawRecord{models.FieldURL: "linkedin.com/in/x", models.FieldFollowerText: text}, query)
		assert.NoError(t, err, "bounds are inclusive: %s", text)
	}
}

func TestNormalizeMissingIdentity(t *testing.T) {
	n := newNormalizer(true)

	for _, raw := range []models.RawRecord{
		{models.FieldName: "No URL", models.FieldFollowerText: "5k"},
		{models.FieldURL: "   ", models.FieldFollowerText: "5k"},
		{},
	} {
		p, err := n.Normalize(raw, query)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, errors.ErrMissingIdentity)
	}
}

func TestNormalizeIdentityCheckedBeforeFollowers(t *testing.T) {
	_, err := newNormalizer(false).Normalize(models.RawRecord{models.FieldFollowerText: "90k"}, query)
	assert.ErrorIs(t, err, errors.ErrMissingIdentity)
}

func TestNormalizeUnknownFollowers(t *testing.T) {
	raw := models.RawRecord{models.FieldURL: "https://www.linkedin.com/in/quiet", models.FieldFollowerText: "hidden"}

	_, err := newNormalizer(false).Normalize(raw, query)
	assert.ErrorIs(t, err, errors.ErrFollowerOutOfRange)

	p, err := newNormalizer(true).Normalize(raw, query)
	require.NoError(t, err)
	assert.Nil(t, p.FollowerCount)
}

func TestNormalizeStampsAndCleans(t *testing.T) {
	raw := models.RawRecord{
		models.FieldURL:          "https://www.LinkedIn.com/in/Jane-Doe/?trk=people",
		models.FieldName:         "  Jane \n Doe ",
		models.FieldHeadline:     "Automation   Specialist at Zapier",
		models.FieldLocation:     "Berlin,\tGermany",
		models.FieldCompany:      "Zapier",
		models.FieldFollowerText: "2,500 followers",
		"unexpected":             "ignored",
	}

	p, err := newNormalizer(false).Normalize(raw, query)
	require.NoError(t, err)

	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", p.ProfileURL)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "Automation Specialist at Zapier", p.Headline)
	assert.Equal(t, "Berlin, Germany", p.Location)
	assert.Equal(t, "Zapier", p.Company)
	assert.Equal(t, 2500, *p.FollowerCount)
	assert.Equal(t, "automation specialist", p.MatchedKeyword)
	assert.Equal(t, fixedNow, p.DiscoveredAt)
	assert.Zero(t, p.ConfidenceScore)
}
