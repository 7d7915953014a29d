// Package normalize maps raw search results onto the canonical Profile shape.
package normalize

import (
	"strings"
	"time"

	"profilescout/pkg/dedup"
	"profilescout/pkg/errors"
	"profilescout/pkg/models"
)

// Config holds the follower band applied during normalization
type Config struct {
	MinFollowers int
	MaxFollowers int
	// AllowUnknown keeps profiles whose follower count cannot be read
	AllowUnknown bool
}

// Normalizer turns RawRecords into Profiles. It holds no mutable state.
type Normalizer struct {
	cfg Config
	now func() time.Time
}

// New creates a Normalizer. now stamps discovered_at; nil means time.Now.
func New(cfg Config, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{cfg: cfg, now: now}
}

// Normalize applies, in order: identity extraction, follower parsing, the follower
// band filter, then stamps the matched query and discovery time. Rejections are
// *errors.Error values of type MissingIdentity or FollowerOutOfRange.
func (n *Normalizer) Normalize(raw models.RawRecord, q models.Query) (*models.Profile, error) {
	identity, ok := dedup.Key(raw[models.FieldURL])
	if !ok {
		return nil, errors.New(errors.ErrorTypeMissingIdentity, "no usable profile url in %q", raw[models.FieldURL])
	}

	var followers *int
	if count, ok := ParseFollowerCount(raw[models.FieldFollowerText]); ok {
		followers = &count
	}

	switch {
	case followers == nil && !n.cfg.AllowUnknown:
		return nil, errors.New(errors.ErrorTypeFollowerOutOfRange, "unknown follower count in %q", raw[models.FieldFollowerText])
	case followers != nil && (*followers < n.cfg.MinFollowers || *followers > n.cfg.MaxFollowers):
		return nil, errors.New(errors.ErrorTypeFollowerOutOfRange, "follower count %d outside [%d, %d]",
			*followers, n.cfg.MinFollowers, n.cfg.MaxFollowers)
	}

	return &models.Profile{
		ProfileURL:     identity,
		Name:           CleanText(raw[models.FieldName]),
		Headline:       CleanText(raw[models.FieldHeadline]),
		Location:       CleanText(raw[models.FieldLocation]),
		Company:        CleanText(raw[models.FieldCompany]),
		FollowerCount:  followers,
		MatchedKeyword: q.Term,
		DiscoveredAt:   n.now(),
	}, nil
}

// CleanText collapses runs of whitespace and trims the ends
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
