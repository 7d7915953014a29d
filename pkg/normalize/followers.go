package normalize

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// a number, optionally abbreviated, right before a follower-like noun
	followerContextPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k|thousand|m|million)?\+?\s*(?:followers?|connections?|members?)\b`)
	// any number, optionally abbreviated
	numberPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k|thousand|m|million)?(?:\b|\+|$)`)
)

// ParseFollowerCount extracts a follower count from free text such as "5k",
// "2,500 followers", "1.2K", "3 thousand" or "500+ connections". A number next to
// followers/connections/members wins over any other number in the text. Counts too
// large for an int saturate at math.MaxInt. ok is false when no count can be read.
func ParseFollowerCount(text string) (count int, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	m := followerContextPattern.FindStringSubmatch(text)
	if m == nil {
		m = numberPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}

	// ErrRange still yields +Inf or 0, both usable below
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		value *= 1_000
	case "m", "million":
		value *= 1_000_000
	}

	value = math.Round(value)
	if value >= float64(math.MaxInt) {
		return math.MaxInt, true
	}
	return int(value), true
}
