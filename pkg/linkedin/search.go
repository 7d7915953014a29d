package linkedin

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"profilescout/pkg/models"
)

const (
	// BaseURL is the origin that relative result links are resolved against
	BaseURL = "https://www.linkedin.com"

	searchPath = "/search/results/people/"

	// CompanyPrefix turns a company name into a current-employer search
	CompanyPrefix = "current company:"
)

var profilePattern = regexp.MustCompile(`(?i)linkedin\.com/(in|pub)/[^/?#]+`)

// SearchTerm returns the text typed into the search box for q
func SearchTerm(q models.Query) string {
	if q.Source == models.SourceCompany {
		return CompanyPrefix + q.Term
	}
	return q.Term
}

// SearchURL returns the people-search address of term. Pages start at 1.
func SearchURL(term string, page int) string {
	if page < 1 {
		page = 1
	}
	keywords := strings.ReplaceAll(url.QueryEscape(term), "+", "%20")
	return BaseURL + searchPath + "?keywords=" + keywords +
		"&origin=GLOBAL_SEARCH_HEADER&page=" + strconv.Itoa(page)
}

// IsProfileURL reports whether u points at a member profile
func IsProfileURL(u string) bool {
	return profilePattern.MatchString(u)
}

// ResolveProfileURL makes href absolute against BaseURL and returns "" unless the
// result is a member profile
func ResolveProfileURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base, _ := url.Parse(BaseURL)
	abs := base.ResolveReference(ref).String()
	if !IsProfileURL(abs) {
		return ""
	}
	return abs
}
