package linkedin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"profilescout/pkg/models"
)

func TestSearchURL(t *testing.T) {
	tests := []struct {
		term string
		page int
		want string
	}{
		{"RPA", 1, "https://www.linkedin.com/search/results/people/?keywords=RPA&origin=GLOBAL_SEARCH_HEADER&page=1"},
		{"AI agent", 2, "https://www.linkedin.com/search/results/people/?keywords=AI%20agent&origin=GLOBAL_SEARCH_HEADER&page=2"},
		{"current company:Make.com", 0, "https://www.linkedin.com/search/results/people/?keywords=current%20company%3AMake.com&origin=GLOBAL_SEARCH_HEADER&page=1"},
		{"R&D automation", 1, "https://www.linkedin.com/search/results/people/?keywords=R%26D%20automation&origin=GLOBAL_SEARCH_HEADER&page=1"},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchURL(tt.term, tt.page))
		})
	}
}

func TestSearchTerm(t *testing.T) {
	assert.Equal(t, "RPA", SearchTerm(models.Query{Term: "RPA", Source: models.SourceKeyword}))
	assert.Equal(t, "current company:UiPath", SearchTerm(models.Query{Term: "UiPath", Source: models.SourceCompany}))
}

func TestIsProfileURL(t *testing.T) {
	valid := []string{
		"https://www.linkedin.com/in/jane-doe",
		"linkedin.com/pub/john-smith/1/2/3",
		"https://de.linkedin.com/in/max?trk=x",
	}
	invalid := []string{
		"",
		"https://www.linkedin.com/company/acme",
		"https://example.com/in/jane",
		"https://www.linkedin.com/in/",
	}

	for _, u := range valid {
		assert.True(t, IsProfileURL(u), u)
	}
	for _, u := range invalid {
		assert.False(t, IsProfileURL(u), u)
	}
}

func TestResolveProfileURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/max/", ResolveProfileURL("/in/max/"))
	assert.Equal(t, "https://www.linkedin.com/in/jane?x=1", ResolveProfileURL(" https://www.linkedin.com/in/jane?x=1 "))
	assert.Equal(t, "", ResolveProfileURL("/company/acme"))
	assert.Equal(t, "", ResolveProfileURL(""))
}

func TestOnWall(t *testing.T) {
	assert.True(t, onWall("https://www.linkedin.com/authwall?trk=foo"))
	assert.True(t, onWall("https://www.linkedin.com/checkpoint/challenge/AgF"))
	assert.True(t, onWall("https://www.linkedin.com/login?session_redirect=x"))
	assert.False(t, onWall("https://www.linkedin.com/search/results/people/?keywords=RPA"))
}
