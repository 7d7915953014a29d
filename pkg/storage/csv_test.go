package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilescout/pkg/models"
)

func intPtr(n int) *int { return &n }

var scraped = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func sampleProfiles() []models.Profile {
	return []models.Profile{
		{
			ProfileURL:        "https://linkedin.com/in/ana",
			Name:              "Ana Ruiz",
			Headline:          "Workflow automation consultant, Zapier expert",
			Location:          "Madrid, Spain",
			Company:           "Zapier",
			FollowerCount:     intPtr(5000),
			MatchedKeyword:    "workflow automation",
			ConfidenceScore:   0.9,
			CompletenessScore: 1,
			DiscoveredAt:      scraped,
		},
		{
			ProfileURL:        "https://linkedin.com/in/bo",
			Name:              "Bo",
			Headline:          "RPA developer",
			MatchedKeyword:    "RPA",
			ConfidenceScore:   2.0 / 3,
			CompletenessScore: 0.4,
			DiscoveredAt:      scraped,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleProfiles()))

	want := "name,headline,location,profile_url,company,follower_count,keyword_matched,confidence_score,profile_completeness,scraped_date\n" +
		`Ana Ruiz,"Workflow automation consultant, Zapier expert","Madrid, Spain",https://linkedin.com/in/ana,Zapier,5000,workflow automation,0.9000,1.0000,2024-05-01T12:30:00Z` + "\n" +
		"Bo,RPA developer,,https://linkedin.com/in/bo,,,RPA,0.6667,0.4000,2024-05-01T12:30:00Z\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestReadCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleProfiles()))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)

	want := sampleProfiles()
	want[1].ConfidenceScore = 0.6667
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadCSV() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSVTolerantHeader(t *testing.T) {
	input := "\ufeffProfile_URL,name,extra,follower_count,scraped_date\n" +
		"https://linkedin.com/in/cy,Cy,x,2500.0,2024-01-02 03:04:05\n" +
		"https://linkedin.com/in/di,Di,y,,\n"

	got, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "https://linkedin.com/in/cy", got[0].ProfileURL)
	require.NotNil(t, got[0].FollowerCount)
	assert.Equal(t, 2500, *got[0].FollowerCount)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got[0].DiscoveredAt)
	assert.Nil(t, got[1].FollowerCount)
	assert.True(t, got[1].DiscoveredAt.IsZero())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,headline\nAna,x\n"))
	assert.Error(t, err, "missing profile_url column")

	_, err = ReadCSV(strings.NewReader("profile_url,follower_count\nu,many\n"))
	assert.ErrorContains(t, err, "line 2")

	got, err := ReadCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestMergeProfiles(t *testing.T) {
	existing := []models.Profile{
		{ProfileURL: "https://linkedin.com/in/ana", Name: "Ana (old)"},
		{ProfileURL: "", Name: "No URL"},
	}
	fresh := []models.Profile{
		{ProfileURL: "https://LinkedIn.com/in/ana/", Name: "Ana (new)"},
		{ProfileURL: "https://linkedin.com/in/bo", Name: "Bo"},
	}

	merged, dropped := MergeProfiles(existing, fresh)
	assert.Equal(t, 1, dropped)

	names := make([]string, len(merged))
	for i, p := range merged {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Ana (old)", "No URL", "Bo"}, names)
}

func TestManagerProfiles(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	loaded, err := manager.LoadProfiles("missing.csv")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, manager.SaveProfiles("profiles.csv", sampleProfiles()))
	loaded, err = manager.LoadProfiles("profiles.csv")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Ana Ruiz", loaded[0].Name)
}

func TestValidateCSV(t *testing.T) {
	header := strings.Join(Columns, ",") + "\n"

	t.Run("valid", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, sampleProfiles()))

		report, err := ValidateCSV(&buf)
		require.NoError(t, err)
		assert.True(t, report.Valid())
		assert.Equal(t, 2, report.Rows)
		assert.Empty(t, report.Warnings)
	})

	t.Run("missing columns", func(t *testing.T) {
		report, err := ValidateCSV(strings.NewReader("name,profile_url\nAna,u\n"))
		require.NoError(t, err)
		assert.False(t, report.Valid())
		assert.Contains(t, report.MissingColumns, "headline")
		assert.NotContains(t, report.MissingColumns, "name")
	})

	t.Run("low fill rate", func(t *testing.T) {
		rows := header
		for i := 0; i < 9; i++ {
			rows += "Ana,h,l,https://linkedin.com/in/a,c,1000,k,0.5,0.6,2024-05-01T12:30:00Z\n"
		}
		rows += ",h,l,,c,1000,k,0.5,0.6,2024-05-01T12:30:00Z\n"

		// 9 of 10 filled is exactly the limit
		report, err := ValidateCSV(strings.NewReader(rows))
		require.NoError(t, err)
		assert.Empty(t, report.Warnings)

		rows += ",h,l,,c,1000,k,0.5,0.6,2024-05-01T12:30:00Z\n"
		report, err = ValidateCSV(strings.NewReader(rows))
		require.NoError(t, err)
		assert.Equal(t, 11, report.Rows)
		assert.Equal(t, 9, report.NamesPresent)
		assert.Len(t, report.Warnings, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ValidateCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}
