package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"profilescout/internal/server"
	"profilescout/pkg/auth"
	"profilescout/pkg/config"
	"profilescout/pkg/logger"
	"profilescout/pkg/storage"
)

const fixturePath = "../../pkg/linkedin/testdata/fixtures.yaml"

func TestChangedFlagsOnlyReportsSetFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "discover"}
	f := cmd.Flags()
	f.StringSliceP("keywords", "k", nil, "")
	f.Int("max-followers", 0, "")
	f.Bool("headless", true, "")
	f.Duration("base-delay", 0, "")
	f.Float64("min-confidence", 0, "")
	f.String("output", "", "")

	require.NoError(t, cmd.ParseFlags([]string{"-k", "RPA", "-k", "Zapier", "--headless=false", "--base-delay", "2s", "--min-confidence", "0.7"}))

	flags := changedFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"keywords":       []string{"RPA", "Zapier"},
		"headless":       false,
		"base-delay":     2 * time.Second,
		"min-confidence": 0.7,
	}, flags)

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, []string{"RPA", "Zapier"}, cfg.Search.Keywords)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2*time.Second, cfg.Pacing.BaseDelay)
	assert.Equal(t, 10000, cfg.Followers.Max)
}

func TestConfigWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Empty(t, configWarnings(cfg))

	cfg.Pacing.MaxRequestsPerRun = 5
	cfg.Pacing.BaseDelay = time.Second
	cfg.Followers.AllowUnknown = true
	cfg.Quality.MinCompleteness = 0.9
	warnings := configWarnings(cfg)
	assert.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "only 5 requests allowed")

	cfg.Browser.Fixtures = "fixtures.yaml"
	assert.Len(t, configWarnings(cfg), 2)
}

func TestSanitizedConfigMasksSecrets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.RedisPassword = "hunter2"
	cfg.Storage.PostgresDSN = "postgres://scout:s3cret@db:5432/profiles?sslmode=disable"

	shown := sanitizedConfig(cfg)
	assert.Equal(t, "***", shown.Storage.RedisPassword)
	assert.NotContains(t, shown.Storage.PostgresDSN, "s3cret")
	assert.Contains(t, shown.Storage.PostgresDSN, "scout")
	assert.Equal(t, "hunter2", cfg.Storage.RedisPassword, "original untouched")

	assert.Equal(t, "***", maskDSN("host=db password=s3cret"))
}

func TestValidateLiAt(t *testing.T) {
	assert.NoError(t, validateLiAt("AQEDAR1234567890abcdefghij"))
	assert.Error(t, validateLiAt(""))
	assert.Error(t, validateLiAt("short"))
	assert.Error(t, validateLiAt("li_at=AQEDAR1234567890abcdef; path=/"))
}

func TestMakeDefault(t *testing.T) {
	manager, _ := auth.NewMockManager()
	require.NoError(t, manager.Store(&auth.Account{Name: "work", LiAt: "AQEDAR-work-0000000000"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, manager.Store(&auth.Account{Name: "side", LiAt: "AQEDAR-side-0000000000"}))

	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "side", account.Name)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, makeDefault(manager, "work"))
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "work", account.Name)

	assert.Error(t, makeDefault(manager, "missing"))
}

func TestPrintValidation(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, storage.WriteCSV(&out, nil))
	header := out.String()

	var report bytes.Buffer
	body := header + "Jane Doe,RPA lead,Berlin,https://www.linkedin.com/in/jane,Acme,2500,RPA,0.8,1,2026-10-19\n"
	assert.NoError(t, printValidation(&report, strings.NewReader(body)))
	assert.Contains(t, report.String(), "Rows: 1")

	report.Reset()
	err := printValidation(&report, strings.NewReader("name,headline\nJane,RPA lead\n"))
	assert.ErrorContains(t, err, "profile_url")
}

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Search.Keywords = []string{"RPA", "Zapier"}
	cfg.Search.Companies = []string{"UiPath"}
	cfg.Pacing.BaseDelay = 0
	cfg.Pacing.Jitter = 0
	cfg.Browser.Fixtures = fixturePath
	cfg.Output.Directory = t.TempDir()
	cfg.Output.Checkpoint = false
	return cfg
}

func TestDiscoverWithFixturesWritesOutputs(t *testing.T) {
	cfg := fixtureConfig(t)
	ctx := context.Background()
	log := logger.NewNopLogger()

	sess, err := openSession(ctx, cfg, log)
	require.NoError(t, err)
	defer sess.Close()

	launch := newLauncher(sess)
	job, cleanup, err := launch(server.StartRequest{})
	require.NoError(t, err)
	defer cleanup()

	res, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.QueriesPlanned)
	assert.Equal(t, 1, res.Summary.QueriesSkipped)
	assert.Len(t, res.Profiles, res.Summary.Accepted)

	require.NoError(t, sess.save(ctx, res))
	f, err := os.Open(cfg.CSVPath())
	require.NoError(t, err)
	defer f.Close()
	report, err := storage.ValidateCSV(f)
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Equal(t, res.Summary.Accepted, report.Rows)

	summary, err := os.ReadFile(filepath.Join(cfg.Output.Directory, cfg.Output.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "LinkedIn Scraping Summary Report")

	// The written CSV seeds the next run
	known, err := sess.knownProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, known, res.Summary.Accepted)
}

func TestLauncherNarrowsSearch(t *testing.T) {
	cfg := fixtureConfig(t)
	sess, err := openSession(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer sess.Close()

	job, cleanup, err := newLauncher(sess)(server.StartRequest{Keywords: []string{"RPA"}, Companies: []string{}})
	require.NoError(t, err)
	defer cleanup()

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.QueriesPlanned)
	assert.Equal(t, []string{"RPA", "Zapier"}, sess.cfg.Search.Keywords, "session config untouched")
}
