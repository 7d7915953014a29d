package linkedin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilescout/pkg/auth"
	"profilescout/pkg/config"
)

func TestNewBrowserFetcherRequiresSession(t *testing.T) {
	_, err := NewBrowserFetcher(config.BrowserConfig{}, nil, nil)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = NewBrowserFetcher(config.BrowserConfig{}, &auth.Account{Name: "work"}, nil)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	f, err := NewBrowserFetcher(config.BrowserConfig{}, &auth.Account{Name: "work", LiAt: "AQ"}, nil)
	require.NoError(t, err)
	assert.NoError(t, f.Close(), "closing a fetcher that never started")
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.BrowserConfig{Headless: true, UserAgent: "ConfigAgent", ExecPath: "/usr/bin/chromium"}

	base := len(allocatorOptions(config.BrowserConfig{}, nil))
	assert.Equal(t, base+2, len(allocatorOptions(cfg, nil)), "user agent and exec path")
	assert.Equal(t, base+2, len(allocatorOptions(cfg, &auth.Account{UserAgent: "AccountAgent"})))
}
