package main

import (
	"context"
	"fmt"
	"time"

	"profilescout/internal/metrics"
	"profilescout/internal/pgstore"
	"profilescout/internal/seenstore"
	"profilescout/pkg/auth"
	"profilescout/pkg/checkpoint"
	"profilescout/pkg/config"
	"profilescout/pkg/discovery"
	"profilescout/pkg/linkedin"
	"profilescout/pkg/logger"
	"profilescout/pkg/models"
	"profilescout/pkg/pacing"
	"profilescout/pkg/storage"
)

// session holds what every run of this process shares: output directory, optional
// stores and metrics
type session struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
	output  *storage.Manager
	seen    *seenstore.Store
	db      *pgstore.Store
}

// openSession connects the configured stores. A configured store that cannot be
// reached fails the command.
func openSession(ctx context.Context, cfg *config.Config, log logger.Logger) (*session, error) {
	output, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, metrics: metrics.New(), output: output}

	if cfg.Storage.RedisAddr != "" {
		seen := seenstore.New(cfg.Storage, log)
		if err := seen.Ping(ctx); err != nil {
			seen.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Storage.RedisAddr, err)
		}
		s.seen = seen
	}

	if cfg.Storage.PostgresDSN != "" {
		db, err := pgstore.Open(ctx, cfg.Storage, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.db = db
	}

	return s, nil
}

// Close releases the store connections
func (s *session) Close() {
	if s.seen != nil {
		if err := s.seen.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close redis client")
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}

// knownProfiles gathers the identities found by previous runs: the existing CSV and
// both stores
func (s *session) knownProfiles(ctx context.Context) ([]string, error) {
	var urls []string

	if s.cfg.Output.MergeExisting {
		existing, err := s.output.LoadProfiles(s.cfg.Output.CSVFile)
		if err != nil {
			return nil, err
		}
		for _, p := range existing {
			urls = append(urls, p.ProfileURL)
		}
	}

	if s.seen != nil {
		seen, err := s.seen.Seen(ctx)
		if err != nil {
			return nil, err
		}
		urls = append(urls, seen...)
	}

	if s.db != nil {
		stored, err := s.db.ProfileURLs(ctx)
		if err != nil {
			return nil, err
		}
		urls = append(urls, stored...)
	}

	return urls, nil
}

// runnerOptions wires metrics, sinks and the seed into a runner
func (s *session) runnerOptions(ctx context.Context) ([]discovery.Option, error) {
	seed, err := s.knownProfiles(ctx)
	if err != nil {
		return nil, err
	}

	opts := []discovery.Option{
		discovery.WithLogger(s.log),
		discovery.WithMetrics(s.metrics),
		discovery.WithSeed(seed...),
	}
	if s.seen != nil {
		opts = append(opts, discovery.WithSinks(s.seen))
	}
	if s.db != nil {
		opts = append(opts, discovery.WithSinks(s.db))
	}
	return opts, nil
}

// newPacer builds the pacing controller of one run
func (s *session) newPacer(observe func(time.Duration)) *pacing.Controller {
	return pacing.New(pacing.Config{
		BaseDelay:   s.cfg.Pacing.BaseDelay,
		Jitter:      s.cfg.Pacing.Jitter,
		MaxRequests: s.cfg.Pacing.MaxRequestsPerRun,
		MaxPerHour:  s.cfg.Pacing.MaxRequestsPerHour,
	}, pacing.WithWaitObserver(func(d time.Duration) {
		s.metrics.ObservePacingWait(d)
		if observe != nil {
			observe(d)
		}
	}))
}

// checkpointManager returns the checkpoint file of plan, or nil when checkpoints are
// disabled
func (s *session) checkpointManager(plan []models.Query) (*checkpoint.Manager, error) {
	if !s.cfg.Output.Checkpoint {
		return nil, nil
	}
	return checkpoint.NewManager(checkpoint.PlanID(plan))
}

// save writes the result files and records the run in postgres. Existing CSV rows are
// kept ahead of the new ones when merging is enabled.
func (s *session) save(ctx context.Context, res *discovery.Result) error {
	profiles := res.Profiles
	if s.cfg.Output.MergeExisting {
		existing, err := s.output.LoadProfiles(s.cfg.Output.CSVFile)
		if err != nil {
			return err
		}
		var added int
		profiles, added = storage.MergeProfiles(existing, res.Profiles)
		s.log.InfoWithFields("Merged with existing results", map[string]interface{}{
			"existing": len(existing),
			"added":    added,
		})
	}

	if err := s.output.SaveProfiles(s.cfg.Output.CSVFile, profiles); err != nil {
		return err
	}

	generated := time.Now()
	if err := s.output.SaveSummary(s.cfg.Output.SummaryFile, res.Summary, generated); err != nil {
		return err
	}
	if s.cfg.Output.SummaryDOCX != "" {
		if err := s.output.SaveSummaryDOCX(s.cfg.Output.SummaryDOCX, res.Summary, generated); err != nil {
			return err
		}
	}

	if s.db != nil {
		if err := s.db.SaveRun(ctx, checkpoint.PlanID(res.Plan), res.Summary); err != nil {
			s.log.WithError(err).Warn("Failed to record run in postgres")
		}
	}
	return nil
}

// fetcher is a page fetcher that may hold a browser
type fetcher interface {
	discovery.PageFetcher
	Close() error
}

type fixtureFetcher struct{ *linkedin.FixtureFetcher }

func (fixtureFetcher) Close() error { return nil }

// newFetcher returns the recorded fixtures when configured, and the headless browser
// signed in with the resolved LinkedIn session otherwise
func newFetcher(ctx context.Context, cfg *config.Config, log logger.Logger) (fetcher, error) {
	if cfg.Browser.Fixtures != "" {
		f, err := linkedin.LoadFixtures(cfg.Browser.Fixtures, cfg.Browser.MaxResultsPerPage)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Browser.Fixtures).Info("Using recorded result pages")
		return fixtureFetcher{f}, nil
	}

	account, err := resolveAccount(ctx, cfg)
	if err != nil {
		return nil, err
	}
	browser, err := linkedin.NewBrowserFetcher(cfg.Browser, account, log)
	if err != nil {
		return nil, err
	}
	log.WithField("account", account.Name).Info("Using LinkedIn session")
	return browser, nil
}

// resolveAccount picks the session cookies: an explicitly named stored account, the
// cookies of a local browser, then the default stored account
func resolveAccount(ctx context.Context, cfg *config.Config) (*auth.Account, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if cfg.Browser.Account != "" {
		account, err := manager.Retrieve(cfg.Browser.Account)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve account %q: %w", cfg.Browser.Account, err)
		}
		return account, nil
	}

	if cfg.Browser.CookiesFromBrowser {
		account, err := auth.NewBrowserCookieSource().Account(ctx, "browser")
		if err == nil {
			return account, nil
		}
		logger.GetLogger().WithError(err).Warn("No LinkedIn session found in local browsers")
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		return nil, fmt.Errorf("no LinkedIn session available (run 'profilescout auth login'): %w", err)
	}
	return account, nil
}
