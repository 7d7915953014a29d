package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"profilescout/internal/server"
	"profilescout/pkg/config"
	"profilescout/pkg/discovery"
	"profilescout/pkg/logger"
	"profilescout/pkg/ui"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery job API",
	Long: `Start an HTTP server that runs discovery jobs on request.

Endpoints:
  POST /api/jobs            start a run (optional JSON body with keywords, companies)
  GET  /api/jobs/status     progress and counters of the current or last run
  POST /api/jobs/stop       cancel the current run
  GET  /api/results.csv     accepted profiles of the last run
  GET  /api/summary.txt     summary report of the last run
  GET  /healthz             store connectivity
  GET  /metrics             Prometheus metrics

Only one run executes at a time.`,
	Example: `  profilescout serve --addr :9090`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default :8080)")
	f.StringP("account", "a", "", "use a specific stored account")
	f.String("fixtures", "", "read result pages from a fixture file instead of the browser")
	f.StringP("output", "o", "", "output directory")
	f.Int("max-requests", 0, "page requests allowed per run")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		ui.PrintError("Failed to open stores", err.Error())
		return err
	}
	defer sess.Close()

	opts := []server.Option{
		server.WithMetricsHandler(sess.metrics.Handler()),
		server.WithOnFinished(func(res *discovery.Result) {
			if err := sess.save(context.Background(), res); err != nil {
				log.WithError(err).Error("Failed to write results")
			}
		}),
	}
	if sess.seen != nil {
		opts = append(opts, server.WithHealthCheck("redis", sess.seen))
	}
	if sess.db != nil {
		opts = append(opts, server.WithHealthCheck("postgres", sess.db))
	}

	srv := server.New(cfg.Server.Addr, newLauncher(sess), log, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	ui.PrintInfo("Job API", cfg.Server.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.LogComponentStop("server", "signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLauncher builds one runner per job with its own pacer and fetcher. Keywords and
// companies of the request replace the configured ones when given.
func newLauncher(sess *session) server.Launcher {
	return func(req server.StartRequest) (server.Job, func(), error) {
		cfg := *sess.cfg
		if len(req.Keywords) > 0 {
			cfg.Search.Keywords = req.Keywords
		}
		if req.Companies != nil {
			cfg.Search.Companies = req.Companies
		}

		ctx := context.Background()
		opts, err := sess.runnerOptions(ctx)
		if err != nil {
			return nil, nil, err
		}
		pageFetcher, err := newFetcher(ctx, &cfg, sess.log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := pageFetcher.Close(); err != nil {
				sess.log.WithError(err).Warn("Failed to close browser")
			}
		}

		runner := discovery.New(discovery.ConfigFrom(&cfg), pageFetcher, sess.newPacer(nil), opts...)
		return runner, cleanup, nil
	}
}
