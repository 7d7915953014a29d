package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"profilescout/pkg/config"
	"profilescout/pkg/discovery"
	"profilescout/pkg/logger"
	"profilescout/pkg/planner"
	"profilescout/pkg/ui"
)

var (
	resumeRun    bool
	forceRestart bool
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass over all keywords and companies",
	Long: `Run the query plan against LinkedIn people search and write the accepted
profiles to CSV together with a summary report.

A LinkedIn session is required unless --fixtures points at recorded result
pages. Sessions are resolved from:
  - The stored account named by --account
  - A local browser (browser.cookies_from_browser in the config file)
  - The most recently stored account (use 'profilescout auth login')
  - Environment variables (PROFILESCOUT_LI_AT and PROFILESCOUT_JSESSIONID)`,
	Example: `  # Run with the configured keywords and companies
  profilescout discover

  # Narrow the search and widen the follower band
  profilescout discover -k "RPA" -k "workflow automation" --companies UiPath --max-followers 20000

  # Replay recorded result pages without a browser
  profilescout discover --fixtures testdata/fixtures.yaml --base-delay 0 --jitter 0

  # Continue an interrupted run
  profilescout discover --resume`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	f := discoverCmd.Flags()
	f.StringSliceP("keywords", "k", nil, "search keywords (replaces the configured list)")
	f.StringSlice("companies", nil, "target companies (replaces the configured list)")
	f.Int("min-followers", 0, "lowest accepted follower count")
	f.Int("max-followers", 0, "highest accepted follower count")
	f.Bool("allow-unknown", false, "keep profiles whose follower count is not shown")
	f.Duration("base-delay", 0, "minimum time between two page requests")
	f.Duration("jitter", 0, "upper bound of the random extra delay per request")
	f.Int("max-requests", 0, "page requests allowed in this run")
	f.Float64("min-confidence", 0, "minimum confidence score")
	f.Float64("min-completeness", 0, "minimum completeness score")
	f.Bool("headless", true, "run the browser without a window")
	f.StringP("account", "a", "", "use a specific stored account")
	f.String("fixtures", "", "read result pages from a fixture file instead of the browser")
	f.StringP("output", "o", "", "output directory")
	f.String("summary-docx", "", "also write the summary as a DOCX file with this name")
	f.BoolVar(&resumeRun, "resume", false, "resume from the last checkpoint of the same plan")
	f.BoolVar(&forceRestart, "force-restart", false, "discard an existing checkpoint and start over")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("profilescout starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		ui.PrintError("Failed to open stores", err.Error())
		return err
	}
	defer sess.Close()

	pageFetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		ui.PrintError("Failed to prepare page fetcher", err.Error())
		return err
	}
	defer func() {
		if err := pageFetcher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	plan := planner.Plan(cfg.Search.Keywords, cfg.Search.Companies)
	display := ui.NewProgressDisplay(ui.Out, len(plan), cfg.Pacing.MaxRequestsPerRun, verbose)

	opts, err := sess.runnerOptions(ctx)
	if err != nil {
		ui.PrintError("Failed to load previous results", err.Error())
		return err
	}

	cpm, err := sess.checkpointManager(plan)
	if err != nil {
		return err
	}
	if cpm != nil {
		if forceRestart {
			if err := cpm.Delete(); err != nil {
				return err
			}
		} else if !resumeRun && cpm.Exists() {
			if info, err := cpm.GetCheckpointInfo(); err == nil && info != nil {
				ui.PrintWarning("Found checkpoint of this plan", fmt.Sprintf("%v queries done, use --resume to continue", info["completed_queries"]))
			}
		}
		opts = append(opts, discovery.WithCheckpoint(cpm, resumeRun))
	}
	opts = append(opts, discovery.WithProgress(display.Update))

	ui.PrintInfo("Queries planned", fmt.Sprintf("%d", len(plan)))
	ui.PrintInfo("Follower band", fmt.Sprintf("%d - %d", cfg.Followers.Min, cfg.Followers.Max))

	runner := discovery.New(discovery.ConfigFrom(cfg), pageFetcher, sess.newPacer(display.PacingWait), opts...)
	res, err := runner.Run(ctx)
	notifier := ui.NewNotifier()
	if err != nil {
		if notifications {
			notifier.RunFailed(err)
		}
		ui.PrintError("Discovery run failed", err.Error())
		return err
	}

	display.Complete(res.Summary)

	// Outputs are written even after cancellation, so use a fresh context for the stores
	if err := sess.save(context.Background(), res); err != nil {
		ui.PrintError("Failed to write results", err.Error())
		return err
	}
	ui.PrintInfo("Profiles", cfg.CSVPath())
	ui.PrintInfo("Summary", cfg.SummaryPath())
	if docx := cfg.SummaryDOCXPath(); docx != "" {
		ui.PrintInfo("Summary (DOCX)", docx)
	}

	if notifications {
		notifier.RunFinished(res.Summary)
	}
	if res.Summary.TerminatedEarly {
		ui.PrintWarning("Run ended early", res.Summary.TerminationReason)
	}
	return nil
}
