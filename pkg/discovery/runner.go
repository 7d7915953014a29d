package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"profilescout/pkg/aggregate"
	"profilescout/pkg/checkpoint"
	"profilescout/pkg/config"
	"profilescout/pkg/dedup"
	"profilescout/pkg/errors"
	"profilescout/pkg/logger"
	"profilescout/pkg/models"
	"profilescout/pkg/normalize"
	"profilescout/pkg/planner"
	"profilescout/pkg/scoring"
)

// State is the phase the runner is in
type State string

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateScoring     State = "scoring"
	StateAggregated  State = "aggregated"
)

// Query outcomes reported to Metrics
const (
	OutcomeExecuted = "executed"
	OutcomeSkipped  = "skipped"
)

// Config holds everything the pipeline decides on
type Config struct {
	Keywords   []string
	Companies  []string
	Normalize  normalize.Config
	Scoring    scoring.Config
	Thresholds aggregate.Thresholds
}

// ConfigFrom maps the application configuration onto the pipeline
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Keywords:  cfg.Search.Keywords,
		Companies: cfg.Search.Companies,
		Normalize: normalize.Config{
			MinFollowers: cfg.Followers.Min,
			MaxFollowers: cfg.Followers.Max,
			AllowUnknown: cfg.Followers.AllowUnknown,
		},
		Scoring: scoring.Config{
			Weights: scoring.Weights{
				Base:       cfg.Scoring.Base,
				Keyword:    cfg.Scoring.Keyword,
				Centrality: cfg.Scoring.Centrality,
				Company:    cfg.Scoring.Company,
			},
			Keywords:     cfg.Search.Keywords,
			Companies:    cfg.Search.Companies,
			MinFollowers: cfg.Followers.Min,
			MaxFollowers: cfg.Followers.Max,
		},
		Thresholds: aggregate.Thresholds{
			MinConfidence:   cfg.Quality.MinConfidence,
			MinCompleteness: cfg.Quality.MinCompleteness,
		},
	}
}

// Progress is a point-in-time view of a run
type Progress struct {
	State      State        `json:"state"`
	Query      models.Query `json:"query"`
	QueryIndex int          `json:"query_index"`
	Accepted   int          `json:"accepted"`
}

// Status combines the current progress with the counters collected so far
type Status struct {
	Progress
	Summary models.RunSummary `json:"summary"`
}

// Result is the output of one run
type Result struct {
	Plan     []models.Query
	Profiles []models.Profile
	Summary  models.RunSummary
}

// Runner orchestrates one discovery run
type Runner struct {
	cfg     Config
	fetcher PageFetcher
	pacer   Pacer
	now     func() time.Time
	logger  logger.Logger
	metrics Metrics
	sinks   []ProfileSink
	seed    []string

	checkpoints *checkpoint.Manager
	resume      bool
	onProgress  func(Progress)

	mu       sync.Mutex
	progress Progress
	agg      *aggregate.Aggregator
}

// Option customizes a Runner
type Option func(*Runner)

// WithNow injects the time source used for discovery stamps and run duration
func WithNow(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSinks registers stores that receive accepted profiles
func WithSinks(sinks ...ProfileSink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithSeed pre-loads identities found by previous runs
func WithSeed(urls ...string) Option {
	return func(r *Runner) { r.seed = append(r.seed, urls...) }
}

// WithCheckpoint saves progress after every query. With resume set, a checkpoint
// of the same plan is loaded first and its queries are not fetched again.
func WithCheckpoint(m *checkpoint.Manager, resume bool) Option {
	return func(r *Runner) {
		r.checkpoints = m
		r.resume = resume
	}
}

// WithProgress registers a callback invoked on every state change
func WithProgress(fn func(Progress)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// New creates a Runner. The pacer is owned by this run.
func New(cfg Config, fetcher PageFetcher, pacer Pacer, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		pacer:   pacer,
		now:     time.Now,
		logger:  logger.GetLogger(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.progress.State = StateIdle
	return r
}

// Status returns the current progress and counters. Safe to call from another goroutine.
func (r *Runner) Status() Status {
	r.mu.Lock()
	st := Status{Progress: r.progress}
	agg := r.agg
	r.mu.Unlock()

	if agg != nil {
		_, st.Summary = agg.Snapshot()
	}
	return st
}

// Run executes the whole plan. The returned error only reports setup failures such
// as an unreadable checkpoint; early termination is described by the summary.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.setState(StatePlanning, models.Query{}, -1)
	plan := planner.Plan(r.cfg.Keywords, r.cfg.Companies)

	agg := aggregate.New(r.cfg.Thresholds, r.now)
	agg.RecordPlanned(len(plan))
	r.mu.Lock()
	r.agg = agg
	r.mu.Unlock()

	deduper := dedup.New()
	if n := deduper.Seed(r.seed...); n > 0 {
		r.logger.InfoWithFields("Seeded known profiles", map[string]interface{}{"count": n})
	}

	cp, err := r.loadCheckpoint(plan, agg, deduper)
	if err != nil {
		r.setState(StateIdle, models.Query{}, -1)
		return nil, err
	}

	normalizer := normalize.New(r.cfg.Normalize, r.now)
	scorer := scoring.New(r.cfg.Scoring)

	r.logger.InfoWithFields("Starting discovery run", map[string]interface{}{
		"queries":   len(plan),
		"keywords":  len(r.cfg.Keywords),
		"companies": len(r.cfg.Companies),
		"resumed":   cp != nil && len(cp.CompletedQueries) > 0,
	})

	for i, q := range plan {
		if cp != nil && cp.IsCompleted(q) {
			continue
		}
		if ctx.Err() != nil {
			r.terminate(agg, cp, plan[i:], errors.ErrorTypeCancelled, ctx.Err())
			break
		}

		r.setState(StateFetching, q, i)
		if err := r.pacer.AwaitTurn(ctx); err != nil {
			reason := errors.ErrorTypeCancelled
			if errors.IsRunFatal(err) {
				reason = errors.ErrorTypeRateBudgetExhausted
			}
			r.terminate(agg, cp, plan[i:], reason, err)
			break
		}

		logger.LogQueryStart(r.logger, q.Term, string(q.Source), i, len(plan))
		records, err := r.fetcher.Fetch(ctx, q)
		if err != nil && ctx.Err() != nil {
			r.terminate(agg, cp, plan[i:], errors.ErrorTypeCancelled, ctx.Err())
			break
		}
		if err != nil {
			agg.RecordSkipped(q, errors.ErrorTypeFetch, err.Error())
			r.metrics.QueryFinished(q, OutcomeSkipped)
			logger.LogQuerySkipped(r.logger, q.Term, string(q.Source), string(errors.ErrorTypeFetch), err)
		} else {
			agg.RecordExecuted(q)
			agg.RecordCandidates(len(records))
			r.metrics.QueryFinished(q, OutcomeExecuted)
			r.metrics.CandidatesSeen(len(records))
			r.process(ctx, q, i, records, normalizer, deduper, scorer, agg)
		}

		r.saveCheckpoint(cp, q, agg)

		if ctx.Err() != nil {
			r.terminate(agg, cp, plan[i+1:], errors.ErrorTypeCancelled, ctx.Err())
			break
		}
	}

	profiles, summary := agg.Finalize()
	r.setState(StateAggregated, models.Query{}, -1)

	if cp != nil && !summary.TerminatedEarly {
		if err := r.checkpoints.Delete(); err != nil {
			r.logger.WithError(err).Warn("Failed to delete checkpoint")
		}
	}

	r.metrics.RunFinished(summary)
	logger.LogRunSummary(r.logger, map[string]interface{}{
		"queries_planned":    summary.QueriesPlanned,
		"queries_executed":   summary.QueriesExecuted,
		"queries_skipped":    summary.QueriesSkipped,
		"candidates_seen":    summary.CandidatesSeen,
		"rejected_followers": summary.RejectedByFollower,
		"duplicates_dropped": summary.DuplicatesDropped,
		"rejected_quality":   summary.RejectedByQuality,
		"accepted":           summary.Accepted,
		"duration":           summary.Duration,
		"terminated_early":   summary.TerminatedEarly,
		"requests":           r.pacer.RequestCount(),
		"known_identities":   deduper.Len(),
		"seeded_identities":  deduper.Seeded(),
	})

	r.setState(StateIdle, models.Query{}, -1)
	return &Result{Plan: plan, Profiles: profiles, Summary: summary}, nil
}

// process moves the records of one query through normalization, deduplication,
// scoring and the quality gate
func (r *Runner) process(ctx context.Context, q models.Query, index int, records []models.RawRecord,
	normalizer *normalize.Normalizer, deduper *dedup.Deduplicator, scorer *scoring.Engine, agg *aggregate.Aggregator) {
	for _, raw := range records {
		r.setState(StateNormalizing, q, index)
		p, err := normalizer.Normalize(raw, q)
		if err != nil {
			r.reject(agg, errors.TypeOf(err), err)
			continue
		}
		if !deduper.Offer(p) {
			r.reject(agg, errors.ErrorTypeDuplicateProfile, nil)
			continue
		}

		r.setState(StateScoring, q, index)
		scorer.Apply(p)
		if err := agg.Accept(p); err != nil {
			r.metrics.CandidateRejected(errors.TypeOf(err))
			r.logger.WithError(err).WithField("profile_url", p.ProfileURL).Debug("Candidate below quality threshold")
			continue
		}

		r.metrics.ProfileAccepted()
		r.mu.Lock()
		r.progress.Accepted++
		r.mu.Unlock()
		r.logger.DebugWithFields("Profile accepted", map[string]interface{}{
			"profile_url": p.ProfileURL,
			"confidence":  p.ConfidenceScore,
			"keyword":     p.MatchedKeyword,
		})
		r.publish(ctx, *p)
	}
}

func (r *Runner) reject(agg *aggregate.Aggregator, reason errors.ErrorType, err error) {
	agg.RecordRejected(reason)
	r.metrics.CandidateRejected(reason)
	l := r.logger.WithField("reason", string(reason))
	if err != nil {
		l = l.WithError(err)
	}
	l.Debug("Candidate rejected")
}

func (r *Runner) publish(ctx context.Context, p models.Profile) {
	for _, sink := range r.sinks {
		if err := sink.SaveProfile(ctx, p); err != nil {
			r.logger.WithError(err).WithField("profile_url", p.ProfileURL).Warn("Failed to store profile")
		}
	}
}

// terminate records every not yet processed query in rest as skipped and marks the
// run as ended early
func (r *Runner) terminate(agg *aggregate.Aggregator, cp *checkpoint.Checkpoint, rest []models.Query, reason errors.ErrorType, cause error) {
	for _, q := range rest {
		if cp != nil && cp.IsCompleted(q) {
			continue
		}
		agg.RecordSkipped(q, reason, "")
		r.metrics.QueryFinished(q, OutcomeSkipped)
	}
	agg.RecordTermination(reason)
	r.logger.WithError(cause).WithFields(map[string]interface{}{
		"reason":  string(reason),
		"skipped": len(rest),
	}).Warn("Run terminated early")
}

func (r *Runner) loadCheckpoint(plan []models.Query, agg *aggregate.Aggregator, deduper *dedup.Deduplicator) (*checkpoint.Checkpoint, error) {
	if r.checkpoints == nil {
		return nil, nil
	}
	planID := checkpoint.PlanID(plan)

	if r.resume {
		cp, err := r.checkpoints.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil && cp.PlanID == planID {
			agg.Restore(cp.Profiles, cp.Summary)
			deduper.Seed(cp.ProfileURLs()...)
			r.mu.Lock()
			r.progress.Accepted = len(cp.Profiles)
			r.mu.Unlock()
			r.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"completed_queries": len(cp.CompletedQueries),
				"profiles":          len(cp.Profiles),
			})
			return cp, nil
		}
		if cp != nil {
			r.logger.WithField("plan_id", cp.PlanID).Warn("Checkpoint belongs to a different plan, starting fresh")
		}
	}
	return r.checkpoints.Create(planID), nil
}

func (r *Runner) saveCheckpoint(cp *checkpoint.Checkpoint, q models.Query, agg *aggregate.Aggregator) {
	if cp == nil {
		return
	}
	profiles, summary := agg.Snapshot()
	if err := r.checkpoints.Record(cp, q, profiles, summary); err != nil {
		r.logger.WithError(err).Warn("Failed to save checkpoint")
	}
}

func (r *Runner) setState(state State, q models.Query, index int) {
	r.mu.Lock()
	r.progress.State = state
	r.progress.Query = q
	r.progress.QueryIndex = index
	p := r.progress
	r.mu.Unlock()

	if r.onProgress != nil {
		r.onProgress(p)
	}
}
