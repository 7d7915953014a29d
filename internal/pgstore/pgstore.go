// Package pgstore persists accepted profiles and run summaries in PostgreSQL.
// The first row written for a profile identity wins; later runs never overwrite it.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"profilescout/pkg/config"
	"profilescout/pkg/errors"
	"profilescout/pkg/logger"
	"profilescout/pkg/models"
	"profilescout/pkg/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	profile_url        TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	headline           TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	company            TEXT NOT NULL DEFAULT '',
	follower_count     INTEGER,
	matched_keyword    TEXT NOT NULL DEFAULT '',
	confidence_score   DOUBLE PRECISION NOT NULL,
	completeness_score DOUBLE PRECISION NOT NULL,
	discovered_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id                 BIGSERIAL PRIMARY KEY,
	plan_id            TEXT NOT NULL,
	queries_planned    INTEGER NOT NULL,
	queries_executed   INTEGER NOT NULL,
	queries_skipped    INTEGER NOT NULL,
	candidates_seen    INTEGER NOT NULL,
	accepted           INTEGER NOT NULL,
	terminated_early   BOOLEAN NOT NULL,
	termination_reason TEXT NOT NULL DEFAULT '',
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	summary            JSONB NOT NULL
);`

// Store writes to one PostgreSQL database
type Store struct {
	db     *pgxpool.Pool
	retry  retry.Config
	logger logger.Logger
}

// Open connects, checks the connection and creates the tables when missing
func Open(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	rc := retry.DefaultConfig().WithAttempts(cfg.WriteAttempts)
	rc.Logger = log
	s := &Store{db: db, retry: rc, logger: log.WithField("component", "pgstore")}

	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Migrate creates the tables
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveProfile inserts p unless its identity is already stored
func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	return retry.Do(ctx, s.retry, "pg insert profile", func(ctx context.Context) error {
		_, err := s.db.Exec(ctx,
			`INSERT INTO profiles (profile_url, name, headline, location, company, follower_count,
			                       matched_keyword, confidence_score, completeness_score, discovered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (profile_url) DO NOTHING`,
			p.ProfileURL, p.Name, p.Headline, p.Location, p.Company, p.FollowerCount,
			p.MatchedKeyword, p.ConfidenceScore, p.CompletenessScore, p.DiscoveredAt.UTC(),
		)
		if err != nil {
			return errors.Wrap(errors.ErrorTypeStorage, err, "insert profile")
		}
		return nil
	})
}

// SaveRun records the summary of a finished run
func (s *Store) SaveRun(ctx context.Context, planID string, summary models.RunSummary) error {
	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	return retry.Do(ctx, s.retry, "pg insert run", func(ctx context.Context) error {
		_, err := s.db.Exec(ctx,
			`INSERT INTO runs (plan_id, queries_planned, queries_executed, queries_skipped, candidates_seen,
			                   accepted, terminated_early, termination_reason, started_at, finished_at, summary)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			planID, summary.QueriesPlanned, summary.QueriesExecuted, summary.QueriesSkipped, summary.CandidatesSeen,
			summary.Accepted, summary.TerminatedEarly, summary.TerminationReason,
			summary.StartedAt.UTC(), summary.FinishedAt.UTC(), doc,
		)
		if err != nil {
			return errors.Wrap(errors.ErrorTypeStorage, err, "insert run")
		}
		return nil
	})
}

// ProfileURLs returns every stored identity, for seeding a new run
func (s *Store) ProfileURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT profile_url FROM profiles ORDER BY profile_url`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, err, "select profiles")
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, err, "scan profiles")
	}
	return urls, nil
}

// Profile loads one stored profile
func (s *Store) Profile(ctx context.Context, profileURL string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRow(ctx,
		`SELECT profile_url, name, headline, location, company, follower_count,
		        matched_keyword, confidence_score, completeness_score, discovered_at
		 FROM profiles WHERE profile_url = $1`, profileURL,
	).Scan(&p.ProfileURL, &p.Name, &p.Headline, &p.Location, &p.Company, &p.FollowerCount,
		&p.MatchedKeyword, &p.ConfidenceScore, &p.CompletenessScore, &p.DiscoveredAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, err, "select profile")
	}
	return &p, nil
}

func (s *Store) Close() {
	s.db.Close()
}
