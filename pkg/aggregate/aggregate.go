// Package aggregate collects accepted profiles over a run, applies the final
// quality gate and produces the ranked result set with its run summary.
package aggregate

import (
	"sort"
	"strings"
	"sync"
	"time"

	"profilescout/pkg/errors"
	"profilescout/pkg/models"
)

// Thresholds is the final quality gate
type Thresholds struct {
	MinConfidence   float64
	MinCompleteness float64
}

// DefaultBuckets is the follower distribution reported in summaries
var DefaultBuckets = []models.BucketCount{
	{Label: "1k-2k", Min: 1000, Max: 2000},
	{Label: "2k-5k", Min: 2000, Max: 5000},
	{Label: "5k-10k", Min: 5000, Max: 10000},
}

type entry struct {
	seq     int
	profile models.Profile
}

// Aggregator owns accepted profiles and the run counters. Every method is safe to
// call while a status reader polls Snapshot from another goroutine.
type Aggregator struct {
	thresholds Thresholds
	now        func() time.Time

	mu        sync.Mutex
	entries   []entry
	nextSeq   int
	summary   models.RunSummary
	finalized bool
}

// New creates an Aggregator and stamps the run start time. now nil means time.Now.
func New(thresholds Thresholds, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	a := &Aggregator{thresholds: thresholds, now: now}
	a.summary.StartedAt = now()
	return a
}

// RecordPlanned records the size of the query plan
func (a *Aggregator) RecordPlanned(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.QueriesPlanned += n
}

// RecordExecuted records a query whose fetch completed
func (a *Aggregator) RecordExecuted(models.Query) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.QueriesExecuted++
}

// RecordSkipped records a query that was not fetched, or whose fetch failed
func (a *Aggregator) RecordSkipped(q models.Query, reason errors.ErrorType, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.QueriesSkipped++
	a.summary.Skipped = append(a.summary.Skipped, models.SkippedQuery{
		Query:  q,
		Reason: string(reason),
		Detail: detail,
	})
}

// RecordCandidates records raw records returned by a fetch
func (a *Aggregator) RecordCandidates(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.CandidatesSeen += n
}

// RecordRejected counts a candidate dropped before reaching the aggregator
func (a *Aggregator) RecordRejected(reason errors.ErrorType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch reason {
	case errors.ErrorTypeMissingIdentity:
		a.summary.MissingIdentity++
	case errors.ErrorTypeFollowerOutOfRange:
		a.summary.RejectedByFollower++
	case errors.ErrorTypeDuplicateProfile:
		a.summary.DuplicatesDropped++
	case errors.ErrorTypeBelowQualityThreshold:
		a.summary.RejectedByQuality++
	}
}

// RecordTermination marks the run as ended before its plan was exhausted
func (a *Aggregator) RecordTermination(reason errors.ErrorType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.TerminatedEarly = true
	if a.summary.TerminationReason == "" {
		a.summary.TerminationReason = string(reason)
	}
}

// Accept takes ownership of a scored, deduplicated profile. Profiles under either
// threshold are counted and rejected with BelowQualityThreshold.
func (a *Aggregator) Accept(p *models.Profile) error {
	if p.ConfidenceScore < a.thresholds.MinConfidence || p.CompletenessScore < a.thresholds.MinCompleteness {
		a.RecordRejected(errors.ErrorTypeBelowQualityThreshold)
		return errors.New(errors.ErrorTypeBelowQualityThreshold,
			"confidence %.2f (min %.2f), completeness %.2f (min %.2f)",
			p.ConfidenceScore, a.thresholds.MinConfidence, p.CompletenessScore, a.thresholds.MinCompleteness)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry{seq: a.nextSeq, profile: *p})
	a.nextSeq++
	a.summary.Accepted++
	return nil
}

// Restore loads profiles and counters saved by an interrupted run. Restored profiles
// keep their order ahead of anything accepted afterwards. The plan size and start
// time stay those of the current run.
func (a *Aggregator) Restore(profiles []models.Profile, summary models.RunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	restored := make([]entry, 0, len(profiles)+len(a.entries))
	for _, p := range profiles {
		restored = append(restored, entry{seq: len(restored), profile: p})
	}
	for _, e := range a.entries {
		e.seq = len(restored)
		restored = append(restored, e)
	}
	a.entries = restored
	a.nextSeq = len(restored)

	s := &a.summary
	s.QueriesExecuted += summary.QueriesExecuted
	s.QueriesSkipped += summary.QueriesSkipped
	s.Skipped = append(append([]models.SkippedQuery(nil), summary.Skipped...), s.Skipped...)
	s.CandidatesSeen += summary.CandidatesSeen
	s.MissingIdentity += summary.MissingIdentity
	s.RejectedByFollower += summary.RejectedByFollower
	s.DuplicatesDropped += summary.DuplicatesDropped
	s.RejectedByQuality += summary.RejectedByQuality
	s.Accepted += len(profiles)
}

// Snapshot returns the accepted profiles in acceptance order and the counters so far
func (a *Aggregator) Snapshot() ([]models.Profile, models.RunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	profiles := make([]models.Profile, len(a.entries))
	for i, e := range a.entries {
		profiles[i] = e.profile
	}
	return profiles, a.copySummary()
}

// Finalize ranks the accepted profiles by confidence (desc), then completeness
// (desc), then acceptance order, and completes the summary. Calling it again
// returns the same result.
func (a *Aggregator) Finalize() ([]models.Profile, models.RunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ranked := make([]entry, len(a.entries))
	copy(ranked, a.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].profile, ranked[j].profile
		if pi.ConfidenceScore != pj.ConfidenceScore {
			return pi.ConfidenceScore > pj.ConfidenceScore
		}
		if pi.CompletenessScore != pj.CompletenessScore {
			return pi.CompletenessScore > pj.CompletenessScore
		}
		return ranked[i].seq < ranked[j].seq
	})

	profiles := make([]models.Profile, len(ranked))
	for i, e := range ranked {
		profiles[i] = e.profile
	}

	if !a.finalized {
		a.finalized = true
		a.summary.FinishedAt = a.now()
		a.summary.Duration = a.summary.FinishedAt.Sub(a.summary.StartedAt)
	}
	a.summary.Stats = ComputeStats(profiles, DefaultBuckets)

	return profiles, a.copySummary()
}

func (a *Aggregator) copySummary() models.RunSummary {
	s := a.summary
	s.Skipped = append([]models.SkippedQuery(nil), a.summary.Skipped...)
	return s
}

// ComputeStats describes a result set: distinct companies and locations, score and
// follower averages, follower buckets and per-keyword counts (most frequent first).
func ComputeStats(profiles []models.Profile, buckets []models.BucketCount) models.ProfileStats {
	stats := models.ProfileStats{
		FollowerBuckets: make([]models.BucketCount, len(buckets)),
	}
	copy(stats.FollowerBuckets, buckets)
	for i := range stats.FollowerBuckets {
		stats.FollowerBuckets[i].Count = 0
	}
	if len(profiles) == 0 {
		return stats
	}

	companies := make(map[string]struct{})
	locations := make(map[string]struct{})
	keywords := make(map[string]int)
	var confSum, complSum, followerSum float64
	followerN := 0

	for _, p := range profiles {
		if c := strings.TrimSpace(p.Company); c != "" {
			companies[c] = struct{}{}
		}
		if l := strings.TrimSpace(p.Location); l != "" {
			locations[l] = struct{}{}
		}
		if p.MatchedKeyword != "" {
			keywords[p.MatchedKeyword]++
		}
		confSum += p.ConfidenceScore
		complSum += p.CompletenessScore

		if p.FollowerCount == nil {
			continue
		}
		f := *p.FollowerCount
		followerSum += float64(f)
		followerN++
		for i := range stats.FollowerBuckets {
			b := &stats.FollowerBuckets[i]
			last := i == len(stats.FollowerBuckets)-1
			if f >= b.Min && (f < b.Max || (last && f == b.Max)) {
				b.Count++
				break
			}
		}
	}

	n := float64(len(profiles))
	stats.UniqueCompanies = len(companies)
	stats.UniqueLocations = len(locations)
	stats.AverageConfidence = confSum / n
	stats.AverageCompleteness = complSum / n
	if followerN > 0 {
		stats.AverageFollowers = followerSum / float64(followerN)
	}

	for kw, count := range keywords {
		stats.KeywordCounts = append(stats.KeywordCounts, models.KeywordCount{Keyword: kw, Count: count})
	}
	sort.Slice(stats.KeywordCounts, func(i, j int) bool {
		ki, kj := stats.KeywordCounts[i], stats.KeywordCounts[j]
		if ki.Count != kj.Count {
			return ki.Count > kj.Count
		}
		return ki.Keyword < kj.Keyword
	})

	return stats
}
