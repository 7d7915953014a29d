package models

import "time"

// QuerySource tags where a query came from
type QuerySource string

const (
	SourceKeyword QuerySource = "keyword"
	SourceCompany QuerySource = "company"
)

// Query is one unit of search work. Queries are created by the planner and never mutated.
type Query struct {
	Term   string      `json:"term" yaml:"term"`
	Source QuerySource `json:"source" yaml:"source"`
}

// Key identifies the query inside a run (used by checkpoints)
func (q Query) Key() string {
	return string(q.Source) + ":" + q.Term
}

// Raw record field names understood by the normalizer
const (
	FieldName         = "name"
	FieldHeadline     = "headline"
	FieldLocation     = "location"
	FieldURL          = "url"
	FieldCompany      = "company"
	FieldFollowerText = "follower_text"
)

// RawRecord is one unstructured search result as returned by a page fetcher.
// Missing and extra keys are tolerated.
type RawRecord map[string]string

// Profile is the canonical normalized record of one discovered person
type Profile struct {
	// ProfileURL is the normalized identity of the profile
	ProfileURL        string    `json:"profile_url"`
	Name              string    `json:"name"`
	Headline          string    `json:"headline"`
	Location          string    `json:"location"`
	Company           string    `json:"company"`
	FollowerCount     *int      `json:"follower_count"`
	MatchedKeyword    string    `json:"matched_keyword"`
	ConfidenceScore   float64   `json:"confidence_score"`
	CompletenessScore float64   `json:"completeness_score"`
	DiscoveredAt      time.Time `json:"discovered_at"`
}

// Followers returns the follower count, or 0 when unknown
func (p *Profile) Followers() int {
	if p.FollowerCount == nil {
		return 0
	}
	return *p.FollowerCount
}

// SkippedQuery records a planned query that produced no fetch, with the reason
type SkippedQuery struct {
	Query  Query  `json:"query"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RunSummary aggregates the counters of one run
type RunSummary struct {
	QueriesPlanned     int            `json:"queries_planned"`
	QueriesExecuted    int            `json:"queries_executed"`
	QueriesSkipped     int            `json:"queries_skipped"`
	Skipped            []SkippedQuery `json:"skipped,omitempty"`
	CandidatesSeen     int            `json:"candidates_seen"`
	MissingIdentity    int            `json:"missing_identity"`
	RejectedByFollower int            `json:"rejected_by_follower_filter"`
	DuplicatesDropped  int            `json:"duplicates_dropped"`
	RejectedByQuality  int            `json:"rejected_by_quality_threshold"`
	Accepted           int            `json:"accepted"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	Duration           time.Duration  `json:"duration"`
	TerminatedEarly    bool           `json:"terminated_early"`
	TerminationReason  string         `json:"termination_reason,omitempty"`
	Stats              ProfileStats   `json:"stats"`
}

// ProfileStats describes the accepted result set
type ProfileStats struct {
	UniqueCompanies     int            `json:"unique_companies"`
	UniqueLocations     int            `json:"unique_locations"`
	AverageConfidence   float64        `json:"average_confidence"`
	AverageCompleteness float64        `json:"average_completeness"`
	AverageFollowers    float64        `json:"average_followers"`
	FollowerBuckets     []BucketCount  `json:"follower_buckets"`
	KeywordCounts       []KeywordCount `json:"keyword_counts"`
}

// BucketCount is the number of profiles whose follower count falls in [Min, Max).
// The last bucket of a distribution also includes Max.
type BucketCount struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// KeywordCount is the number of accepted profiles surfaced by one query term
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}
