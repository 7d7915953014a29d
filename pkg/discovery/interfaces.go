package discovery

import (
	"context"

	"profilescout/pkg/errors"
	"profilescout/pkg/models"
)

// PageFetcher retrieves the raw search results of one query. Browser and session
// lifecycle live behind it.
type PageFetcher interface {
	Fetch(ctx context.Context, q models.Query) ([]models.RawRecord, error)
}

// Pacer gates every fetch. AwaitTurn returns a RateBudgetExhausted error once the
// per-run cap is reached, or the context error when cancelled while waiting.
type Pacer interface {
	AwaitTurn(ctx context.Context) error
	RequestCount() int
}

// ProfileSink receives every accepted profile as soon as it passes the quality gate.
// Sink failures are logged and never affect the run.
type ProfileSink interface {
	SaveProfile(ctx context.Context, p models.Profile) error
}

// Metrics receives run events
type Metrics interface {
	QueryFinished(q models.Query, outcome string)
	CandidatesSeen(n int)
	CandidateRejected(reason errors.ErrorType)
	ProfileAccepted()
	RunFinished(summary models.RunSummary)
}

type nopMetrics struct{}

func (nopMetrics) QueryFinished(models.Query, string) {}
func (nopMetrics) CandidatesSeen(int)                 {}
func (nopMetrics) CandidateRejected(errors.ErrorType) {}
func (nopMetrics) ProfileAccepted()                   {}
func (nopMetrics) RunFinished(models.RunSummary)      {}
