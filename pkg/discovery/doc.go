// Package discovery runs the profile discovery pipeline.
//
// A Runner plans the queries, then handles them strictly one after another:
//
//	Idle -> Planning -> Fetching(query) -> Normalizing -> Scoring -> Aggregated -> Idle
//
// Every fetch waits for its turn on the Pacer. A failed fetch skips that query and
// the run continues; fetches are never retried. An exhausted request budget skips
// the current and all remaining queries and ends the run early. Cancellation is
// checked after every fetch and also ends the run early. In every case the
// aggregator is finalized, so a run that planned at least one query always returns
// a ranked result set and a summary.
//
// Usage:
//
//	pacer := pacing.New(pacing.Config{BaseDelay: 30 * time.Second, Jitter: 10 * time.Second, MaxRequests: 100})
//	runner := discovery.New(discovery.ConfigFrom(cfg), fetcher, pacer,
//	    discovery.WithLogger(log),
//	    discovery.WithSeed(existingURLs...),
//	)
//	result, err := runner.Run(ctx)
package discovery
