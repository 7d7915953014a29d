// Package pacing spaces out page fetches within a run.
//
// A Controller enforces a minimum interval (base delay plus a fresh random jitter per
// request) between consecutive fetches, an optional rolling-hour ceiling, and a hard
// per-run request cap. The fixed plus random delay avoids uniform request intervals and
// the cap bounds total exposure of one run.
//
//	pc := pacing.New(pacing.Config{
//	    BaseDelay:   30 * time.Second,
//	    Jitter:      10 * time.Second,
//	    MaxRequests: 100,
//	    MaxPerHour:  100,
//	})
//	if err := pc.AwaitTurn(ctx); err != nil {
//	    // errors.ErrRateBudgetExhausted or ctx.Err()
//	}
//
// Clock and RandSource are injectable. ManualClock and FixedRand make runs
// reproducible in tests.
package pacing
