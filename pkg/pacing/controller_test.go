package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"profilescout/pkg/errors"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFirstTurnDoesNotWait(t *testing.T) {
	clock := NewManualClock(epoch)
	pc := New(Config{BaseDelay: 30 * time.Second, Jitter: 10 * time.Second}, WithClock(clock), WithRand(FixedRand(0.5)))

	require.NoError(t, pc.AwaitTurn(context.Background()))
	assert.Empty(t, clock.Sleeps())
	assert.Equal(t, 1, pc.RequestCount())
	assert.Equal(t, epoch, pc.lastGranted())
}

func TestAwaitTurnSleepsForDeficit(t *testing.T) {
	clock := NewManualClock(epoch)
	pc := New(Config{BaseDelay: 30 * time.Second, Jitter: 10 * time.Second}, WithClock(clock), WithRand(FixedRand(0.5)))
	ctx := context.Background()

	require.NoError(t, pc.AwaitTurn(ctx))
	clock.Advance(12 * time.Second)
	require.NoError(t, pc.AwaitTurn(ctx))

	// 30s base + 5s jitter - 12s elapsed
	assert.Equal(t, []time.Duration{23 * time.Second}, clock.Sleeps())
	assert.Equal(t, epoch.Add(35*time.Second), pc.lastGranted())
}

func TestNoWaitWhenIntervalAlreadyElapsed(t *testing.T) {
	clock := NewManualClock(epoch)
	pc := New(Config{BaseDelay: time.Second, Jitter: time.Second}, WithClock(clock), WithRand(FixedRand(1)))

	require.NoError(t, pc.AwaitTurn(context.Background()))
	clock.Advance(time.Minute)
	require.NoError(t, pc.AwaitTurn(context.Background()))

	assert.Empty(t, clock.Sleeps())
	assert.Equal(t, 2, pc.RequestCount())
}

type sequenceRand struct {
	values []float64
	i      int
}

func (s *sequenceRand) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func TestJitterIsDrawnPerTurn(t *testing.T) {
	clock := NewManualClock(epoch)
	rnd := &sequenceRand{values: []float64{0, 0.1, 0.9}}
	pc := New(Config{BaseDelay: 10 * time.Second, Jitter: 10 * time.Second}, WithClock(clock), WithRand(rnd))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, pc.AwaitTurn(ctx))
	}

	assert.Equal(t, []time.Duration{11 * time.Second, 19 * time.Second}, clock.Sleeps())
	for _, d := range clock.Sleeps() {
		assert.GreaterOrEqual(t, d, 10*time.Second)
		assert.LessOrEqual(t, d, 20*time.Second)
	}
}

func TestRequestBudgetExhausted(t *testing.T) {
	clock := NewManualClock(epoch)
	pc := New(Config{MaxRequests: 2}, WithClock(clock), WithRand(FixedRand(0)))
	ctx := context.Background()

	require.NoError(t, pc.AwaitTurn(ctx))
	require.NoError(t, pc.AwaitTurn(ctx))
	assert.Equal(t, 0, pc.remaining())

	err := pc.AwaitTurn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRateBudgetExhausted)
	assert.True(t, errors.IsRunFatal(err))
	assert.Equal(t, 2, pc.RequestCount(), "a refused turn is not counted")
}

func TestUncappedController(t *testing.T) {
	pc := New(Config{}, WithClock(NewManualClock(epoch)))
	for i := 0; i < 50; i++ {
		require.NoError(t, pc.AwaitTurn(context.Background()))
	}
	assert.Equal(t, -1, pc.remaining())
}

func TestHourlyWindow(t *testing.T) {
	clock := NewManualClock(epoch)
	pc := New(Config{MaxPerHour: 2}, WithClock(clock), WithRand(FixedRand(0)))
	ctx := context.Background()

	require.NoError(t, pc.AwaitTurn(ctx))
	clock.Advance(10 * time.Minute)
	require.NoError(t, pc.AwaitTurn(ctx))
	clock.Advance(10 * time.Minute)

	// Third request must wait until the first leaves the window
	require.NoError(t, pc.AwaitTurn(ctx))
	assert.Equal(t, []time.Duration{40 * time.Minute}, clock.Sleeps())
	assert.Equal(t, epoch.Add(time.Hour), pc.lastGranted())
}

func TestCancelledWhileWaiting(t *testing.T) {
	pc := New(Config{BaseDelay: time.Hour}, WithRand(FixedRand(0)))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, pc.AwaitTurn(ctx))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := pc.AwaitTurn(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, pc.RequestCount())
}

func TestWaitObserver(t *testing.T) {
	clock := NewManualClock(epoch)
	var waits []time.Duration
	pc := New(Config{BaseDelay: 5 * time.Second}, WithClock(clock), WithRand(FixedRand(0)),
		WithWaitObserver(func(d time.Duration) { waits = append(waits, d) }))

	require.NoError(t, pc.AwaitTurn(context.Background()))
	require.NoError(t, pc.AwaitTurn(context.Background()))
	assert.Equal(t, []time.Duration{0, 5 * time.Second}, waits)
}

func TestSystemClockSleep(t *testing.T) {
	var c SystemClock
	require.NoError(t, c.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Minute), context.Canceled)
}
