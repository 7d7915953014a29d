package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"profilescout/pkg/discovery"
)

var (
	ErrJobRunning = errors.New("a discovery run is already in progress")
	ErrNoJob      = errors.New("no discovery run in progress")
	ErrNoResult   = errors.New("no finished run yet")
)

// StartRequest optionally narrows the configured search terms of one run
type StartRequest struct {
	Keywords  []string `json:"keywords,omitempty"`
	Companies []string `json:"companies,omitempty"`
}

// Job is one discovery run. *discovery.Runner implements it.
type Job interface {
	Run(ctx context.Context) (*discovery.Result, error)
	Status() discovery.Status
}

// Launcher builds the job for req. cleanup, when not nil, runs after the job ends.
type Launcher func(req StartRequest) (job Job, cleanup func(), err error)

// JobStatus is the payload of the status endpoint
type JobStatus struct {
	Running    bool              `json:"running"`
	Stopping   bool              `json:"stopping,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Run        *discovery.Status `json:"run,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// jobs allows one run at a time and keeps the result of the last one
type jobs struct {
	launch     Launcher
	onFinished func(*discovery.Result)
	now        func() time.Time

	mu         sync.Mutex
	current    Job
	cancel     context.CancelFunc
	done       chan struct{}
	stopping   bool
	startedAt  time.Time
	finishedAt time.Time
	result     *discovery.Result
	err        error
}

func (j *jobs) start(req StartRequest) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running() {
		return ErrJobRunning
	}

	job, cleanup, err := j.launch(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	j.current, j.cancel, j.done = job, cancel, done
	j.stopping = false
	j.startedAt = j.now()
	j.finishedAt = time.Time{}
	j.err = nil

	go func() {
		defer close(done)
		defer cancel()
		if cleanup != nil {
			defer cleanup()
		}

		result, err := job.Run(ctx)

		j.mu.Lock()
		j.finishedAt = j.now()
		j.err = err
		if result != nil {
			j.result = result
		}
		j.mu.Unlock()

		if result != nil && j.onFinished != nil {
			j.onFinished(result)
		}
	}()
	return nil
}

func (j *jobs) stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running() {
		return ErrNoJob
	}
	j.stopping = true
	j.cancel()
	return nil
}

// wait blocks until the current run, if any, has ended
func (j *jobs) wait(ctx context.Context) error {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *jobs) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := JobStatus{Running: j.running(), Stopping: j.stopping && j.running()}
	if j.current == nil {
		return st
	}

	started := j.startedAt
	st.StartedAt = &started
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		st.FinishedAt = &finished
	}
	run := j.current.Status()
	st.Run = &run
	if j.err != nil {
		st.Error = j.err.Error()
	}
	return st
}

func (j *jobs) lastResult() (*discovery.Result, time.Time, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.result == nil {
		return nil, time.Time{}, ErrNoResult
	}
	return j.result, j.finishedAt, nil
}

// running must be called with mu held
func (j *jobs) running() bool {
	if j.done == nil {
		return false
	}
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}
