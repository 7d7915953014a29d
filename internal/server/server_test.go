package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilescout/pkg/discovery"
	"profilescout/pkg/models"
)

// blockingJob runs until released or cancelled
type blockingJob struct {
	release chan struct{}
	req     StartRequest
}

func (j *blockingJob) Run(ctx context.Context) (*discovery.Result, error) {
	summary := models.RunSummary{QueriesPlanned: 2, QueriesExecuted: 2, Accepted: 1}
	select {
	case <-j.release:
	case <-ctx.Done():
		summary.TerminatedEarly = true
		summary.TerminationReason = "cancelled"
	}
	followers := 2500
	return &discovery.Result{
		Profiles: []models.Profile{{
			ProfileURL:    "https://www.linkedin.com/in/jane",
			Name:          "Jane Doe",
			FollowerCount: &followers,
			DiscoveredAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		}},
		Summary: summary,
	}, nil
}

func (j *blockingJob) Status() discovery.Status {
	return discovery.Status{Progress: discovery.Progress{State: discovery.StateFetching}}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type harness struct {
	srv      *Server
	launched []*blockingJob
	cleanups atomic.Int32
	finished atomic.Int32
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{}
	launch := func(req StartRequest) (Job, func(), error) {
		job := &blockingJob{release: make(chan struct{}), req: req}
		h.launched = append(h.launched, job)
		return job, func() { h.cleanups.Add(1) }, nil
	}
	opts = append(opts,
		WithOnFinished(func(*discovery.Result) { h.finished.Add(1) }),
		WithNow(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }),
	)
	h.srv = New(":0", launch, nil, opts...)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.srv.Wait(ctx))
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) JobStatus {
	t.Helper()
	var st JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestJobLifecycle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/results.csv", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no result before the first run")

	rec = h.do(t, http.MethodPost, "/api/jobs", `{"keywords":["RPA"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decodeStatus(t, rec).Running)
	require.Len(t, h.launched, 1)
	assert.Equal(t, []string{"RPA"}, h.launched[0].req.Keywords)

	rec = h.do(t, http.MethodPost, "/api/jobs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/jobs/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.True(t, st.Running)
	require.NotNil(t, st.Run)
	assert.Equal(t, discovery.StateFetching, st.Run.State)

	close(h.launched[0].release)
	h.wait(t)

	st = decodeStatus(t, h.do(t, http.MethodGet, "/api/jobs/status", ""))
	assert.False(t, st.Running)
	assert.NotNil(t, st.FinishedAt)
	assert.Equal(t, int32(1), h.cleanups.Load())
	assert.Equal(t, int32(1), h.finished.Load())

	rec = h.do(t, http.MethodGet, "/api/results.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "name,headline,location,profile_url"))
	assert.Contains(t, lines[1], "https://www.linkedin.com/in/jane")

	rec = h.do(t, http.MethodGet, "/api/summary.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "LinkedIn Scraping Summary Report")
	assert.Contains(t, rec.Body.String(), "Generated: 2024-05-01 10:00:00")
}

func TestStopJob(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/jobs/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/api/jobs", "").Code)
	rec = h.do(t, http.MethodPost, "/api/jobs/stop", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	h.wait(t)

	rec = h.do(t, http.MethodGet, "/api/summary.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled")

	require.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/api/jobs", "").Code, "a new run may start after stop")
	close(h.launched[1].release)
	h.wait(t)
}

func TestStartRejectsBadBody(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/jobs", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.launched)
}

func TestStartLaunchFailure(t *testing.T) {
	srv := New(":0", func(StartRequest) (Job, func(), error) {
		return nil, nil, errors.New("no stored session")
	}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no stored session")
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t, WithHealthCheck("redis", fakePinger{}))
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"server":"healthy","redis":"healthy"}`, rec.Body.String())

	h = newHarness(t, WithHealthCheck("postgres", fakePinger{err: errors.New("refused")}))
	rec = h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"server":"healthy","postgres":"unhealthy"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/metrics", "").Code)

	h = newHarness(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("profilescout_profiles_accepted_total 0\n"))
	})))
	rec := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "profilescout_profiles_accepted_total")
}

func TestShutdownStopsRunningJob(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/api/jobs", "").Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.srv.Shutdown(ctx))

	st := decodeStatus(t, h.do(t, http.MethodGet, "/api/jobs/status", ""))
	assert.False(t, st.Running)
}
