package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
)

// scriptedStatus answers queries from a fixed script; the last entry repeats.
type scriptedStatus struct {
	script []statusStep
	calls  atomic.Int32
	times  []time.Time
}

type statusStep struct {
	status domain.JobStatus
	err    error
}

func (s *scriptedStatus) query(ctx context.Context, jobID string) (domain.JobStatus, error) {
	n := int(s.calls.Add(1))
	s.times = append(s.times, time.Now())
	step := s.script[min(n, len(s.script))-1]
	return step.status, step.err
}

func pending() statusStep {
	return statusStep{status: domain.JobStatus{State: domain.JobStatePending}}
}

func succeeded(url string) statusStep {
	return statusStep{status: domain.JobStatus{State: domain.JobStateSucceeded, Result: domain.ResultPointer{ManifestURL: url}}}
}

func failed(msg string) statusStep {
	return statusStep{status: domain.JobStatus{State: domain.JobStateFailed, Message: msg}}
}

type beats struct {
	attempts []int
	max      []int
}

func (b *beats) record(attempt, maxAttempts int) error {
	b.attempts = append(b.attempts, attempt)
	b.max = append(b.max, maxAttempts)
	return nil
}

func testPoller(interval time.Duration, attempts int) Poller {
	return Poller{Interval: interval, MaxAttempts: attempts, Logger: zerolog.Nop(), Kind: domain.JobKindImage}
}

func TestPollSucceedsOnThirdAttempt(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{pending(), {err: errors.New("flaky")}, succeeded("https://cdn/x.txt")}}
	var hb beats

	st, err := testPoller(time.Millisecond, 5).Poll(context.Background(), "job-1", status.query, hb.record)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSucceeded, st.State)
	assert.Equal(t, "https://cdn/x.txt", st.Result.ManifestURL)
	assert.Equal(t, int32(3), status.calls.Load())
	assert.Equal(t, []int{1, 2}, hb.attempts)
	assert.Equal(t, []int{5, 5}, hb.max)
}

func TestPollFailureOnFirstAttempt(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{failed("Task failed")}}
	var hb beats

	st, err := testPoller(time.Millisecond, 5).Poll(context.Background(), "job-1", status.query, hb.record)
	require.ErrorIs(t, err, domain.ErrJobFailed)
	assert.Contains(t, err.Error(), "Task failed")
	assert.Equal(t, domain.JobStateFailed, st.State)
	assert.Empty(t, hb.attempts)
	assert.Equal(t, int32(1), status.calls.Load())
}

func TestPollTimesOutAfterMaxAttempts(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{pending()}}
	var hb beats

	st, err := testPoller(time.Millisecond, 4).Poll(context.Background(), "job-1", status.query, hb.record)
	require.ErrorIs(t, err, domain.ErrPollTimeout)
	assert.Equal(t, domain.JobStateTimedOut, st.State)
	assert.Equal(t, int32(4), status.calls.Load())
	assert.Equal(t, []int{1, 2, 3, 4}, hb.attempts)
}

func TestPollToleratesTransientErrors(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{{err: errors.New("dial tcp: refused")}}}
	var hb beats

	_, err := testPoller(time.Millisecond, 3).Poll(context.Background(), "job-1", status.query, hb.record)
	require.ErrorIs(t, err, domain.ErrPollTimeout)
	assert.Len(t, hb.attempts, 3)
}

func TestPollSleepsBetweenQueries(t *testing.T) {
	interval := 20 * time.Millisecond
	status := &scriptedStatus{script: []statusStep{pending(), pending(), succeeded("u")}}
	start := time.Now()

	_, err := testPoller(interval, 5).Poll(context.Background(), "job-1", status.query, nil)
	require.NoError(t, err)
	require.Len(t, status.times, 3)
	assert.GreaterOrEqual(t, status.times[0].Sub(start), interval)
	for i := 1; i < len(status.times); i++ {
		assert.GreaterOrEqual(t, status.times[i].Sub(status.times[i-1]), interval)
	}
}

func TestPollStopsWhenContextEnds(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{pending()}}
	ctx, cancel := context.WithCancel(context.Background())
	var hb beats
	heartbeat := func(attempt, maxAttempts int) error {
		_ = hb.record(attempt, maxAttempts)
		if attempt == 2 {
			cancel()
		}
		return nil
	}

	_, err := testPoller(time.Millisecond, 100).Poll(ctx, "job-1", status.query, heartbeat)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), status.calls.Load())
}

func TestPollStopsWhenHeartbeatFails(t *testing.T) {
	status := &scriptedStatus{script: []statusStep{pending()}}
	gone := errors.New("consumer gone")

	_, err := testPoller(time.Millisecond, 10).Poll(context.Background(), "job-1", status.query, func(int, int) error { return gone })
	require.ErrorIs(t, err, gone)
	assert.Equal(t, int32(1), status.calls.Load())
}
