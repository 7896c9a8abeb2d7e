package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
)

// StatusFunc performs one status query for a job.
type StatusFunc func(ctx context.Context, jobID string) (domain.JobStatus, error)

// HeartbeatFunc receives one heartbeat per non-terminal attempt. A non-nil
// error stops the poll loop.
type HeartbeatFunc func(attempt, maxAttempts int) error

// Poller drives the status state machine of one job on a fixed interval.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      zerolog.Logger
	Kind        domain.JobKind // log label only
}

// NewPoller builds a poller from a kind profile.
func NewPoller(profile Profile, logger zerolog.Logger) Poller {
	return Poller{
		Interval:    profile.Interval,
		MaxAttempts: profile.MaxAttempts,
		Logger:      logger,
		Kind:        profile.Kind,
	}
}

// Poll sleeps one interval before every query. Transient query errors and
// pending states are logged and followed by a heartbeat; an explicit failure
// returns domain.ErrJobFailed at once. Exhausting MaxAttempts returns
// domain.ErrPollTimeout. The loop ends early when ctx is done.
func (p Poller) Poll(ctx context.Context, jobID string, status StatusFunc, heartbeat HeartbeatFunc) (domain.JobStatus, error) {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(p.Interval)
		}
		select {
		case <-ctx.Done():
			return domain.JobStatus{State: domain.JobStatePending}, ctx.Err()
		case <-timer.C:
		}
		if err := ctx.Err(); err != nil {
			return domain.JobStatus{State: domain.JobStatePending}, err
		}

		st, err := status(ctx, jobID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.JobStatus{State: domain.JobStatePending}, ctxErr
			}
			p.Logger.Warn().Err(err).
				Str("job_id", jobID).
				Str("kind", string(p.Kind)).
				Int("attempt", attempt).
				Msg("status query failed; retrying")
		case st.State == domain.JobStateSucceeded:
			return st, nil
		case st.State == domain.JobStateFailed:
			msg := st.Message
			if msg == "" {
				msg = "backend reported failure"
			}
			return st, fmt.Errorf("%w: %s", domain.ErrJobFailed, msg)
		default:
			p.Logger.Debug().
				Str("job_id", jobID).
				Str("kind", string(p.Kind)).
				Int("attempt", attempt).
				Str("detail", st.Message).
				Msg("job pending")
		}

		if heartbeat != nil {
			if err := heartbeat(attempt, p.MaxAttempts); err != nil {
				return domain.JobStatus{State: domain.JobStatePending}, err
			}
		}
	}
	return domain.JobStatus{State: domain.JobStateTimedOut}, fmt.Errorf("jobs: %s after %d attempts: %w", jobID, p.MaxAttempts, domain.ErrPollTimeout)
}
