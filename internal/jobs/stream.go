package jobs

import (
	"context"
	"errors"
	"sync"

	"genstudio/internal/domain"
)

var (
	errOutOfOrder   = errors.New("jobs: event emitted out of order")
	errStreamClosed = errors.New("jobs: stream already terminated")
	errNoTerminal   = errors.New("jobs: job ended without a result")
)

// Emitter publishes the events of one job-handling stream. It guarantees
// that submitted precedes every heartbeat and that exactly one terminal event
// is sent.
type Emitter struct {
	ctx context.Context
	out chan<- domain.ProgressEvent

	mu        sync.Mutex
	jobID     string
	submitted bool
	done      bool
}

// Submitted emits the backend job id. It may be called once.
func (e *Emitter) Submitted(jobID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errStreamClosed
	}
	if e.submitted {
		return errOutOfOrder
	}
	e.submitted = true
	e.jobID = jobID
	return e.send(domain.ProgressEvent{Type: domain.EventSubmitted, JobID: jobID})
}

// Heartbeat emits a keep-alive for poll attempt.
func (e *Emitter) Heartbeat(attempt, maxAttempts int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errStreamClosed
	}
	if !e.submitted {
		return errOutOfOrder
	}
	return e.send(domain.ProgressEvent{
		Type:        domain.EventHeartbeat,
		JobID:       e.jobID,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	})
}

// Result emits the terminal success event.
func (e *Emitter) Result(assets []domain.AssetRef, seed int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errStreamClosed
	}
	e.done = true
	return e.send(domain.ProgressEvent{Type: domain.EventResult, JobID: e.jobID, Assets: assets, Seed: seed})
}

// Fail emits the terminal error event for err.
func (e *Emitter) Fail(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errStreamClosed
	}
	e.done = true
	return e.send(domain.ProgressEvent{Type: domain.EventError, JobID: e.jobID, Message: domain.UserMessage(err)})
}

func (e *Emitter) terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// send blocks until the consumer reads the event or the context ends.
func (e *Emitter) send(ev domain.ProgressEvent) error {
	select {
	case e.out <- ev:
		return nil
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// Run executes fn in its own goroutine and returns the event stream it
// produces. The channel is unbuffered so each event reaches the consumer as
// soon as it is emitted; it is closed after the terminal event or once ctx is
// done. If fn returns without a terminal event, its error (or a generic one)
// is emitted as the terminal error.
func Run(ctx context.Context, fn func(ctx context.Context, em *Emitter) error) <-chan domain.ProgressEvent {
	out := make(chan domain.ProgressEvent)
	em := &Emitter{ctx: ctx, out: out}
	go func() {
		defer close(out)
		err := fn(ctx, em)
		if em.terminated() {
			return
		}
		if err == nil {
			err = errNoTerminal
		}
		_ = em.Fail(err)
	}()
	return out
}
