package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
)

func collect(t *testing.T, events <-chan domain.ProgressEvent) []domain.ProgressEvent {
	t.Helper()
	var out []domain.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events", len(out))
		}
	}
}

func types(events []domain.ProgressEvent) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestRunEmitsOrderedStream(t *testing.T) {
	events := collect(t, Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		require.NoError(t, em.Submitted("job-9"))
		require.NoError(t, em.Heartbeat(1, 3))
		require.NoError(t, em.Heartbeat(2, 3))
		return em.Result([]domain.AssetRef{{URL: "https://cdn/a.png"}}, 42)
	}))

	assert.Equal(t, []domain.EventType{domain.EventSubmitted, domain.EventHeartbeat, domain.EventHeartbeat, domain.EventResult}, types(events))
	assert.Equal(t, "job-9", events[0].JobID)
	assert.Equal(t, 2, events[2].Attempt)
	assert.Equal(t, 3, events[2].MaxAttempts)
	assert.Equal(t, int64(42), events[3].Seed)
	assert.Equal(t, "job-9", events[3].JobID)
}

func TestRunTurnsErrorIntoTerminalEvent(t *testing.T) {
	events := collect(t, Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		return errors.New("token.json not found")
	}))
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
	assert.Equal(t, "token.json not found", events[0].Message)
}

func TestRunWithoutTerminalEmitsError(t *testing.T) {
	events := collect(t, Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		return em.Submitted("job-1")
	}))
	assert.Equal(t, []domain.EventType{domain.EventSubmitted, domain.EventError}, types(events))
}

func TestEmitterRejectsSecondTerminal(t *testing.T) {
	var second, late error
	events := collect(t, Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		_ = em.Submitted("job-1")
		_ = em.Fail(domain.ErrPollTimeout)
		second = em.Result(nil, 1)
		late = em.Heartbeat(9, 9)
		return errors.New("ignored")
	}))

	assert.Equal(t, []domain.EventType{domain.EventSubmitted, domain.EventError}, types(events))
	assert.Equal(t, domain.UserMessage(domain.ErrPollTimeout), events[1].Message)
	assert.ErrorIs(t, second, errStreamClosed)
	assert.ErrorIs(t, late, errStreamClosed)
}

func TestEmitterRejectsHeartbeatBeforeSubmitted(t *testing.T) {
	var early error
	events := collect(t, Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		early = em.Heartbeat(1, 2)
		return early
	}))
	assert.ErrorIs(t, early, errOutOfOrder)
	assert.Equal(t, []domain.EventType{domain.EventError}, types(events))
}

func TestRunStopsWhenConsumerLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan error, 1)
	events := Run(ctx, func(ctx context.Context, em *Emitter) error {
		_ = em.Submitted("job-1")
		err := em.Heartbeat(1, 10)
		finished <- err
		return err
	})

	first := <-events
	assert.Equal(t, domain.EventSubmitted, first.Type)
	cancel()

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("emitter blocked after the consumer left")
	}
	collect(t, events)
}
