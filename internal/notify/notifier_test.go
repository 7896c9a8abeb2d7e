package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
)

type flakyPublisher struct {
	failures int
	calls    int
	bodies   [][]byte
	types    []string
}

func (p *flakyPublisher) Publish(ctx context.Context, body []byte, contentType string) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("channel closed")
	}
	p.bodies = append(p.bodies, body)
	p.types = append(p.types, contentType)
	return nil
}

func completion() domain.Completion {
	return domain.Completion{
		JobID:      "job-1",
		Kind:       domain.JobKindVideo,
		State:      domain.JobStateSucceeded,
		Assets:     []domain.AssetRef{{URL: "https://cdn/v.mp4"}},
		FinishedAt: time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestNotifyPublishesJSON(t *testing.T) {
	pub := &flakyPublisher{}
	n := NewNotifier(pub, 2, time.Millisecond, nil)

	require.NoError(t, n.Notify(context.Background(), completion()))
	require.Len(t, pub.bodies, 1)
	assert.Equal(t, "application/json", pub.types[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.bodies[0], &decoded))
	assert.Equal(t, "job-1", decoded["taskId"])
	assert.Equal(t, "video", decoded["kind"])
	assert.Equal(t, "succeeded", decoded["state"])
}

func TestNotifyRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	n := NewNotifier(pub, 2, time.Millisecond, nil)

	require.NoError(t, n.Notify(context.Background(), completion()))
	assert.Equal(t, 3, pub.calls)
}

func TestNotifyGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	n := NewNotifier(pub, 1, time.Millisecond, nil)

	err := n.Notify(context.Background(), completion())
	require.Error(t, err)
	assert.Equal(t, 2, pub.calls)
}

func TestNotifyStopsOnCanceledContext(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	n := NewNotifier(pub, 5, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, completion())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pub.calls)
}

func TestDialAMQPRequiresURL(t *testing.T) {
	_, err := DialAMQP(AMQPConfig{}, nil)
	assert.Error(t, err)
}
