// Package notify announces finished generation jobs on a message broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
)

// Publisher delivers one encoded message.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Notifier encodes job completions and publishes them with bounded retries.
type Notifier struct {
	pub       Publisher
	retries   int
	baseDelay time.Duration
	logger    zerolog.Logger
}

// NewNotifier wraps pub. retries is the number of extra attempts after the
// first failure; delays double from baseDelay.
func NewNotifier(pub Publisher, retries int, baseDelay time.Duration, logger *zerolog.Logger) *Notifier {
	if retries < 0 {
		retries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Notifier{pub: pub, retries: retries, baseDelay: baseDelay, logger: lg}
}

// Notify publishes c as JSON.
func (n *Notifier) Notify(ctx context.Context, c domain.Completion) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("notify: encode completion: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			delay := n.baseDelay << (attempt - 1)
			n.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("retry_after", delay).Str("job_id", c.JobID).Msg("notify: publish failed; retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if lastErr = n.pub.Publish(ctx, body, "application/json"); lastErr == nil {
			n.logger.Debug().Str("job_id", c.JobID).Str("state", string(c.State)).Msg("notify: completion published")
			return nil
		}
	}
	return fmt.Errorf("notify: publish after %d attempts: %w", n.retries+1, lastErr)
}
