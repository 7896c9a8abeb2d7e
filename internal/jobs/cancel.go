package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
)

// Backend names accepted by CancelService.
const (
	BackendRunningHub = "runninghub"
	BackendComfyUI    = "comfyui"
)

// Canceller relays a cancel instruction to one backend.
type Canceller interface {
	Cancel(ctx context.Context, jobID string) (json.RawMessage, error)
}

// CancelService routes cancel requests to the backend that owns the job. It
// never touches running pollers; they observe the cancellation on their next
// status query.
type CancelService struct {
	cancellers map[string]Canceller
	fallback   string
	logger     zerolog.Logger
}

// NewCancelService builds a service that uses fallback when a request names
// no backend.
func NewCancelService(fallback string, logger *zerolog.Logger) *CancelService {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &CancelService{
		cancellers: make(map[string]Canceller),
		fallback:   fallback,
		logger:     lg,
	}
}

// Register installs the canceller for backend.
func (s *CancelService) Register(backend string, c Canceller) {
	s.cancellers[strings.ToLower(backend)] = c
}

// Backends lists registered backend names.
func (s *CancelService) Backends() []string {
	out := make([]string, 0, len(s.cancellers))
	for name := range s.cancellers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cancel relays the cancellation and returns the backend acknowledgement.
func (s *CancelService) Cancel(ctx context.Context, backend, jobID string) (json.RawMessage, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("jobs: taskId required: %w", domain.ErrInvalidRequest)
	}
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = s.fallback
	}
	c, ok := s.cancellers[backend]
	if !ok {
		return nil, fmt.Errorf("jobs: unknown backend %q: %w", backend, domain.ErrInvalidRequest)
	}
	ack, err := c.Cancel(ctx, jobID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("backend", backend).Msg("cancel failed")
		return nil, err
	}
	s.logger.Info().Str("job_id", jobID).Str("backend", backend).Msg("cancel relayed")
	return ack, nil
}
