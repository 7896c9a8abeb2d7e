package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/jobs"
	"genstudio/internal/providers/prompt"
)

// JobStarter launches generation jobs.
type JobStarter interface {
	Profile(kind domain.JobKind) (jobs.Profile, bool)
	Start(ctx context.Context, kind domain.JobKind, req domain.JobRequest) <-chan domain.ProgressEvent
}

// JobCanceller relays cancellation to a backend.
type JobCanceller interface {
	Cancel(ctx context.Context, backend, jobID string) (json.RawMessage, error)
}

type GalleryLister interface {
	List(ctx context.Context) ([]domain.GalleryEntry, error)
}

type AssetReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// EngineInspector exposes the self-hosted engine's raw status documents.
type EngineInspector interface {
	Queue(ctx context.Context) (json.RawMessage, error)
	HistoryAll(ctx context.Context) (json.RawMessage, error)
	HistoryRaw(ctx context.Context, promptID string) (json.RawMessage, error)
	SystemStats(ctx context.Context) (json.RawMessage, error)
}

type PromptEnhancer interface {
	Enhance(ctx context.Context, text, kind string) (prompt.EnhanceResult, error)
}

type ChatAssistant interface {
	Reply(ctx context.Context, messages []prompt.Message) (prompt.Reply, error)
}

// App holds the dependencies shared by every handler.
type App struct {
	Jobs      JobStarter
	Cancels   JobCanceller
	Gallery   GalleryLister
	Assets    AssetReader
	Engine    EngineInspector
	Enhancer  PromptEnhancer
	Assistant ChatAssistant
	Logger    zerolog.Logger
	// EventWriteTimeout bounds the write of each streamed event.
	EventWriteTimeout time.Duration
}

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Message: message})
}

// fail writes err as {message} with a status derived from its class.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	evt := a.Logger.Warn()
	if code >= http.StatusInternalServerError {
		evt = a.Logger.Error()
	}
	evt.Err(err).Str("path", r.URL.Path).Int("status", code).Msg("request failed")
	a.error(w, code, domain.UserMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBackendUnreachable),
		errors.Is(err, domain.ErrBackendRejected),
		errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotConfigured), errors.Is(err, domain.ErrConfigMissing):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
