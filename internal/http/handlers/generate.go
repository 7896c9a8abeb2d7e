package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/jobs"
)

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.JobKindImage)
}

func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.JobKindVideo)
}

func (a *App) GenerateComfyUI(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.JobKindComfyUI)
}

// generate streams one job. Request problems are reported as the stream's
// single error event so every generation route speaks the same protocol.
func (a *App) generate(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req, err := a.parseJob(r, kind)
	var events <-chan domain.ProgressEvent
	if err != nil {
		a.Logger.Warn().Err(err).Str("kind", string(kind)).Msg("rejecting generation request")
		events = jobs.Run(ctx, func(context.Context, *jobs.Emitter) error { return err })
	} else {
		events = a.Jobs.Start(ctx, kind, req)
	}
	a.stream(w, r, kind, events)
}

func (a *App) parseJob(r *http.Request, kind domain.JobKind) (domain.JobRequest, error) {
	profile, ok := a.Jobs.Profile(kind)
	if !ok {
		return domain.JobRequest{}, fmt.Errorf("kind %s: %w", kind, domain.ErrNotConfigured)
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return domain.JobRequest{}, fmt.Errorf("read body: %v: %w", err, domain.ErrInvalidRequest)
	}
	return jobs.ParseRequest(profile, body)
}
