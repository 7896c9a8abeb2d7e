package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"genstudio/internal/domain"
)

// sseEvent is the wire form of a progress event.
type sseEvent struct {
	Type        domain.EventType `json:"type"`
	TaskID      string           `json:"taskId,omitempty"`
	Attempt     int              `json:"attempt,omitempty"`
	MaxAttempts int              `json:"maxAttempts,omitempty"`
	Files       []string         `json:"files,omitempty"`
	VideoURL    string           `json:"videoUrl,omitempty"`
	Seed        *int64           `json:"seed,omitempty"`
	Message     string           `json:"message,omitempty"`
}

func toSSE(kind domain.JobKind, ev domain.ProgressEvent) sseEvent {
	out := sseEvent{Type: ev.Type, TaskID: ev.JobID}
	switch ev.Type {
	case domain.EventHeartbeat:
		out.TaskID = ""
		out.Attempt = ev.Attempt
		out.MaxAttempts = ev.MaxAttempts
	case domain.EventResult:
		files := make([]string, 0, len(ev.Assets))
		for _, asset := range ev.Assets {
			files = append(files, asset.URL)
		}
		out.Files = files
		if kind == domain.JobKindVideo && len(files) > 0 {
			out.VideoURL = files[0]
		}
		seed := ev.Seed
		out.Seed = &seed
	case domain.EventError:
		out.Message = ev.Message
	}
	return out
}

// stream relays events as server-sent events until the channel closes. Each
// event is flushed as soon as it is written.
func (a *App) stream(w http.ResponseWriter, r *http.Request, kind domain.JobKind, events <-chan domain.ProgressEvent) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	a.extendDeadline(rc)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.Logger.Warn().Err(err).Msg("stream: flush headers")
		return
	}

	for ev := range events {
		payload, err := json.Marshal(toSSE(kind, ev))
		if err != nil {
			a.Logger.Error().Err(err).Str("type", string(ev.Type)).Msg("stream: encode event")
			return
		}
		a.extendDeadline(rc)
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			a.Logger.Info().Err(err).Str("kind", string(kind)).Msg("stream: client gone")
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			a.Logger.Info().Err(err).Str("kind", string(kind)).Msg("stream: client gone")
			return
		}
	}
}

func (a *App) extendDeadline(rc *http.ResponseController) {
	if a.EventWriteTimeout <= 0 {
		return
	}
	if err := rc.SetWriteDeadline(time.Now().Add(a.EventWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.Logger.Debug().Err(err).Msg("stream: set write deadline")
	}
}
