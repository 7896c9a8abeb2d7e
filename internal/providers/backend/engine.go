package backend

import (
	"context"
	"encoding/json"

	"genstudio/internal/domain"
	"genstudio/internal/providers/comfyui"
)

// PromptService is the part of the ComfyUI client used by Engine.
type PromptService interface {
	QueuePrompt(ctx context.Context, graph json.RawMessage) (string, error)
	History(ctx context.Context, promptID string) (comfyui.HistoryEntry, bool, error)
	QueuePosition(ctx context.Context, promptID string) (comfyui.QueueState, error)
	ViewURL(img comfyui.Image) string
	Cancel(ctx context.Context, promptID string) (json.RawMessage, error)
}

// Engine runs jobs on a self-hosted ComfyUI instance.
type Engine struct {
	svc PromptService
}

// NewEngine wraps svc.
func NewEngine(svc PromptService) *Engine {
	return &Engine{svc: svc}
}

// Submit queues the filled node graph.
func (e *Engine) Submit(ctx context.Context, filled json.RawMessage) (string, error) {
	return e.svc.QueuePrompt(ctx, filled)
}

// Status reads the prompt's history entry. A prompt found neither in history
// nor in the queue was deleted or cancelled and is reported as failed.
func (e *Engine) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	entry, ok, err := e.svc.History(ctx, jobID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	if !ok {
		state, err := e.svc.QueuePosition(ctx, jobID)
		if err != nil {
			return domain.JobStatus{}, err
		}
		if state != comfyui.QueueAbsent {
			return domain.JobStatus{State: domain.JobStatePending}, nil
		}
		// the prompt may have finished between the two reads
		if entry, ok, err = e.svc.History(ctx, jobID); err != nil {
			return domain.JobStatus{}, err
		}
		if !ok {
			return domain.JobStatus{State: domain.JobStateFailed, Message: "Job was cancelled"}, nil
		}
	}
	if entry.Failed() {
		return domain.JobStatus{State: domain.JobStateFailed, Message: "ComfyUI reported an execution error"}, nil
	}
	images := entry.Images()
	if len(images) == 0 {
		return domain.JobStatus{State: domain.JobStatePending}, nil
	}
	assets := make([]domain.RemoteAsset, 0, len(images))
	for _, img := range images {
		assets = append(assets, domain.RemoteAsset{URL: e.svc.ViewURL(img), Filename: img.Filename})
	}
	return domain.JobStatus{
		State:  domain.JobStateSucceeded,
		Result: domain.ResultPointer{Assets: assets},
	}, nil
}

// Cancel deletes the prompt when pending or interrupts it when running.
func (e *Engine) Cancel(ctx context.Context, jobID string) (json.RawMessage, error) {
	return e.svc.Cancel(ctx, jobID)
}
