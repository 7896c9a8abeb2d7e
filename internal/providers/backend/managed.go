// Package backend adapts the provider clients to the job orchestrator.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"genstudio/internal/domain"
	"genstudio/internal/providers/runninghub"
)

// TaskService is the part of the RunningHub client used by Managed.
type TaskService interface {
	Submit(ctx context.Context, workflow json.RawMessage) (string, error)
	History(ctx context.Context) ([]runninghub.Task, error)
	Cancel(ctx context.Context, taskID string) (json.RawMessage, error)
}

// Managed runs jobs on the managed RunningHub service.
type Managed struct {
	svc TaskService
}

// NewManaged wraps svc.
func NewManaged(svc TaskService) *Managed {
	return &Managed{svc: svc}
}

// Submit creates a task from the filled workflow.
func (m *Managed) Submit(ctx context.Context, filled json.RawMessage) (string, error) {
	return m.svc.Submit(ctx, filled)
}

// Status looks the task up in the most recent history page. A task not yet
// listed is still pending.
func (m *Managed) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	tasks, err := m.svc.History(ctx)
	if err != nil {
		return domain.JobStatus{}, err
	}
	for _, task := range tasks {
		if task.TaskID != jobID {
			continue
		}
		switch {
		case task.TaskStatus == runninghub.StatusSuccess:
			if task.FileURL == "" {
				return domain.JobStatus{}, fmt.Errorf("backend: task %s succeeded without fileUrl: %w", jobID, domain.ErrMalformedResponse)
			}
			return domain.JobStatus{
				State:  domain.JobStateSucceeded,
				Result: domain.ResultPointer{ManifestURL: task.FileURL},
			}, nil
		case task.TaskStatus == runninghub.StatusFailed:
			return domain.JobStatus{State: domain.JobStateFailed, Message: "Task failed on RunningHub"}, nil
		case runninghub.IsCancelled(task.TaskStatus):
			return domain.JobStatus{State: domain.JobStateFailed, Message: "Job was cancelled"}, nil
		default:
			return domain.JobStatus{State: domain.JobStatePending}, nil
		}
	}
	return domain.JobStatus{State: domain.JobStatePending}, nil
}

// Cancel forwards to the service.
func (m *Managed) Cancel(ctx context.Context, jobID string) (json.RawMessage, error) {
	return m.svc.Cancel(ctx, jobID)
}
