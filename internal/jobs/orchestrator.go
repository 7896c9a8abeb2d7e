package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/workflow"
)

// Backend submits filled templates and answers status queries.
type Backend interface {
	Submit(ctx context.Context, filled json.RawMessage) (string, error)
	Status(ctx context.Context, jobID string) (domain.JobStatus, error)
}

// Templates hands out loaded workflow templates per kind.
type Templates interface {
	Load(kind domain.JobKind) (*workflow.Template, error)
}

// Fetcher turns a result pointer into concrete asset references.
type Fetcher interface {
	Fetch(ctx context.Context, ptr domain.ResultPointer, seed int64) ([]domain.AssetRef, error)
}

// GalleryAppender records produced assets.
type GalleryAppender interface {
	Append(ctx context.Context, entries []domain.GalleryEntry) error
}

// Notifier announces finished jobs.
type Notifier interface {
	Notify(ctx context.Context, c domain.Completion) error
}

// Pipeline is everything the orchestrator needs to run one kind.
type Pipeline struct {
	Profile Profile
	Backend Backend
	Fetcher Fetcher
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Templates Templates
	Gallery   GalleryAppender
	Notifier  Notifier
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// Orchestrator runs the submit, poll, fetch and record lifecycle of jobs.
type Orchestrator struct {
	templates Templates
	gallery   GalleryAppender
	notifier  Notifier
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	pipelines map[domain.JobKind]Pipeline

	inflight sync.WaitGroup
}

// NewOrchestrator constructs an orchestrator without any registered kinds.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	lg := zerolog.Nop()
	if opts.Logger != nil {
		lg = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		templates: opts.Templates,
		gallery:   opts.Gallery,
		notifier:  opts.Notifier,
		logger:    lg,
		now:       now,
		pipelines: make(map[domain.JobKind]Pipeline),
	}
}

// Register installs the pipeline for kind.
func (o *Orchestrator) Register(kind domain.JobKind, p Pipeline) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p.Profile.Kind = kind
	o.pipelines[kind] = p
}

// Profile returns the registered profile of kind.
func (o *Orchestrator) Profile(kind domain.JobKind) (Profile, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.pipelines[kind]
	return p.Profile, ok
}

// Start launches one job and returns its event stream. The stream ends after
// exactly one terminal event, or earlier if ctx is done.
func (o *Orchestrator) Start(ctx context.Context, kind domain.JobKind, req domain.JobRequest) <-chan domain.ProgressEvent {
	return Run(ctx, func(ctx context.Context, em *Emitter) error {
		o.mu.RLock()
		p, ok := o.pipelines[kind]
		o.mu.RUnlock()
		if !ok {
			return fmt.Errorf("jobs: kind %q: %w", kind, domain.ErrNotConfigured)
		}
		return o.run(ctx, em, kind, p, req)
	})
}

func (o *Orchestrator) run(ctx context.Context, em *Emitter, kind domain.JobKind, p Pipeline, req domain.JobRequest) error {
	logger := o.logger.With().Str("kind", string(kind)).Int64("seed", req.Seed).Logger()

	if o.templates == nil {
		return fmt.Errorf("jobs: no template store: %w", domain.ErrConfigMissing)
	}
	tpl, err := o.templates.Load(kind)
	if err != nil {
		logger.Error().Err(err).Msg("load workflow template")
		return err
	}
	filled, err := tpl.Fill(req)
	if err != nil {
		logger.Error().Err(err).Msg("fill workflow template")
		return err
	}

	jobID, err := p.Backend.Submit(ctx, filled)
	if err != nil {
		logger.Error().Err(err).Msg("submit job")
		return err
	}
	job := domain.Job{ID: jobID, Kind: kind, State: domain.JobStatePending, CreatedAt: o.now()}
	logger = logger.With().Str("job_id", job.ID).Logger()
	logger.Info().Msg("job submitted")
	if err := em.Submitted(job.ID); err != nil {
		return err
	}

	poller := NewPoller(p.Profile, logger)
	status, err := poller.Poll(ctx, job.ID, p.Backend.Status, em.Heartbeat)
	job.State = status.State
	if err != nil {
		if status.State.Terminal() {
			logger.Warn().Err(err).Str("state", string(job.State)).Dur("elapsed", o.now().Sub(job.CreatedAt)).Msg("job did not succeed")
			o.notify(ctx, logger, domain.Completion{JobID: job.ID, Kind: kind, State: job.State, Message: domain.UserMessage(err)})
		} else {
			logger.Info().Err(err).Msg("poll loop stopped")
		}
		return err
	}

	assets, err := p.Fetcher.Fetch(ctx, status.Result, req.Seed)
	if err != nil {
		logger.Error().Err(err).Msg("fetch assets")
		return err
	}

	entries := make([]domain.GalleryEntry, 0, len(assets))
	createdAt := o.now().UTC()
	for _, asset := range assets {
		entry := req.Entry(kind, asset)
		entry.CreatedAt = createdAt
		entry.TaskID = job.ID
		entries = append(entries, entry)
	}
	if o.gallery != nil && len(entries) > 0 {
		if err := o.gallery.Append(context.WithoutCancel(ctx), entries); err != nil {
			logger.Error().Err(err).Int("entries", len(entries)).Msg("append gallery")
		}
	}
	logger.Info().Int("assets", len(assets)).Dur("elapsed", o.now().Sub(job.CreatedAt)).Msg("job completed")
	err = em.Result(assets, req.Seed)
	o.notify(ctx, logger, domain.Completion{JobID: job.ID, Kind: kind, State: job.State, Assets: assets, Entries: entries})
	return err
}

// notify publishes in the background so retries never hold back the
// terminal event.
func (o *Orchestrator) notify(ctx context.Context, logger zerolog.Logger, c domain.Completion) {
	if o.notifier == nil {
		return
	}
	c.FinishedAt = o.now().UTC()
	ctx = context.WithoutCancel(ctx)
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		if err := o.notifier.Notify(ctx, c); err != nil {
			logger.Warn().Err(err).Msg("publish completion")
		}
	}()
}

// Wait blocks until every in-flight completion notification has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}
