package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/fetch"
	"genstudio/internal/gallery"
	"genstudio/internal/http/handlers"
	"genstudio/internal/http/httpapi"
	"genstudio/internal/infra"
	"genstudio/internal/infra/credentials"
	"genstudio/internal/jobs"
	"genstudio/internal/notify"
	"genstudio/internal/providers/backend"
	"genstudio/internal/providers/comfyui"
	"genstudio/internal/providers/prompt"
	"genstudio/internal/providers/runninghub"
	"genstudio/internal/storage"
	"genstudio/internal/workflow"
)

type service struct {
	Router   http.Handler
	Backends []string
	closers  []func()
}

func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// wire builds every component from cfg. Missing credentials, templates or
// engine URLs only degrade the affected routes.
func wire(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*service, error) {
	svc := &service{}

	overrides, err := jobs.LoadOverrides(cfg.KindsFile)
	if err != nil {
		return nil, err
	}
	profiles := jobs.ApplyOverrides(jobs.DefaultProfiles(), overrides)

	paths := map[domain.JobKind]string{
		domain.JobKindImage:   cfg.ImageWorkflowFile,
		domain.JobKindVideo:   cfg.VideoWorkflowFile,
		domain.JobKindComfyUI: cfg.ComfyWorkflowFile,
	}
	for kind, o := range overrides {
		if o.Template != "" {
			paths[kind] = o.Template
		}
	}
	templates := workflow.NewStore(paths, &logger)
	if err := templates.Preload(); err != nil {
		logger.Warn().Err(err).Msg("some workflow templates are unavailable")
	}

	creds, err := credentials.Load(cfg.TokenFile, cfg.RunningHubAPIKey)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.TokenFile).Msg("runninghub credentials unavailable")
	}
	token, _ := creds.RunningHubToken()
	rh, err := runninghub.NewClient(runninghub.Options{APIKey: token, BaseURL: cfg.RunningHubBaseURL, Logger: &logger})
	if err != nil {
		return nil, err
	}
	engineClient, err := comfyui.NewClient(comfyui.Options{BaseURL: cfg.ComfyUIURL, Logger: &logger})
	if err != nil {
		return nil, err
	}
	if !engineClient.Configured() {
		logger.Warn().Msg("COMFYUI_API_URL not set; /comfyui is disabled")
	}
	managed := backend.NewManaged(rh)
	engine := backend.NewEngine(engineClient)

	generated, err := storage.NewFileStore(cfg.GeneratedDir)
	if err != nil {
		return nil, err
	}
	manifests := fetch.NewManifestResolver(fetch.ManifestOptions{Logger: &logger})
	rehoster := fetch.NewRehoster(generated, engineClient, &logger)

	store, err := openGallery(ctx, cfg, logger, svc)
	if err != nil {
		return nil, err
	}

	var notifier jobs.Notifier
	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(notify.AMQPConfig{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
		}, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("completion notifications disabled")
		} else {
			svc.closers = append(svc.closers, func() { _ = pub.Close() })
			notifier = notify.NewNotifier(pub, 2, 250*time.Millisecond, &logger)
		}
	}

	orch := jobs.NewOrchestrator(jobs.OrchestratorOptions{
		Templates: templates,
		Gallery:   store,
		Notifier:  notifier,
		Logger:    &logger,
	})
	svc.closers = append(svc.closers, orch.Wait)
	orch.Register(domain.JobKindImage, jobs.Pipeline{
		Profile: profiles[domain.JobKindImage],
		Backend: managed,
		Fetcher: fetch.Pipeline{Resolver: manifests},
	})
	orch.Register(domain.JobKindVideo, jobs.Pipeline{
		Profile: profiles[domain.JobKindVideo],
		Backend: managed,
		Fetcher: fetch.Pipeline{Resolver: manifests},
	})
	orch.Register(domain.JobKindComfyUI, jobs.Pipeline{
		Profile: profiles[domain.JobKindComfyUI],
		Backend: engine,
		Fetcher: fetch.Pipeline{Resolver: fetch.ListResolver{}, Rehoster: rehoster},
	})

	cancels := jobs.NewCancelService(jobs.BackendRunningHub, &logger)
	cancels.Register(jobs.BackendRunningHub, managed)
	cancels.Register(jobs.BackendComfyUI, engine)
	svc.Backends = cancels.Backends()

	chat := prompt.NewChatClient(prompt.ChatOptions{
		APIKey:  cfg.ChatAPIKey,
		Model:   cfg.ChatModel,
		BaseURL: cfg.ChatBaseURL,
		Logger:  &logger,
	})

	app := &handlers.App{
		Jobs:              orch,
		Cancels:           cancels,
		Gallery:           store,
		Assets:            generated,
		Engine:            engineClient,
		Enhancer:          prompt.NewEnhancer(chat),
		Assistant:         prompt.NewAssistant(chat, &logger, nil),
		Logger:            logger,
		EventWriteTimeout: cfg.HTTPWriteTimeout,
	}
	svc.Router = httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	return svc, nil
}

// openGallery picks PostgreSQL when DATABASE_URL is set and the JSON file
// otherwise.
func openGallery(ctx context.Context, cfg *infra.Config, logger infra.Logger, svc *service) (gallery.Store, error) {
	if cfg.DatabaseURL == "" {
		store, err := gallery.NewFileStore(cfg.GalleryFile, &logger)
		if err != nil {
			return nil, fmt.Errorf("open gallery file: %w", err)
		}
		return store, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, pool.Close)
	store := gallery.NewPGStore(infra.NewSQLRunner(pool, logger))
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare gallery table: %w", err)
	}
	logger.Info().Msg("gallery stored in postgres")
	return store, nil
}
