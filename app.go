package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"artloop/backend"
	"artloop/core"
	"artloop/history"
	"artloop/logging"
	"artloop/metrics"
	"artloop/orchestrator"
	"artloop/plugins"
	"artloop/prompt"
	"artloop/scheduler"
	"artloop/shutdown"
	"artloop/storage"
)

// App wires the generation loop: plugins, composer, backend, storage,
// history, metrics and the scheduler, plus the shutdown order for all of it.
type App struct {
	cfg      *core.Config
	logger   *logging.Logger
	registry *plugins.Registry
	orch     *orchestrator.Orchestrator
	sched    *scheduler.Scheduler
	metrics  *metrics.Store
	sink     *orchestrator.AsyncSink
	historyD *sql.DB
	cleanup  *shutdown.Registry
}

// newApp builds the full pipeline from configuration.
func newApp(cfg *core.Config, logger *logging.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	registry := plugins.NewRegistry()
	if err := plugins.RegisterBuiltins(registry, plugins.BuiltinConfig{
		Enabled:       cfg.EnabledPlugins,
		Order:         cfg.PluginOrder,
		HolidaysFile:  cfg.HolidaysFile,
		ArtStylesFile: cfg.ArtStylesFile,
		Lora: plugins.LoraConfig{
			Dir:         cfg.LoraDir,
			Enabled:     cfg.EnabledLoras,
			Probability: cfg.LoraProbability,
		},
	}); err != nil {
		return nil, fmt.Errorf("register plugins: %w", err)
	}

	pipeline, err := plugins.NewPipeline(registry, logger.Named("plugins"))
	if err != nil {
		return nil, err
	}

	textService, err := prompt.NewOpenAIService(prompt.OpenAIServiceConfig{
		APIKey:      cfg.TextLLMKey,
		BaseURL:     cfg.TextLLMURL,
		Model:       cfg.TextLLMModel,
		Temperature: cfg.TextTemperature,
	})
	if err != nil {
		return nil, err
	}
	composer := prompt.NewComposer(textService, logger.Named("prompt"))

	imageBackend, err := backend.New(cfg, logger.Named("backend"))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.OutputDir, logger.Named("storage"))
	if err != nil {
		return nil, err
	}

	db, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return nil, err
	}
	repo, err := history.NewRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	metricsStore := metrics.NewStore(100)
	recorder := history.NewRecorder(repo, logger.Named("history"))
	sink := orchestrator.NewAsyncSink(
		orchestrator.FanoutSink{recorder, metricsStore}, 64, logger)

	orch, err := orchestrator.New(pipeline, composer, imageBackend, store, sink, logger.Named("orchestrator"), orchestrator.Options{
		MaxAttempts:    cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		AttemptTimeout: cfg.GenerationTimeout,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	params := backend.ParamsFromConfig(cfg)
	requests := func() orchestrator.GenerationRequest {
		return orchestrator.GenerationRequest{
			Prompt:        cfg.BasePrompt,
			Seed:          -1,
			Params:        params,
			EnablePlugins: cfg.EnablePlugins,
		}
	}

	sched, err := scheduler.New(orch, requests, cfg.LoopInterval, cfg.BatchSize, logger.Named("scheduler"))
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		orch:     orch,
		sched:    sched,
		metrics:  metricsStore,
		sink:     sink,
		historyD: db,
		cleanup:  shutdown.NewRegistry(),
	}
	app.registerCleanup()
	return app, nil
}

func (a *App) registerCleanup() {
	a.cleanup.Register("drain event sink", 0, func(context.Context) error {
		a.sink.Close()
		return nil
	})
	a.cleanup.Register("unload backend", 10, func(ctx context.Context) error {
		b := a.orch.Backend()
		if !b.Loaded() {
			return nil
		}
		if err := b.ClearMemory(ctx); err != nil {
			return err
		}
		return b.Unload(ctx)
	})
	a.cleanup.Register("close history db", 20, func(context.Context) error {
		return a.historyD.Close()
	})
	a.cleanup.Register("flush logs", 30, func(context.Context) error {
		// Stdout sync failures are expected on some platforms.
		_ = a.logger.Sync()
		return nil
	})
}

// Run executes the scheduler loop until it completes or ctx is cancelled,
// then logs the run summary.
func (a *App) Run(ctx context.Context) error {
	stats, err := a.sched.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}

	snap := a.metrics.Snapshot()
	a.logger.Info("generation loop summary",
		zap.Int("runs", stats.Runs),
		zap.Int("successes", stats.Successes),
		zap.Int("failures", stats.Failures),
		zap.Duration("avg_duration", snap.AvgDuration),
		zap.Duration("uptime", snap.Uptime))
	return nil
}

// Shutdown runs the cleanup steps with a bounded grace period.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, err := range a.cleanup.Shutdown(ctx) {
		a.logger.Error("cleanup step failed", zap.Error(err))
	}
}
