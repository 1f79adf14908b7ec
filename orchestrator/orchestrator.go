package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"artloop/backend"
	"artloop/logging"
	"artloop/plugins"
	"artloop/prompt"
	"artloop/storage"
)

// Pipeline is the plugin pipeline port. Satisfied by *plugins.Pipeline.
type Pipeline interface {
	Run(now time.Time) ([]plugins.ContextItem, error)
}

// Options tune the retry and timeout policy of an orchestrator.
type Options struct {
	// MaxAttempts bounds backend invocations per run, transient failures
	// included. Zero means the default of 3.
	MaxAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// AttemptTimeout bounds one backend call; an expired attempt counts as
	// a transient failure. Zero disables the per-attempt timeout.
	AttemptTimeout time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

const defaultMaxAttempts = 3

// Orchestrator owns the backend handle and runs at most one generation at a
// time. A second Run while one is in flight fails with ErrBusy.
type Orchestrator struct {
	pipeline Pipeline
	composer *prompt.Composer
	backend  backend.ImageBackend
	store    *storage.Store
	sink     EventSink
	logger   *logging.Logger
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// New wires an orchestrator. The pipeline may be nil when plugins are never
// enabled; everything else is required except the sink and logger.
func New(pipe Pipeline, composer *prompt.Composer, b backend.ImageBackend, store *storage.Store, sink EventSink, logger *logging.Logger, opts Options) (*Orchestrator, error) {
	if composer == nil {
		return nil, fmt.Errorf("orchestrator: composer cannot be nil")
	}
	if b == nil {
		return nil, fmt.Errorf("orchestrator: backend cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("orchestrator: store cannot be nil")
	}
	if sink == nil {
		sink = NoopSink{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		pipeline: pipe,
		composer: composer,
		backend:  b,
		store:    store,
		sink:     sink,
		logger:   logger,
		opts:     opts,
		now:      now,
		state:    StateIdle,
	}, nil
}

// State reports the current run state. Safe for concurrent status queries.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Backend exposes the owned backend handle for shutdown hooks.
func (o *Orchestrator) Backend() backend.ImageBackend {
	return o.backend
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// tryBegin transitions Idle to PreparingPrompt or reports busy.
func (o *Orchestrator) tryBegin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return false
	}
	o.state = StatePreparingPrompt
	return true
}

// Run executes one generation end to end and returns its result. The
// backend's memory-clearing step executes once on every exit path that
// reached the generating state, success or not.
func (o *Orchestrator) Run(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if !o.tryBegin() {
		return nil, &RunError{Kind: KindBackendBusy, Err: ErrBusy}
	}
	defer o.setState(StateIdle)

	runID := uuid.NewString()
	started := o.now()
	log := o.logger
	if log != nil {
		log = log.With(zap.String("run_id", runID))
	}

	o.emit(GenerationEvent{Type: EventStarted, RunID: runID, Timestamp: started})
	if log != nil {
		log.Info("generation run started",
			zap.Bool("plugins", req.EnablePlugins),
			zap.String("backend", o.backend.Info().String()))
	}

	finalPrompt, contributions, err := o.preparePrompt(ctx, req)
	if err != nil {
		return nil, o.fail(log, runID, err)
	}
	o.emit(GenerationEvent{Type: EventPromptComposed, RunID: runID, Timestamp: o.now(), Prompt: finalPrompt})

	o.setState(StateAcquiringBackend)
	if err := o.acquireBackend(ctx, runID, log); err != nil {
		return nil, o.fail(log, runID, err)
	}

	params := req.Params
	params.Seed = req.Seed
	if params.Seed < 0 {
		params.Seed = backend.RandomSeed()
	}

	o.setState(StateGenerating)
	imageData, genErr := o.generateWithRetry(ctx, finalPrompt, params, log)

	// Clear backend memory exactly once after the generating state,
	// regardless of outcome.
	if clearErr := o.backend.ClearMemory(context.WithoutCancel(ctx)); clearErr != nil && log != nil {
		log.Warn("backend memory clear failed", zap.Error(clearErr))
	}

	if genErr != nil {
		return nil, o.fail(log, runID, genErr)
	}

	o.setState(StatePersisting)
	finishedAt := o.now()
	key, err := o.store.Persist(imageData, finalPrompt, finishedAt)
	if err != nil {
		return nil, o.fail(log, runID, err)
	}

	result := &GenerationResult{
		RunID:         runID,
		ImagePath:     o.store.ImagePath(key),
		PromptPath:    o.store.PromptPath(key),
		FinalPrompt:   finalPrompt,
		Backend:       o.backend.Info().String(),
		Seed:          params.Seed,
		Duration:      finishedAt.Sub(started),
		FinishedAt:    finishedAt,
		Key:           key,
		Contributions: contributions,
	}

	o.emit(GenerationEvent{Type: EventCompleted, RunID: runID, Timestamp: finishedAt, Result: result})
	if log != nil {
		log.Info("generation run completed",
			zap.String("image", result.ImagePath),
			zap.Duration("duration", result.Duration))
	}
	return result, nil
}

// preparePrompt runs the plugin pipeline and the composer. The backend is
// untouched on this path; a failure here has nothing to release.
func (o *Orchestrator) preparePrompt(ctx context.Context, req GenerationRequest) (string, []plugins.ContextItem, error) {
	var contributions []plugins.ContextItem
	if req.EnablePlugins && o.pipeline != nil {
		items, err := o.pipeline.Run(o.now())
		if err != nil {
			return "", nil, &RunError{Kind: KindPluginError, Err: err}
		}
		contributions = items
	}

	finalPrompt, err := o.composer.Compose(ctx, req.Prompt, contributions)
	if err != nil {
		return "", nil, &RunError{Kind: KindPromptError, Err: err}
	}
	return finalPrompt, contributions, nil
}

// acquireBackend lazily loads the model, announcing the load around the
// potentially slow call.
func (o *Orchestrator) acquireBackend(ctx context.Context, runID string, log *logging.Logger) error {
	if o.backend.Loaded() {
		return nil
	}

	info := o.backend.Info().String()
	o.emit(GenerationEvent{
		Type: EventBackendLoading, RunID: runID, Timestamp: o.now(),
		Message: "loading model " + info,
	})
	if err := o.backend.Load(ctx); err != nil {
		return &RunError{Kind: KindBackendFatal, Err: err}
	}
	o.emit(GenerationEvent{
		Type: EventBackendLoading, RunID: runID, Timestamp: o.now(),
		Message: "model " + info + " ready",
	})
	if log != nil {
		log.Info("backend loaded", zap.String("backend", info))
	}
	return nil
}

// generateWithRetry invokes the backend up to MaxAttempts times, clearing
// backend caches between attempts and honoring cancellation at retry
// boundaries.
func (o *Orchestrator) generateWithRetry(ctx context.Context, finalPrompt string, params backend.Params, log *logging.Logger) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if o.opts.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, o.opts.AttemptTimeout)
		}
		data, err := o.backend.Generate(attemptCtx, finalPrompt, params)
		cancel()
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !backend.IsTransient(err) {
			return nil, &RunError{Kind: KindBackendFatal, Err: err}
		}
		if attempt == o.opts.MaxAttempts {
			break
		}

		if log != nil {
			log.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", o.opts.MaxAttempts),
				zap.Error(err))
		}
		if clearErr := o.backend.ClearMemory(ctx); clearErr != nil && log != nil {
			log.Warn("backend memory clear failed before retry", zap.Error(clearErr))
		}

		// Cancellation checkpoint between attempts.
		if o.opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, &RunError{Kind: KindBackendTransient, Err: fmt.Errorf("%w: %v", backend.ErrGenerationTimeout, ctx.Err())}
			case <-time.After(o.opts.RetryDelay):
			}
		} else if ctx.Err() != nil {
			return nil, &RunError{Kind: KindBackendTransient, Err: fmt.Errorf("%w: %v", backend.ErrGenerationTimeout, ctx.Err())}
		}
	}
	return nil, &RunError{Kind: KindBackendTransient, Err: lastErr}
}

// fail emits the terminal Failed event and logs the diagnostic once.
func (o *Orchestrator) fail(log *logging.Logger, runID string, err error) error {
	kind := KindOf(err)
	o.emit(GenerationEvent{
		Type: EventFailed, RunID: runID, Timestamp: o.now(),
		Kind: kind, Message: err.Error(),
	})
	if log != nil {
		log.Error("generation run failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	if _, ok := err.(*RunError); ok {
		return err
	}
	return &RunError{Kind: kind, Err: err}
}

func (o *Orchestrator) emit(ev GenerationEvent) {
	if o.sink != nil {
		o.sink.Emit(ev)
	}
}
