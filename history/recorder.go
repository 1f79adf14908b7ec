package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"artloop/logging"
	"artloop/orchestrator"
)

// Recorder is an event sink that persists terminal run outcomes. Wire it
// behind an async sink so database writes never stall a run.
type Recorder struct {
	repo   *Repository
	logger *logging.Logger

	mu      sync.Mutex
	started map[string]time.Time
}

// NewRecorder creates a recorder writing through repo.
func NewRecorder(repo *Repository, logger *logging.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		logger:  logger,
		started: make(map[string]time.Time),
	}
}

// Emit implements orchestrator.EventSink. Started events stamp the run's
// begin time so failures still get a duration; Completed and Failed write a
// row; the rest are ignored.
func (r *Recorder) Emit(ev orchestrator.GenerationEvent) {
	switch ev.Type {
	case orchestrator.EventStarted:
		r.mu.Lock()
		r.started[ev.RunID] = ev.Timestamp
		r.mu.Unlock()
		return
	case orchestrator.EventCompleted, orchestrator.EventFailed:
	default:
		return
	}

	r.mu.Lock()
	startedAt, ok := r.started[ev.RunID]
	delete(r.started, ev.RunID)
	r.mu.Unlock()

	rec := RunRecord{
		RunID:     ev.RunID,
		CreatedAt: ev.Timestamp.UTC(),
	}
	if ok {
		rec.DurationMS = ev.Timestamp.Sub(startedAt).Milliseconds()
	}

	if ev.Type == orchestrator.EventCompleted && ev.Result != nil {
		res := ev.Result
		rec.Status = StatusSuccess
		rec.FinalPrompt = res.FinalPrompt
		rec.ImagePath = res.ImagePath
		rec.PromptPath = res.PromptPath
		rec.Backend = res.Backend
		rec.Seed = res.Seed
		rec.DurationMS = res.Duration.Milliseconds()
	} else {
		rec.Status = StatusFailure
		rec.ErrorKind = string(ev.Kind)
		rec.ErrorMessage = ev.Message
	}

	if _, err := r.repo.InsertRun(context.Background(), rec); err != nil && r.logger != nil {
		r.logger.Error("failed to record run history",
			zap.String("run_id", ev.RunID),
			zap.Error(err))
	}
}
