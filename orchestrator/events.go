// Package orchestrator drives one generation run end to end: plugin context,
// prompt composition, exclusive backend use with bounded retry, persistence,
// and lifecycle event emission.
package orchestrator

import (
	"errors"
	"time"

	"artloop/backend"
	"artloop/plugins"
	"artloop/prompt"
	"artloop/storage"
)

// State names the orchestrator's position in a run.
type State string

const (
	StateIdle             State = "idle"
	StatePreparingPrompt  State = "preparing_prompt"
	StateAcquiringBackend State = "acquiring_backend"
	StateGenerating       State = "generating"
	StatePersisting       State = "persisting"
)

// ErrorKind classifies a failed run for external display.
type ErrorKind string

const (
	KindPluginError      ErrorKind = "plugin_error"
	KindPromptError      ErrorKind = "prompt_error"
	KindBackendBusy      ErrorKind = "backend_busy"
	KindBackendTransient ErrorKind = "backend_transient_error"
	KindBackendFatal     ErrorKind = "backend_fatal_error"
	KindStorageError     ErrorKind = "storage_error"
)

// EventType tags a GenerationEvent variant.
type EventType string

const (
	EventStarted        EventType = "started"
	EventPromptComposed EventType = "prompt_composed"
	EventBackendLoading EventType = "backend_loading"
	EventCompleted      EventType = "completed"
	EventFailed         EventType = "failed"
)

// GenerationEvent is one lifecycle notification. Fields beyond Type and
// RunID are populated per variant: Prompt for PromptComposed, Message for
// BackendLoading and Failed, Kind for Failed, Result for Completed.
type GenerationEvent struct {
	Type      EventType
	RunID     string
	Timestamp time.Time

	Prompt  string
	Message string
	Kind    ErrorKind
	Result  *GenerationResult
}

// GenerationRequest describes one run. Read-only while the run executes.
type GenerationRequest struct {
	// Prompt is the optional base prompt. Empty means synthesize one.
	Prompt string

	// Seed for the backend; negative requests a random seed per run.
	Seed int64

	// Params are the backend generation knobs. The request's Seed wins over
	// Params.Seed.
	Params backend.Params

	// EnablePlugins gates the plugin pipeline.
	EnablePlugins bool
}

// GenerationResult is the immutable outcome of one successful run.
type GenerationResult struct {
	RunID         string
	ImagePath     string
	PromptPath    string
	FinalPrompt   string
	Backend       string
	Seed          int64
	Duration      time.Duration
	FinishedAt    time.Time
	Key           storage.StorageKey
	Contributions []plugins.ContextItem
}

// RunError attaches an ErrorKind to the underlying failure.
type RunError struct {
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ErrBusy is returned when a run is requested while another is in flight.
var ErrBusy = errors.New("orchestrator: run already in progress")

// KindOf extracts the error kind from a run failure, defaulting to
// BackendFatal for unclassified errors.
func KindOf(err error) ErrorKind {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind
	}
	return classify(err)
}

// classify maps sentinel errors from the collaborating packages onto kinds.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrBusy):
		return KindBackendBusy
	case errors.Is(err, plugins.ErrPluginFailed):
		return KindPluginError
	case errors.Is(err, prompt.ErrPromptService):
		return KindPromptError
	case errors.Is(err, storage.ErrStorage):
		return KindStorageError
	case backend.IsTransient(err):
		return KindBackendTransient
	default:
		return KindBackendFatal
	}
}
