package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"artloop/backend"
	"artloop/logging"
	"artloop/plugins"
	"artloop/prompt"
	"artloop/storage"
)

type collectSink struct {
	mu     sync.Mutex
	events []GenerationEvent
}

func (c *collectSink) Emit(ev GenerationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collectSink) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func (c *collectSink) last() GenerationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

type fakePipeline struct {
	items []plugins.ContextItem
	err   error
	calls int
}

func (f *fakePipeline) Run(time.Time) ([]plugins.ContextItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fixture struct {
	orch  *Orchestrator
	mock  *backend.Mock
	sink  *collectSink
	store *storage.Store
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T, pipe Pipeline, opts Options) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewLoggerWithCore(core)

	store, err := storage.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	mock := backend.NewMock()
	sink := &collectSink{}
	composer := prompt.NewComposer(nil, nil)

	if opts.Now == nil {
		fixed := time.Date(2025, 12, 23, 14, 32, 5, 0, time.UTC)
		opts.Now = func() time.Time { return fixed }
	}

	orch, err := New(pipe, composer, mock, store, sink, logger, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{orch: orch, mock: mock, sink: sink, store: store, logs: logs}
}

func request() GenerationRequest {
	return GenerationRequest{
		Prompt: "a red fox",
		Seed:   7,
		Params: backend.Params{Width: 512, Height: 512, Steps: 8, GuidanceScale: 3.5},
	}
}

func TestRunPluginsDisabledKeepsBasePrompt(t *testing.T) {
	pipe := &fakePipeline{items: []plugins.ContextItem{{Name: "time_of_day", Value: "midday"}}}
	f := newFixture(t, pipe, Options{})

	result, err := f.orch.Run(context.Background(), request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FinalPrompt != "a red fox" {
		t.Fatalf("FinalPrompt = %q, want base prompt unmodified", result.FinalPrompt)
	}
	if pipe.calls != 0 {
		t.Fatalf("pipeline called %d times with plugins disabled", pipe.calls)
	}
	if f.mock.GenerateCalls() != 1 {
		t.Fatalf("backend invoked %d times, want 1", f.mock.GenerateCalls())
	}

	if _, err := os.Stat(result.ImagePath); err != nil {
		t.Fatalf("image not written: %v", err)
	}
	sidecar, err := os.ReadFile(result.PromptPath)
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if string(sidecar) != "a red fox" {
		t.Fatalf("sidecar content = %q", sidecar)
	}
}

func TestRunPluginContributionsReachPrompt(t *testing.T) {
	pipe := &fakePipeline{items: []plugins.ContextItem{
		{Name: "time_of_day", Value: "midday"},
		{Name: "art_style", Value: "watercolor painting"},
	}}
	f := newFixture(t, pipe, Options{})

	req := request()
	req.EnablePlugins = true
	result, err := f.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "a red fox, midday, watercolor painting"
	if result.FinalPrompt != want {
		t.Fatalf("FinalPrompt = %q, want %q", result.FinalPrompt, want)
	}
	if len(result.Contributions) != 2 {
		t.Fatalf("Contributions = %d, want 2", len(result.Contributions))
	}
}

func TestRunEventOrder(t *testing.T) {
	f := newFixture(t, nil, Options{})

	if _, err := f.orch.Run(context.Background(), request()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The mock starts unloaded, so lazy load announces itself twice.
	want := []EventType{EventStarted, EventPromptComposed, EventBackendLoading, EventBackendLoading, EventCompleted}
	got := f.sink.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}

	last := f.sink.last()
	if last.Result == nil || last.Result.FinalPrompt != "a red fox" {
		t.Fatalf("Completed event missing result: %+v", last)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	f := newFixture(t, nil, Options{MaxAttempts: 3})
	f.mock.FailNext(backend.ErrGenerationTimeout, backend.ErrOutOfMemory)

	if _, err := f.orch.Run(context.Background(), request()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.mock.GenerateCalls() != 3 {
		t.Fatalf("backend invoked %d times, want 3", f.mock.GenerateCalls())
	}
	retries := f.logs.FilterMessage("retrying generation").Len()
	if retries != 2 {
		t.Fatalf("retry logs = %d, want 2", retries)
	}
	if f.sink.last().Type != EventCompleted {
		t.Fatalf("terminal event = %s, want completed", f.sink.last().Type)
	}
}

func TestRunTransientExhaustsRetries(t *testing.T) {
	f := newFixture(t, nil, Options{MaxAttempts: 3})
	f.mock.FailNext(backend.ErrGenerationTimeout, backend.ErrGenerationTimeout, backend.ErrGenerationTimeout)

	_, err := f.orch.Run(context.Background(), request())
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Kind != KindBackendTransient {
		t.Fatalf("err = %v, want RunError{KindBackendTransient}", err)
	}
	if f.mock.GenerateCalls() != 3 {
		t.Fatalf("backend invoked %d times, want 3", f.mock.GenerateCalls())
	}

	last := f.sink.last()
	if last.Type != EventFailed || last.Kind != KindBackendTransient {
		t.Fatalf("terminal event = %+v", last)
	}
}

func TestRunFatalErrorNoRetry(t *testing.T) {
	f := newFixture(t, nil, Options{MaxAttempts: 3})
	f.mock.FailNext(backend.ErrInvalidParams)

	_, err := f.orch.Run(context.Background(), request())
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Kind != KindBackendFatal {
		t.Fatalf("err = %v, want RunError{KindBackendFatal}", err)
	}
	if f.mock.GenerateCalls() != 1 {
		t.Fatalf("backend invoked %d times, want 1", f.mock.GenerateCalls())
	}
	if last := f.sink.last(); last.Type != EventFailed || last.Kind != KindBackendFatal {
		t.Fatalf("terminal event = %+v", last)
	}
}

func TestRunClearsMemoryOnEveryGeneratingExit(t *testing.T) {
	tests := []struct {
		name       string
		failures   []error
		wantClears int
	}{
		// One unconditional clear after the generating state.
		{"success", nil, 1},
		{"fatal", []error{backend.ErrInvalidParams}, 1},
		// Two clears between attempts plus the unconditional one.
		{"transient exhaustion", []error{backend.ErrGenerationTimeout, backend.ErrGenerationTimeout, backend.ErrGenerationTimeout}, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, Options{MaxAttempts: 3})
			f.mock.FailNext(tc.failures...)

			f.orch.Run(context.Background(), request())
			if got := f.mock.ClearCalls(); got != tc.wantClears {
				t.Fatalf("ClearCalls = %d, want %d", got, tc.wantClears)
			}
		})
	}
}

func TestRunCriticalPluginFailureSkipsBackend(t *testing.T) {
	pipe := &fakePipeline{err: fmt.Errorf("%w: holiday_fact: boom", plugins.ErrPluginFailed)}
	f := newFixture(t, pipe, Options{})

	req := request()
	req.EnablePlugins = true
	_, err := f.orch.Run(context.Background(), req)

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Kind != KindPluginError {
		t.Fatalf("err = %v, want RunError{KindPluginError}", err)
	}
	if f.mock.GenerateCalls() != 0 || f.mock.ClearCalls() != 0 {
		t.Fatal("backend touched after prompt-stage failure")
	}
}

func TestRunPromptFailureSkipsBackend(t *testing.T) {
	f := newFixture(t, nil, Options{})

	req := request()
	req.Prompt = "" // no base prompt and no text service configured
	_, err := f.orch.Run(context.Background(), req)

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Kind != KindPromptError {
		t.Fatalf("err = %v, want RunError{KindPromptError}", err)
	}
	if f.mock.GenerateCalls() != 0 {
		t.Fatal("backend invoked after prompt failure")
	}
}

func TestRunBusyRejectsConcurrentRequest(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.mock.SetGenerateDelay(200 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background(), request())
		done <- err
	}()

	// Wait for the first run to leave idle.
	deadline := time.Now().Add(2 * time.Second)
	for f.orch.State() == StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := f.orch.Run(context.Background(), request())
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second run err = %v, want ErrBusy", err)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Kind != KindBackendBusy {
		t.Fatalf("second run err = %v, want kind backend_busy", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if f.orch.State() != StateIdle {
		t.Fatalf("state = %s after run, want idle", f.orch.State())
	}
}

func TestRunSeedHandling(t *testing.T) {
	f := newFixture(t, nil, Options{})

	req := request()
	req.Seed = 1234
	result, err := f.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Seed != 1234 {
		t.Fatalf("Seed = %d, want 1234", result.Seed)
	}

	req.Seed = -1
	result, err = f.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Seed < 0 {
		t.Fatalf("Seed = %d, want random non-negative", result.Seed)
	}
}

func TestKindOfClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"busy", ErrBusy, KindBackendBusy},
		{"plugin", plugins.ErrPluginFailed, KindPluginError},
		{"prompt", prompt.ErrPromptService, KindPromptError},
		{"storage", storage.ErrStorage, KindStorageError},
		{"transient", backend.ErrOutOfMemory, KindBackendTransient},
		{"fatal", backend.ErrInvalidParams, KindBackendFatal},
		{"wrapped run error", &RunError{Kind: KindStorageError, Err: errors.New("x")}, KindStorageError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
}
