package orchestrator

import (
	"sync"
	"testing"
	"time"
)

type slowSink struct {
	mu      sync.Mutex
	events  []GenerationEvent
	release chan struct{}
}

func (s *slowSink) Emit(ev GenerationEvent) {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *slowSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestAsyncSinkPreservesOrder(t *testing.T) {
	inner := &slowSink{}
	s := NewAsyncSink(inner, 16, nil)

	for i := 0; i < 5; i++ {
		s.Emit(GenerationEvent{Type: EventStarted, RunID: string(rune('a' + i))})
	}
	s.Close()

	if inner.count() != 5 {
		t.Fatalf("forwarded %d events, want 5", inner.count())
	}
	for i, ev := range inner.events {
		if ev.RunID != string(rune('a'+i)) {
			t.Fatalf("event %d out of order: %q", i, ev.RunID)
		}
	}
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	inner := &slowSink{release: make(chan struct{})}
	s := NewAsyncSink(inner, 1, nil)

	done := make(chan struct{})
	go func() {
		// Saturate: one event blocks in the inner sink, one fills the
		// buffer, the rest must drop without blocking this goroutine.
		for i := 0; i < 10; i++ {
			s.Emit(GenerationEvent{Type: EventStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a saturated sink")
	}

	if s.Dropped() == 0 {
		t.Fatal("expected dropped events on a saturated sink")
	}
	close(inner.release)
	s.Close()
}

func TestAsyncSinkEmitAfterClose(t *testing.T) {
	inner := &slowSink{}
	s := NewAsyncSink(inner, 4, nil)
	s.Close()

	// Must not panic on a closed channel.
	s.Emit(GenerationEvent{Type: EventStarted})
	s.Close()

	if inner.count() != 0 {
		t.Fatalf("forwarded %d events after close", inner.count())
	}
}

func TestFanoutSinkForwardsToAll(t *testing.T) {
	a := &collectSink{}
	b := &collectSink{}
	f := FanoutSink{a, nil, b}

	f.Emit(GenerationEvent{Type: EventCompleted})

	if len(a.types()) != 1 || len(b.types()) != 1 {
		t.Fatalf("fanout delivered %d/%d events", len(a.types()), len(b.types()))
	}
}

func TestNoopSink(t *testing.T) {
	NoopSink{}.Emit(GenerationEvent{Type: EventFailed})
}
