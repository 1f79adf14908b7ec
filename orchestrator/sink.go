package orchestrator

import (
	"sync"

	"go.uber.org/zap"

	"artloop/logging"
)

// EventSink receives lifecycle events. Emit must not block the caller
// indefinitely; slow sinks are wrapped in AsyncSink.
type EventSink interface {
	Emit(GenerationEvent)
}

// NoopSink discards events.
type NoopSink struct{}

func (NoopSink) Emit(GenerationEvent) {}

// FanoutSink forwards each event to every sink in order.
type FanoutSink []EventSink

func (f FanoutSink) Emit(ev GenerationEvent) {
	for _, s := range f {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// AsyncSink decouples emitters from a slow downstream sink through a bounded
// buffer. Events keep their emission order; when the buffer is full the
// event is dropped and counted rather than blocking the run.
type AsyncSink struct {
	inner  EventSink
	logger *logging.Logger
	ch     chan GenerationEvent
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewAsyncSink starts the forwarding goroutine. Close releases it.
func NewAsyncSink(inner EventSink, buffer int, logger *logging.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 64
	}
	s := &AsyncSink{
		inner:  inner,
		logger: logger,
		ch:     make(chan GenerationEvent, buffer),
		done:   make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *AsyncSink) forward() {
	defer close(s.done)
	for ev := range s.ch {
		s.inner.Emit(ev)
	}
}

// Emit queues the event without blocking.
func (s *AsyncSink) Emit(ev GenerationEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.ch <- ev:
		s.mu.Unlock()
	default:
		s.dropped++
		dropped := s.dropped
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn("event sink buffer full, dropping event",
				zap.String("type", string(ev.Type)),
				zap.Int("dropped_total", dropped))
		}
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (s *AsyncSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting events and waits for queued ones to drain.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	<-s.done
}
