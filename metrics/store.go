// Package metrics keeps in-memory statistics about generation runs for
// status queries and the shutdown summary log.
package metrics

import (
	"sync"
	"time"

	"artloop/orchestrator"
)

// RunSample is one finished run kept in the rolling history.
type RunSample struct {
	RunID      string
	Success    bool
	Kind       orchestrator.ErrorKind // empty on success
	Duration   time.Duration
	FinishedAt time.Time
}

// Snapshot is an aggregated view of runs so far.
type Snapshot struct {
	TotalRuns      int64
	Successes      int64
	Failures       int64
	FailuresByKind map[orchestrator.ErrorKind]int64
	AvgDuration    time.Duration
	Uptime         time.Duration
	Recent         []RunSample // oldest first
}

// Store accumulates run outcomes. It implements orchestrator.EventSink, so
// it slots into the same fanout as the history recorder.
type Store struct {
	mu sync.RWMutex

	history []RunSample
	cap     int
	head    int
	size    int

	totalRuns      int64
	totalSuccess   int64
	totalFailures  int64
	failuresByKind map[orchestrator.ErrorKind]int64
	totalDuration  time.Duration

	startTime time.Time
	now       func() time.Time
}

// NewStore keeps up to capacity recent samples (default 100).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		history:        make([]RunSample, capacity),
		cap:            capacity,
		failuresByKind: make(map[orchestrator.ErrorKind]int64),
		startTime:      time.Now(),
		now:            time.Now,
	}
}

// Emit implements orchestrator.EventSink, recording terminal events only.
func (s *Store) Emit(ev orchestrator.GenerationEvent) {
	switch ev.Type {
	case orchestrator.EventCompleted:
		sample := RunSample{RunID: ev.RunID, Success: true, FinishedAt: ev.Timestamp}
		if ev.Result != nil {
			sample.Duration = ev.Result.Duration
		}
		s.record(sample)
	case orchestrator.EventFailed:
		s.record(RunSample{
			RunID:      ev.RunID,
			Kind:       ev.Kind,
			FinishedAt: ev.Timestamp,
		})
	}
}

func (s *Store) record(sample RunSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = sample
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.totalRuns++
	if sample.Success {
		s.totalSuccess++
		s.totalDuration += sample.Duration
	} else {
		s.totalFailures++
		s.failuresByKind[sample.Kind]++
	}
}

// Snapshot returns the aggregated view. Recent is oldest first.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalRuns:      s.totalRuns,
		Successes:      s.totalSuccess,
		Failures:       s.totalFailures,
		FailuresByKind: make(map[orchestrator.ErrorKind]int64, len(s.failuresByKind)),
		Uptime:         s.now().Sub(s.startTime),
	}
	for kind, n := range s.failuresByKind {
		snap.FailuresByKind[kind] = n
	}
	if s.totalSuccess > 0 {
		snap.AvgDuration = s.totalDuration / time.Duration(s.totalSuccess)
	}

	snap.Recent = make([]RunSample, 0, s.size)
	start := s.head - s.size
	if start < 0 {
		start += s.cap
	}
	for i := 0; i < s.size; i++ {
		snap.Recent = append(snap.Recent, s.history[(start+i)%s.cap])
	}
	return snap
}
