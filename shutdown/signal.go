package shutdown

import "sync"

// SignalCounter implements "first signal graceful, second signal forced".
// The onForce callback runs while the lock is held; it should exit the
// process or return fast.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter triggers onForce once the count reaches forceAfter.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment records one signal and returns the new count.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
