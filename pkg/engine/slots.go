package engine

import "sync"

// DefaultGlobalMaxConcurrentNodes bounds concurrently-running node
// operations across all runs in the process.
const DefaultGlobalMaxConcurrentNodes = 4

// slots is the cross-run admission counter. A slot is held while a
// node-run is in the running state and released when it reaches a
// terminal state or parks in waiting.
type slots struct {
	mu   sync.Mutex
	max  int
	used int
}

func newSlots(maxSlots int) *slots {
	if maxSlots < 1 {
		maxSlots = DefaultGlobalMaxConcurrentNodes
	}

	return &slots{max: maxSlots}
}

func (s *slots) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used >= s.max {
		return false
	}

	s.used++

	return true
}

// forceAcquire takes a slot even past the cap. Recovery uses it to
// account for node operations that were already running before the
// restart.
func (s *slots) forceAcquire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used++
}

func (s *slots) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used > 0 {
		s.used--
	}
}

func (s *slots) inUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.used
}
