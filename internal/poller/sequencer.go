package poller

import "sync"

// Sequencer applies responses in request-start order: every request takes a
// token when it starts, and its response is applied only if no request that
// started later has been applied already. Local changes made through
// Override drop every response issued before them.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Begin returns the token of a request that is about to start.
func (s *Sequencer) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit runs apply if token is newer than the last applied token and
// reports whether it did. apply runs with the sequencer locked.
func (s *Sequencer) Commit(token uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token <= s.applied {
		return false
	}
	s.applied = token
	apply()
	return true
}

// Override runs apply as if it were the newest response, so responses of
// requests already in flight are dropped.
func (s *Sequencer) Override(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = s.issued
	apply()
}
