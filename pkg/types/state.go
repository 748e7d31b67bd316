package types

import "sync/atomic"

// SearchState is the coordination data shared by the workers, the reporter
// and the coordinator of one run. Every field is either immutable or atomic;
// tested only grows and found only flips false to true, so no lock is needed.
type SearchState struct {
	target string

	tested  atomic.Uint64
	found   atomic.Bool
	stopped atomic.Bool
	result  atomic.Pointer[Result]
}

// NewSearchState creates the shared state for a run against target.
func NewSearchState(target string) *SearchState {
	return &SearchState{target: target}
}

// Target returns the address being searched for.
func (s *SearchState) Target() string {
	return s.target
}

// AddTested adds a batch of processed candidates to the shared count.
func (s *SearchState) AddTested(n uint64) {
	if n > 0 {
		s.tested.Add(n)
	}
}

// Tested returns the shared count. It may trail the true total by up to one
// unflushed batch per running worker.
func (s *SearchState) Tested() uint64 {
	return s.tested.Load()
}

// MarkFound records r as the match. Only the first caller wins and gets true;
// its result is the authoritative one.
func (s *SearchState) MarkFound(r *Result) bool {
	if !s.found.CompareAndSwap(false, true) {
		return false
	}
	s.result.Store(r)
	return true
}

// Found reports whether any worker has matched the target.
func (s *SearchState) Found() bool {
	return s.found.Load()
}

// Result returns the published match, or nil. It can briefly be nil right
// after Found turns true, until the winner's store lands.
func (s *SearchState) Result() *Result {
	return s.result.Load()
}

// Stop requests cooperative cancellation without claiming a match.
func (s *SearchState) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (s *SearchState) Stopped() bool {
	return s.stopped.Load()
}

// ShouldStop is the per-candidate check workers make before each slot.
func (s *SearchState) ShouldStop() bool {
	return s.found.Load() || s.stopped.Load()
}
