package dispatch

import "sync"

// FailureTracker counts consecutive generic failures per proxy ID.
type FailureTracker struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

// NewFailureTracker evicts at limit failures; limits below 1 become 1.
func NewFailureTracker(limit int) *FailureTracker {
	if limit < 1 {
		limit = 1
	}
	return &FailureTracker{limit: limit, counts: map[string]int{}}
}

// Fail records a failure and reports the new count and whether it reached
// the limit. A proxy that reaches the limit is forgotten.
func (f *FailureTracker) Fail(id string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[id]++
	count := f.counts[id]
	if count >= f.limit {
		delete(f.counts, id)
		return count, true
	}
	return count, false
}

// Reset clears the count after a success.
func (f *FailureTracker) Reset(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, id)
}

// Count returns the current consecutive failure count.
func (f *FailureTracker) Count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[id]
}
