package session

import "sync"

// Resource names a view whose fetches are sequenced independently.
type Resource string

const (
	ResourceInbox  Resource = "inbox"
	ResourceThread Resource = "thread"
	ResourceSearch Resource = "search"
)

// Sequencer issues monotonic request ids per resource so that only the
// response to the most recently issued request is applied.
type Sequencer struct {
	mu     sync.Mutex
	issued map[Resource]uint64
}

// NewSequencer creates a sequencer with no requests issued.
func NewSequencer() *Sequencer {
	return &Sequencer{issued: make(map[Resource]uint64)}
}

// Next issues a new request id for r. Any earlier id becomes stale.
func (s *Sequencer) Next(r Resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued[r]++
	return s.issued[r]
}

// IsLatest reports whether id is the last one issued for r.
func (s *Sequencer) IsLatest(r Resource, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issued[r] == id
}
