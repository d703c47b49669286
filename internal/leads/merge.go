package leads

import (
	"sync"

	"github.com/ignite/lead-engine/internal/domain"
)

// DefaultMaxSeenIdentifiers caps the dedup set's memory.
const DefaultMaxSeenIdentifiers = 100000

// Merger deduplicates raw leads across discovery sources by identifier
// fingerprint. The first occurrence of an identifier wins; later duplicates
// from any source are dropped.
//
// The seen set is capped: once it exceeds the maximum it is cleared, so
// leads discovered after a clear can re-admit a previously seen identifier.
// That imprecision is accepted in exchange for bounded memory.
type Merger struct {
	fp  *Fingerprinter
	max int

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMerger returns a merger with the given seen-set cap (0 uses the
// default).
func NewMerger(fp *Fingerprinter, maxSeen int) *Merger {
	if maxSeen <= 0 {
		maxSeen = DefaultMaxSeenIdentifiers
	}
	return &Merger{
		fp:   fp,
		max:  maxSeen,
		seen: make(map[string]struct{}),
	}
}

// Merge iterates all input lists in order and returns the first-seen leads.
func (m *Merger) Merge(lists ...[]domain.RawLead) []domain.RawLead {
	var merged []domain.RawLead

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, list := range lists {
		for _, lead := range list {
			id := m.fp.Fingerprint(lead)
			if _, dup := m.seen[id]; dup {
				continue
			}
			m.seen[id] = struct{}{}
			merged = append(merged, lead)

			if len(m.seen) > m.max {
				m.seen = make(map[string]struct{})
			}
		}
	}
	return merged
}

// SeenCount returns the current size of the dedup set.
func (m *Merger) SeenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
