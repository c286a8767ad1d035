package catalog

import "sync/atomic"

// Sequence allocates monotonically increasing catalog entry ids.
type Sequence struct{ n atomic.Int64 }

// Next returns the next id.
func (s *Sequence) Next() int64 { return s.n.Add(1) }

// Skip advances the sequence past ids already in use, e.g. after seeding.
func (s *Sequence) Skip(n int64) {
	for {
		cur := s.n.Load()
		if cur >= n || s.n.CompareAndSwap(cur, n) {
			return
		}
	}
}
