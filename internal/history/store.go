// Package history keeps a bounded, chronological buffer of signal samples per
// tracked client.
package history

import (
	"sort"

	"wifiwatch-tui/internal/client"
)

// MaxSamples is the default per-client buffer bound.
const MaxSamples = 60

// Store is not safe for concurrent use; the reconciler is its only owner.
type Store struct {
	limit   int
	buffers map[string][]float64
}

// NewStore bounds each buffer to limit samples, never more than MaxSamples.
func NewStore(limit int) *Store {
	if limit <= 0 || limit > MaxSamples {
		limit = MaxSamples
	}
	return &Store{limit: limit, buffers: map[string][]float64{}}
}

func (s *Store) Limit() int {
	return s.limit
}

// Append adds a numeric reading at the tail and drops the oldest samples once
// the buffer exceeds the limit. Absent readings are ignored. It reports
// whether a sample was stored.
func (s *Store) Append(id string, reading client.Reading) bool {
	if !reading.Valid {
		return false
	}
	buf := append(s.buffers[id], reading.Value)
	if len(buf) > s.limit {
		buf = append(buf[:0:0], buf[len(buf)-s.limit:]...)
	}
	s.buffers[id] = buf
	return true
}

// Get returns a copy of the buffer for id, creating an empty buffer when none
// exists yet.
func (s *Store) Get(id string) []float64 {
	buf, ok := s.buffers[id]
	if !ok {
		buf = []float64{}
		s.buffers[id] = buf
	}
	out := make([]float64, len(buf))
	copy(out, buf)
	return out
}

func (s *Store) Has(id string) bool {
	_, ok := s.buffers[id]
	return ok
}

func (s *Store) Len(id string) int {
	return len(s.buffers[id])
}

func (s *Store) Remove(id string) {
	delete(s.buffers, id)
}

// IDs returns the tracked ids in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.buffers))
	for id := range s.buffers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
