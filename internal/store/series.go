// internal/store/series.go
package store

import (
	"sync"

	"plcview/internal/tag"
)

// series is the retained window for one signal.
// One writer (the signal's poll worker) and any number of readers.
// Locking is per series so devices never contend with each other.
type series struct {
	mu    sync.RWMutex
	buf   []tag.Sample
	head  int // next write position
	count int
}

func newSeries(capacity int) *series {
	return &series{buf: make([]tag.Sample, capacity)}
}

func (s *series) append(smp tag.Sample) {
	s.mu.Lock()
	s.buf[s.head] = smp
	s.head = (s.head + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	s.mu.Unlock()
}

func (s *series) latest() (tag.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return tag.Sample{}, false
	}
	return s.buf[(s.head-1+len(s.buf))%len(s.buf)], true
}

// window copies up to max samples, oldest first. max <= 0 means all.
func (s *series) window(max int) []tag.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.count
	if max > 0 && max < n {
		n = max
	}
	out := make([]tag.Sample, 0, n)
	start := s.head - n
	for i := 0; i < n; i++ {
		out = append(out, s.buf[(start+i+len(s.buf))%len(s.buf)])
	}
	return out
}
