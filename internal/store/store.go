// internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"sort"

	"plcview/internal/tag"
)

var (
	// ErrUnknownSignal means the signal was never configured.
	ErrUnknownSignal = errors.New("store: unknown signal")
	// ErrNoSamples means the signal exists but nothing has been recorded yet.
	ErrNoSamples = errors.New("store: no samples")
)

// Store holds the retained sample window for every configured signal.
// The signal set is fixed at construction; only samples change afterwards,
// so the map itself is read without locking.
type Store struct {
	series map[string]*series
	names  []string // sorted
}

// New creates a store for the given signal names, each retaining up to
// capacity samples. Names must be unique and non-empty.
func New(names []string, capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, errors.New("store: capacity must be > 0")
	}
	s := &Store{series: make(map[string]*series, len(names))}
	for _, n := range names {
		if n == "" {
			return nil, errors.New("store: empty signal name")
		}
		if _, dup := s.series[n]; dup {
			return nil, fmt.Errorf("store: duplicate signal %q", n)
		}
		s.series[n] = newSeries(capacity)
		s.names = append(s.names, n)
	}
	sort.Strings(s.names)
	return s, nil
}

// Append records one sample, evicting the oldest when the window is full.
func (s *Store) Append(signal string, smp tag.Sample) error {
	sr, ok := s.series[signal]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}
	sr.append(smp)
	return nil
}

// Latest returns the most recent sample for the signal.
// The sample itself may be invalid; that is the caller's business.
func (s *Store) Latest(signal string) (tag.Sample, error) {
	sr, ok := s.series[signal]
	if !ok {
		return tag.Sample{}, fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}
	smp, ok := sr.latest()
	if !ok {
		return tag.Sample{}, fmt.Errorf("%w: %q", ErrNoSamples, signal)
	}
	return smp, nil
}

// History returns up to max samples for the signal, oldest first.
// max <= 0 returns the full retained window.
func (s *Store) History(signal string, max int) ([]tag.Sample, error) {
	sr, ok := s.series[signal]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}
	return sr.window(max), nil
}

// Signals returns all signal names in sorted order.
func (s *Store) Signals() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
