package service

import (
	"context"
	"sort"
	"sync"

	"heapcensus/internal/core/tracking"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/services/census/domain"
)

// Store holds the tracking state of every tracked class for the session
// one writer (the command context) mutates it; readers may run concurrently
// entries are never removed while the session lives
type Store struct {
	mu    sync.RWMutex
	byID  map[domain.ClassID]*trackedEntry
	order []domain.ClassID
}

type trackedEntry struct {
	class domain.Class
	state tracking.State
}

// NewStore returns an empty tracking store
func NewStore() *Store {
	return &Store{byID: make(map[domain.ClassID]*trackedEntry)}
}

// EnsureTracked starts tracking c when lookup assigns it a kind and it is not tracked yet
// reports whether a new entry was added
func (s *Store) EnsureTracked(
	ctx context.Context,
	c domain.Class,
	lookup domain.TrackingConfig,
	in domain.Introspector,
) (bool, error) {
	if lookup == nil {
		return false, nil
	}
	kind, ok := lookup.TrackingKindFor(c.Name)
	if !ok {
		return false, nil
	}
	if s.has(c.ID) {
		return false, nil
	}

	instances, err := in.Instances(ctx, c.ID, 0)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeIntrospection, "instances of %s", c.Name)
	}
	st, err := tracking.New(kind, instances)
	if err != nil {
		return false, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "tracking kind")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; ok {
		return false, nil
	}
	s.byID[c.ID] = &trackedEntry{class: c, state: st}
	s.order = append(s.order, c.ID)
	return true, nil
}

// UpdateAll re-enumerates every tracked class and feeds the instances to its state
// the first failure stops the pass; classes already updated keep their update
func (s *Store) UpdateAll(ctx context.Context, in domain.Introspector) error {
	s.mu.RLock()
	entries := make([]*trackedEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.byID[id])
	}
	s.mu.RUnlock()

	for _, e := range entries {
		instances, err := in.Instances(ctx, e.class.ID, 0)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeIntrospection, "instances of %s", e.class.Name)
		}
		s.mu.Lock()
		e.state.Update(instances)
		s.mu.Unlock()
	}
	return nil
}

// Report returns the tracking report of one class
func (s *Store) Report(id domain.ClassID) (domain.TrackedClass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.TrackedClass{}, false
	}
	return domain.TrackedClass{Class: e.class, Report: e.state.Report()}, true
}

// Reports returns every tracking report ordered by class name then id
func (s *Store) Reports() []domain.TrackedClass {
	s.mu.RLock()
	out := make([]domain.TrackedClass, 0, len(s.order))
	for _, id := range s.order {
		e := s.byID[id]
		out = append(out, domain.TrackedClass{Class: e.class, Report: e.state.Report()})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Class.Name != out[j].Class.Name {
			return out[i].Class.Name < out[j].Class.Name
		}
		return out[i].Class.ID < out[j].Class.ID
	})
	return out
}

// Len returns the number of tracked classes
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) has(id domain.ClassID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}
