package tracking

// delta counts creations and removals without exposing identities
type delta struct {
	prev         set
	added        int
	removed      int
	totalAdded   int
	totalRemoved int
	cycles       int
}

func newDelta(initial []ObjectID) *delta {
	return &delta{prev: toSet(initial)}
}

func (s *delta) Kind() Kind { return KindDelta }

func (s *delta) Update(instances []ObjectID) {
	next := toSet(instances)
	added, removed := diff(s.prev, next)
	s.added = len(added)
	s.removed = removed
	s.totalAdded += s.added
	s.totalRemoved += removed
	s.prev = next
	s.cycles++
}

func (s *delta) Report() Report {
	return Report{
		Kind:         KindDelta,
		Count:        len(s.prev),
		Cycles:       s.cycles,
		Added:        s.added,
		Removed:      s.removed,
		TotalAdded:   s.totalAdded,
		TotalRemoved: s.totalRemoved,
	}
}
