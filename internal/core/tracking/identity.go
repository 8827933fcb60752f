package tracking

import "slices"

// identity keeps the previous snapshot and the instances that appeared in the last update
type identity struct {
	prev    set
	fresh   []ObjectID
	removed int
	cycles  int
}

func newIdentity(initial []ObjectID) *identity {
	return &identity{prev: toSet(initial)}
}

func (s *identity) Kind() Kind { return KindIdentity }

func (s *identity) Update(instances []ObjectID) {
	next := toSet(instances)
	added, removed := diff(s.prev, next)
	slices.Sort(added)
	s.fresh = added
	s.removed = removed
	s.prev = next
	s.cycles++
}

func (s *identity) Report() Report {
	return Report{
		Kind:         KindIdentity,
		Count:        len(s.prev),
		Cycles:       s.cycles,
		Added:        len(s.fresh),
		Removed:      s.removed,
		NewInstances: slices.Clone(s.fresh),
	}
}
