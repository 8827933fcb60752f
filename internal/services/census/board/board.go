// Package board keeps the published census for readers and computes per class diffs
package board

import (
	"sync"
	"time"

	"heapcensus/internal/core/classfilter"
	"heapcensus/internal/services/census/domain"

	"github.com/google/uuid"
)

// Row is one class line of the board
type Row struct {
	Class domain.Class `json:"class"`
	Count int64        `json:"count"`
	// Diff is Count minus the count of the previous publication
	Diff int64 `json:"diff"`
}

// Filter narrows a board view
type Filter struct {
	Query         string
	DiffOnly      bool
	InstancesOnly bool
	Limit         int
}

// View is what readers see
type View struct {
	CycleID   uuid.UUID `json:"cycle_id"`
	EpisodeID uuid.UUID `json:"episode_id"`
	At        time.Time `json:"at,omitzero"`
	Busy      bool      `json:"busy"`
	Hidden    bool      `json:"hidden"`
	Total     int64     `json:"total_instances"`
	Matched   int       `json:"matched"`
	Rows      []Row     `json:"rows"`
}

// Board is an in memory domain.DisplaySink
type Board struct {
	mu     sync.RWMutex
	latest *domain.Census
	prev   map[domain.ClassID]int64
	busy   bool
	hidden bool
}

var _ domain.DisplaySink = (*Board)(nil)

// New returns an empty board
func New() *Board { return &Board{} }

// Publish replaces the shown census and keeps the previous counts for diffs
func (b *Board) Publish(c domain.Census) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil {
		prev := make(map[domain.ClassID]int64, len(b.latest.Classes))
		for i, cl := range b.latest.Classes {
			prev[cl.ID] = b.latest.Counts[i]
		}
		b.prev = prev
	}
	b.latest = &c
	b.hidden = false
}

// SetBusy toggles the refresh indicator
func (b *Board) SetBusy(busy bool) {
	b.mu.Lock()
	b.busy = busy
	b.mu.Unlock()
}

// Invalidate hides the shown census until the next publication
func (b *Board) Invalidate() {
	b.mu.Lock()
	b.hidden = true
	b.mu.Unlock()
}

// Latest returns the last published census
func (b *Board) Latest() (domain.Census, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return domain.Census{}, false
	}
	return *b.latest, true
}

// Flags reports the busy and hidden flags
func (b *Board) Flags() (busy, hidden bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.busy, b.hidden
}

// View renders the board through f
func (b *Board) View(f Filter) View {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v := View{Busy: b.busy, Hidden: b.hidden, Rows: []Row{}}
	if b.latest == nil || b.hidden {
		return v
	}
	c := b.latest
	v.CycleID, v.EpisodeID, v.At = c.CycleID, c.EpisodeID, c.At
	v.Total = c.Total()

	m := classfilter.New(f.Query)
	for i, cl := range c.Classes {
		n := c.Counts[i]
		var diff int64
		if b.prev != nil {
			diff = n - b.prev[cl.ID]
		}
		if f.InstancesOnly && n == 0 {
			continue
		}
		if f.DiffOnly && diff == 0 {
			continue
		}
		if !m.Match(cl.Name) {
			continue
		}
		v.Matched++
		if f.Limit > 0 && len(v.Rows) >= f.Limit {
			continue
		}
		v.Rows = append(v.Rows, Row{Class: cl, Count: n, Diff: diff})
	}
	return v
}
