// Package domain defines the types and ports of the heap census service
package domain

import (
	"time"

	"heapcensus/internal/core/tracking"

	"github.com/google/uuid"
)

// ClassID is an opaque stable handle to a loaded class in the target process
type ClassID uint64

// ObjectID identifies one live object in the target process
type ObjectID = tracking.ObjectID

// Class pairs a class handle with its name
type Class struct {
	ID   ClassID `json:"id"`
	Name string  `json:"name"`
}

// Episode is one suspension of the target process
// episodes are compared by pointer identity; ID and At are for logs and history only
type Episode struct {
	ID uuid.UUID
	At time.Time
}

// NewEpisode returns a fresh episode token stamped with at
func NewEpisode(at time.Time) *Episode {
	return &Episode{ID: uuid.New(), At: at.UTC()}
}

// State is the census executor state machine
type State uint8

const (
	// StateIdle means no cycle is running
	StateIdle State = iota
	// StateCapturingContext means a cycle is validating its suspend episode
	StateCapturingContext
	// StateBatching means instance count queries are in flight
	StateBatching
	// StatePublishing means results (or an abort) are being handed to the display
	StatePublishing
	// StateAborted means the cycle left batching early and is unwinding
	StateAborted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateCapturingContext:
		return "capturing_context"
	case StateBatching:
		return "batching"
	case StatePublishing:
		return "publishing"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome classifies how a cycle ended
type Outcome uint8

const (
	// OutcomeSkipped means there was no valid suspend episode to census
	OutcomeSkipped Outcome = iota
	// OutcomePublished means counts were published
	OutcomePublished
	// OutcomeAborted means the suspend episode changed mid-cycle
	OutcomeAborted
	// OutcomeFailed means an introspection call failed
	OutcomeFailed
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Census is one published class list with positionally aligned counts
type Census struct {
	CycleID   uuid.UUID `json:"cycle_id"`
	EpisodeID uuid.UUID `json:"episode_id"`
	At        time.Time `json:"at"`
	Classes   []Class   `json:"classes"`
	Counts    []int64   `json:"counts"`
}

// Total returns the sum of all counts
func (c Census) Total() int64 {
	var n int64
	for _, v := range c.Counts {
		n += v
	}
	return n
}

// TrackedClass is a tracking report for one class
type TrackedClass struct {
	Class  Class           `json:"class"`
	Report tracking.Report `json:"report"`
}

// Status is a point in time view of the census controller
type Status struct {
	State          State         `json:"state"`
	InFlight       bool          `json:"in_flight"`
	Suspended      bool          `json:"suspended"`
	Attached       bool          `json:"attached"`
	NeedsReload    bool          `json:"needs_reload"`
	RefreshPending bool          `json:"refresh_pending"`
	Delay          time.Duration `json:"delay_ns"`
	Tracked        int           `json:"tracked"`
	Stats          CycleStats    `json:"stats"`
}

// CycleStats counts cycle outcomes since start
type CycleStats struct {
	Published   int64         `json:"published"`
	Aborted     int64         `json:"aborted"`
	Failed      int64         `json:"failed"`
	Skipped     int64         `json:"skipped"`
	LastOutcome Outcome       `json:"last_outcome"`
	LastLatency time.Duration `json:"last_batch_latency_ns"`
	LastBatches int           `json:"last_batches"`
	LastClasses int           `json:"last_classes"`
	LastAt      time.Time     `json:"last_at,omitzero"`
}

// Instances is a drill-down view of one class
type Instances struct {
	Class     Class            `json:"class"`
	Instances []ObjectID       `json:"instances"`
	Limit     int              `json:"limit"`
	Tracking  *tracking.Report `json:"tracking,omitempty"`
}

// CycleRecord is one persisted census cycle
type CycleRecord struct {
	CycleID   string    `json:"cycle_id"`
	EpisodeID string    `json:"episode_id"`
	At        time.Time `json:"at"`
	Classes   int       `json:"classes"`
	Instances int64     `json:"instances"`
}
