package domain

import (
	"context"

	"heapcensus/internal/core/tracking"
)

// Priority orders work on the process command context
type Priority uint8

const (
	// PriorityLowest runs after everything else queued
	PriorityLowest Priority = iota
	// PriorityLow is below normal
	PriorityLow
	// PriorityNormal is the default for user commands
	PriorityNormal
	// PriorityHigh preempts queued normal work
	PriorityHigh
)

// Introspector is the heap query capability of the target runtime
// all calls are slow and must only run on the process command context
type Introspector interface {
	ListClasses(ctx context.Context) ([]Class, error)
	// InstanceCounts returns one count per class, positionally aligned
	InstanceCounts(ctx context.Context, classes []Class) ([]int64, error)
	// Instances lists live objects of a class; limit 0 means no limit
	Instances(ctx context.Context, id ClassID, limit int) ([]ObjectID, error)
	IsAttached() bool
	IsConstrainedRuntime() bool
}

// EpisodeSource reports the current suspend episode, nil when running or detached
type EpisodeSource interface {
	CurrentEpisode() *Episode
}

// LifecycleListener receives target lifecycle events
type LifecycleListener interface {
	OnSuspended()
	OnResumed()
	OnSessionEnded()
}

// Lifecycle delivers lifecycle events to subscribers
type Lifecycle interface {
	Subscribe(l LifecycleListener) (unsubscribe func())
}

// TrackingConfig maps a class name to its tracking kind, ok=false when untracked
type TrackingConfig interface {
	TrackingKindFor(className string) (tracking.Kind, bool)
}

// DisplaySink receives census results; called only on the UI context
type DisplaySink interface {
	Publish(c Census)
	SetBusy(busy bool)
	Invalidate()
}

// CommandScheduler runs work on the process command context
type CommandScheduler interface {
	Schedule(p Priority, fn func(ctx context.Context)) error
}

// UIContext runs posted funcs in order on the UI context
type UIContext interface {
	Post(fn func())
}

// Target bundles the runtime capabilities a census session needs
type Target interface {
	Introspector
	EpisodeSource
	Lifecycle
}

// HistoryPort persists published censuses
type HistoryPort interface {
	Record(ctx context.Context, c Census) error
}

// HistoryWriter is one durable census sink
type HistoryWriter interface {
	WriteCensus(ctx context.Context, c Census) error
}

// HistoryReader lists persisted cycles, newest first
type HistoryReader interface {
	RecentCycles(ctx context.Context, limit int) ([]CycleRecord, error)
}

// ControllerPort drives refreshes
type ControllerPort interface {
	MarkNeedsReload(v bool)
	Refresh()
	Status() Status
}

// ReaderPort reads tracking state and drills into a class
type ReaderPort interface {
	Tracked() []TrackedClass
	TrackedClass(id ClassID) (TrackedClass, bool)
	ActivateSelection(ctx context.Context, id ClassID, limit int) (Instances, error)
}
