// Package service contains the census refresh engine
package service

import (
	"sync"
	"sync/atomic"
	"time"

	"heapcensus/internal/core/batch"
	"heapcensus/internal/core/debounce"
	"heapcensus/internal/modkit"
	"heapcensus/internal/platform/logger"
	"heapcensus/internal/services/census/domain"
)

// Service defines the census service contract
type Service interface {
	domain.LifecycleListener
	domain.ControllerPort
	domain.ReaderPort
}

// DefaultCoefficient scales batch latency into the next debounce delay
const DefaultCoefficient = 0.5

// Config carries the refresh engine knobs
type Config struct {
	// delay after each batch is Coefficient * batch latency; nil means DefaultCoefficient
	Coefficient  *float64
	InitialDelay time.Duration

	DefaultBatchSize     int
	ConstrainedBatchSize int

	// default instance cap for drill-down; 0 means no cap
	DrillDownLimit int
}

// Runtime bundles the collaborators of one census session
type Runtime struct {
	Target   domain.Target
	Tracking domain.TrackingConfig
	Sink     domain.DisplaySink
	Commands domain.CommandScheduler
	UI       domain.UIContext

	// optional
	History domain.HistoryPort
	Clock   debounce.Clock
	Now     func() time.Time
}

// Svc implements the census service
type Svc struct {
	log    *logger.Logger
	config Config

	target  domain.Target
	lookup  domain.TrackingConfig
	sink    domain.DisplaySink
	cmds    domain.CommandScheduler
	ui      domain.UIContext
	history domain.HistoryPort
	now     func() time.Time

	store *Store
	guard Guard
	sched *debounce.Scheduler

	inFlight    atomic.Bool
	needsReload atomic.Bool
	lastEpisode atomic.Pointer[domain.Episode]
	state       atomic.Uint32

	statsMu sync.Mutex
	stats   domain.CycleStats

	unsubscribe func()
	endOnce     sync.Once
}

var _ Service = (*Svc)(nil)

// New constructs the census service and subscribes it to the target lifecycle
func New(deps modkit.Deps, rt Runtime, cfg Config) *Svc {
	if rt.Target == nil || rt.Sink == nil || rt.Commands == nil || rt.UI == nil {
		panic("census.Service requires target, sink, command scheduler and ui context")
	}
	cfg = withDefaults(cfg)

	log := deps.Log
	l := log.With().Str("component", "census").Logger()

	now := rt.Now
	if now == nil {
		now = time.Now
	}

	s := &Svc{
		log:     &l,
		config:  cfg,
		target:  rt.Target,
		lookup:  rt.Tracking,
		sink:    rt.Sink,
		cmds:    rt.Commands,
		ui:      rt.UI,
		history: rt.History,
		now:     now,
		store:   NewStore(),
		guard:   NewGuard(rt.Target),
	}
	s.sched = debounce.New(s.onFire,
		debounce.WithClock(rt.Clock),
		debounce.WithDelay(cfg.InitialDelay),
	)
	s.unsubscribe = rt.Target.Subscribe(s)
	return s
}

// withDefaults fills zero values with the stock engine settings
func withDefaults(cfg Config) Config {
	if cfg.Coefficient == nil || *cfg.Coefficient < 0 {
		c := DefaultCoefficient
		cfg.Coefficient = &c
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = batch.Unbounded
	}
	if cfg.ConstrainedBatchSize <= 0 {
		cfg.ConstrainedBatchSize = 500
	}
	if cfg.DrillDownLimit < 0 {
		cfg.DrillDownLimit = 0
	}
	return cfg
}

// Store exposes the tracking store for readers
func (s *Svc) Store() *Store { return s.store }

func (s *Svc) setState(st domain.State) { s.state.Store(uint32(st)) }

func (s *Svc) currentState() domain.State { return domain.State(s.state.Load()) }

// Status returns a snapshot of the controller and executor
func (s *Svc) Status() domain.Status {
	s.statsMu.Lock()
	stats := s.stats
	s.statsMu.Unlock()

	return domain.Status{
		State:          s.currentState(),
		InFlight:       s.inFlight.Load(),
		Suspended:      s.guard.Capture() != nil,
		Attached:       s.target.IsAttached(),
		NeedsReload:    s.needsReload.Load(),
		RefreshPending: s.sched.Pending(),
		Delay:          s.sched.Delay(),
		Tracked:        s.store.Len(),
		Stats:          stats,
	}
}
