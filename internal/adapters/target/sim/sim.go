// Package sim is an in memory target process for running the census engine end to end
package sim

import (
	"context"
	"slices"
	"sync"
	"time"

	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/services/census/domain"
)

// Options tunes the simulated runtime
type Options struct {
	// per class cost of InstanceCounts
	LatencyPerClass time.Duration
	Constrained     bool
	// classes loaded at start, with their initial instance counts
	Seed map[string]int
}

// Process is a simulated debuggee with a class table and a live heap
type Process struct {
	mu          sync.Mutex
	classes     []domain.Class
	byName      map[string]domain.ClassID
	heap        map[domain.ClassID][]domain.ObjectID
	nextClass   domain.ClassID
	nextObject  domain.ObjectID
	episode     *domain.Episode
	attached    bool
	constrained bool
	latency     time.Duration

	subs    map[int]domain.LifecycleListener
	nextSub int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

var _ domain.Target = (*Process)(nil)

// New returns an attached, running process
func New(opts Options) *Process {
	p := &Process{
		byName:      map[string]domain.ClassID{},
		heap:        map[domain.ClassID][]domain.ObjectID{},
		attached:    true,
		constrained: opts.Constrained,
		latency:     opts.LatencyPerClass,
		subs:        map[int]domain.LifecycleListener{},
		now:         time.Now,
		sleep:       sleepCtx,
	}
	names := make([]string, 0, len(opts.Seed))
	for n := range opts.Seed {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		p.allocLocked(n, opts.Seed[n])
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ListClasses returns loaded classes in load order
func (p *Process) ListClasses(context.Context) ([]domain.Class, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return nil, perr.Detachedf("sim: process detached")
	}
	return slices.Clone(p.classes), nil
}

// InstanceCounts counts live instances per class after the simulated latency
func (p *Process) InstanceCounts(ctx context.Context, classes []domain.Class) ([]int64, error) {
	p.mu.Lock()
	d := p.latency * time.Duration(len(classes))
	sleep := p.sleep
	p.mu.Unlock()

	sleep(ctx, d)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return nil, perr.Detachedf("sim: process detached")
	}
	out := make([]int64, len(classes))
	for i, c := range classes {
		out[i] = int64(len(p.heap[c.ID]))
	}
	return out, nil
}

// Instances lists live objects of a class; limit 0 means all
func (p *Process) Instances(_ context.Context, id domain.ClassID, limit int) ([]domain.ObjectID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return nil, perr.Detachedf("sim: process detached")
	}
	xs := p.heap[id]
	if limit > 0 && len(xs) > limit {
		xs = xs[:limit]
	}
	return slices.Clone(xs), nil
}

// IsAttached reports whether the session is still live
func (p *Process) IsAttached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}

// IsConstrainedRuntime reports whether counts must be batched
func (p *Process) IsConstrainedRuntime() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.constrained
}

// CurrentEpisode returns the live suspend episode
func (p *Process) CurrentEpisode() *domain.Episode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.episode
}

// Subscribe registers l for lifecycle events
func (p *Process) Subscribe(l domain.LifecycleListener) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Suspend starts a new suspend episode and notifies listeners
// suspending an already suspended process starts a fresh episode, like hitting another breakpoint
func (p *Process) Suspend() (*domain.Episode, error) {
	p.mu.Lock()
	if !p.attached {
		p.mu.Unlock()
		return nil, perr.Detachedf("sim: process detached")
	}
	ep := domain.NewEpisode(p.now())
	p.episode = ep
	ls := p.listenersLocked()
	p.mu.Unlock()

	for _, l := range ls {
		l.OnSuspended()
	}
	return ep, nil
}

// Resume ends the suspend episode and notifies listeners
func (p *Process) Resume() error {
	p.mu.Lock()
	if !p.attached {
		p.mu.Unlock()
		return perr.Detachedf("sim: process detached")
	}
	if p.episode == nil {
		p.mu.Unlock()
		return perr.Conflictf("sim: process is running")
	}
	p.episode = nil
	ls := p.listenersLocked()
	p.mu.Unlock()

	for _, l := range ls {
		l.OnResumed()
	}
	return nil
}

// End detaches the session and notifies listeners once
func (p *Process) End() {
	p.mu.Lock()
	if !p.attached {
		p.mu.Unlock()
		return
	}
	p.attached = false
	p.episode = nil
	ls := p.listenersLocked()
	p.mu.Unlock()

	for _, l := range ls {
		l.OnSessionEnded()
	}
}

// Alloc creates n instances of class name, loading the class when needed
func (p *Process) Alloc(name string, n int) (domain.Class, error) {
	if name == "" || n < 0 {
		return domain.Class{}, perr.InvalidArgf("sim: alloc needs a class name and n >= 0")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return domain.Class{}, perr.Detachedf("sim: process detached")
	}
	return p.allocLocked(name, n), nil
}

// Free collects up to n of the oldest instances of class name and returns how many went
func (p *Process) Free(name string, n int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byName[name]
	if !ok {
		return 0, perr.NotFoundf("sim: class %q not loaded", name)
	}
	xs := p.heap[id]
	if n < 0 || n > len(xs) {
		n = len(xs)
	}
	p.heap[id] = slices.Clone(xs[n:])
	return n, nil
}

// SetConstrained flips the constrained runtime flag
func (p *Process) SetConstrained(v bool) {
	p.mu.Lock()
	p.constrained = v
	p.mu.Unlock()
}

func (p *Process) allocLocked(name string, n int) domain.Class {
	id, ok := p.byName[name]
	if !ok {
		p.nextClass++
		id = p.nextClass
		p.byName[name] = id
		p.classes = append(p.classes, domain.Class{ID: id, Name: name})
	}
	for range n {
		p.nextObject++
		p.heap[id] = append(p.heap[id], p.nextObject)
	}
	return domain.Class{ID: id, Name: name}
}

func (p *Process) listenersLocked() []domain.LifecycleListener {
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]domain.LifecycleListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.subs[id])
	}
	return out
}
