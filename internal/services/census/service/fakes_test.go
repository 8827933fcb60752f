package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"heapcensus/internal/core/debounce"
	"heapcensus/internal/core/tracking"
	"heapcensus/internal/modkit"
	"heapcensus/internal/services/census/domain"

	"github.com/rs/zerolog"
)

var errIntrospect = errors.New("introspection broke")

// fakeTarget is a scripted suspended process
type fakeTarget struct {
	mu          sync.Mutex
	classes     []domain.Class
	counts      map[domain.ClassID]int64
	instances   map[domain.ClassID][]domain.ObjectID
	episode     *domain.Episode
	attached    bool
	constrained bool

	listErr   error
	countsErr error
	badLength bool
	panicMsg  string

	// afterCounts runs after the n-th InstanceCounts call (1 based)
	afterCounts func(n int)
	// latencies are consumed per InstanceCounts call and advance clk
	latencies []time.Duration
	clk       *fakeNow

	listCalls     int
	countCalls    [][]domain.Class
	instanceCalls []domain.ClassID
	listeners     []domain.LifecycleListener
	unsubscribed  int
}

func newFakeTarget(names ...string) *fakeTarget {
	t := &fakeTarget{
		counts:    map[domain.ClassID]int64{},
		instances: map[domain.ClassID][]domain.ObjectID{},
		attached:  true,
	}
	for i, n := range names {
		id := domain.ClassID(i + 1)
		t.classes = append(t.classes, domain.Class{ID: id, Name: n})
		t.counts[id] = int64(i + 1)
	}
	return t
}

func (t *fakeTarget) suspend() *domain.Episode {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.episode = domain.NewEpisode(time.Now())
	return t.episode
}

func (t *fakeTarget) resume() {
	t.mu.Lock()
	t.episode = nil
	t.mu.Unlock()
}

func (t *fakeTarget) ListClasses(context.Context) ([]domain.Class, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listCalls++
	if t.listErr != nil {
		return nil, t.listErr
	}
	return append([]domain.Class(nil), t.classes...), nil
}

func (t *fakeTarget) InstanceCounts(_ context.Context, cs []domain.Class) ([]int64, error) {
	t.mu.Lock()
	t.countCalls = append(t.countCalls, append([]domain.Class(nil), cs...))
	n := len(t.countCalls)
	if t.clk != nil && len(t.latencies) > 0 {
		t.clk.advance(t.latencies[0])
		t.latencies = t.latencies[1:]
	}
	if t.panicMsg != "" {
		msg := t.panicMsg
		t.mu.Unlock()
		panic(msg)
	}
	err := t.countsErr
	out := make([]int64, 0, len(cs))
	for _, c := range cs {
		out = append(out, t.counts[c.ID])
	}
	if t.badLength {
		out = out[:len(out)-1]
	}
	hook := t.afterCounts
	t.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *fakeTarget) Instances(_ context.Context, id domain.ClassID, limit int) ([]domain.ObjectID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instanceCalls = append(t.instanceCalls, id)
	xs := append([]domain.ObjectID(nil), t.instances[id]...)
	if limit > 0 && len(xs) > limit {
		xs = xs[:limit]
	}
	return xs, nil
}

func (t *fakeTarget) IsAttached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attached
}

func (t *fakeTarget) IsConstrainedRuntime() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.constrained
}

func (t *fakeTarget) CurrentEpisode() *domain.Episode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episode
}

func (t *fakeTarget) Subscribe(l domain.LifecycleListener) func() {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.unsubscribed++
		t.mu.Unlock()
	}
}

// fakeSink records display calls in order
type fakeSink struct {
	mu        sync.Mutex
	events    []string
	published []domain.Census
}

func (s *fakeSink) Publish(c domain.Census) {
	s.mu.Lock()
	s.events = append(s.events, "publish")
	s.published = append(s.published, c)
	s.mu.Unlock()
}

func (s *fakeSink) SetBusy(b bool) {
	s.mu.Lock()
	if b {
		s.events = append(s.events, "busy")
	} else {
		s.events = append(s.events, "idle")
	}
	s.mu.Unlock()
}

func (s *fakeSink) Invalidate() {
	s.mu.Lock()
	s.events = append(s.events, "invalidate")
	s.mu.Unlock()
}

func (s *fakeSink) log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// inlineUI runs posted funcs immediately
type inlineUI struct{}

func (inlineUI) Post(fn func()) { fn() }

// queue holds scheduled commands until drained, or runs them inline
type queue struct {
	mu        sync.Mutex
	inline    bool
	closed    bool
	pending   []func(context.Context)
	prios     []domain.Priority
	scheduled int
}

func (q *queue) Schedule(p domain.Priority, fn func(context.Context)) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("queue closed")
	}
	q.scheduled++
	q.prios = append(q.prios, p)
	if q.inline {
		q.mu.Unlock()
		fn(context.Background())
		return nil
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	return nil
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		fn(context.Background())
	}
}

// close drops pending commands the way the dispatch queue does
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.mu.Unlock()
}

func (q *queue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scheduled
}

// manualClock fires debounce timers synchronously from Advance
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	c.mu.Unlock()

	for _, t := range due {
		t.fired = true
		t.f()
	}
}

// fakeNow is a wall clock advanced by the fake target
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// trackOnly tracks the named classes with one kind
type trackOnly map[string]tracking.Kind

func (m trackOnly) TrackingKindFor(name string) (tracking.Kind, bool) {
	k, ok := m[name]
	return k, ok
}

type harness struct {
	svc    *Svc
	target *fakeTarget
	sink   *fakeSink
	cmds   *queue
	clock  *manualClock
	wall   *fakeNow
}

func newHarness(t *testing.T, target *fakeTarget, lookup domain.TrackingConfig, cfg Config) *harness {
	t.Helper()
	h := &harness{
		target: target,
		sink:   &fakeSink{},
		cmds:   &queue{},
		clock:  &manualClock{},
		wall:   &fakeNow{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	target.clk = h.wall
	h.svc = New(modkit.Deps{Log: zerolog.Nop()}, Runtime{
		Target:   target,
		Tracking: lookup,
		Sink:     h.sink,
		Commands: h.cmds,
		UI:       inlineUI{},
		Clock:    h.clock,
		Now:      h.wall.now,
	}, cfg)
	return h
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
