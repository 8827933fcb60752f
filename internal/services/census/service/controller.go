package service

import (
	"context"

	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/services/census/domain"
)

// OnSuspended refreshes when a reload was requested
func (s *Svc) OnSuspended() {
	if s.needsReload.Load() {
		s.trigger()
	}
}

// OnResumed hides stale content and drops any armed refresh
func (s *Svc) OnResumed() {
	s.ui.Post(s.sink.Invalidate)
	s.sched.Cancel()
}

// OnSessionEnded stops the scheduler and detaches from the lifecycle
// a cycle still waiting in the command queue may never run, so busy is cleared here
func (s *Svc) OnSessionEnded() {
	s.endOnce.Do(func() {
		s.sched.Close()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.inFlight.Swap(false) {
			s.ui.Post(func() { s.sink.SetBusy(false) })
		}
		s.log.Debug().Msg("census session ended")
	})
}

// MarkNeedsReload records whether the census view wants data
// switching it on while suspended in an episode not yet censused triggers a refresh
func (s *Svc) MarkNeedsReload(v bool) {
	if s.needsReload.Swap(v) == v || !v {
		return
	}
	ep := s.guard.Capture()
	if ep != nil && ep != s.lastEpisode.Load() {
		s.trigger()
	}
}

// Refresh requests a refresh regardless of the reload flag
func (s *Svc) Refresh() { s.trigger() }

// trigger arms the debounce timer; nothing can be queried while detached
func (s *Svc) trigger() {
	if !s.target.IsAttached() {
		return
	}
	s.sched.Request()
}

// onFire runs when the debounce timer elapses
func (s *Svc) onFire() {
	ep := s.guard.Capture()
	if ep == nil {
		return
	}
	// one cycle at a time; a trigger during a cycle waits one more delay
	if !s.inFlight.CompareAndSwap(false, true) {
		s.sched.Request()
		return
	}
	s.lastEpisode.Store(ep)

	s.ui.Post(func() { s.sink.SetBusy(true) })
	err := s.cmds.Schedule(domain.PriorityLowest, func(ctx context.Context) {
		s.runCycle(ctx, ep)
	})
	if err != nil {
		s.inFlight.Store(false)
		s.ui.Post(func() { s.sink.SetBusy(false) })
		s.log.Debug().Err(err).Msg("census command not scheduled")
	}
}

// Tracked returns every tracking report
func (s *Svc) Tracked() []domain.TrackedClass { return s.store.Reports() }

// TrackedClass returns the tracking report of one class
func (s *Svc) TrackedClass(id domain.ClassID) (domain.TrackedClass, bool) {
	return s.store.Report(id)
}

// ActivateSelection lists the live instances of a class while the target is suspended
// the lookup runs on the command context; limit <= 0 uses the configured drill-down limit
func (s *Svc) ActivateSelection(ctx context.Context, id domain.ClassID, limit int) (domain.Instances, error) {
	if !s.target.IsAttached() {
		return domain.Instances{}, perr.Detachedf("target is not attached")
	}
	if s.guard.Capture() == nil {
		return domain.Instances{}, perr.Conflictf("target is not suspended")
	}
	if limit <= 0 {
		limit = s.config.DrillDownLimit
	}

	type result struct {
		out domain.Instances
		err error
	}
	done := make(chan result, 1)
	err := s.cmds.Schedule(domain.PriorityNormal, func(cctx context.Context) {
		out, err := s.drillDown(cctx, id, limit)
		done <- result{out: out, err: err}
	})
	if err != nil {
		return domain.Instances{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "schedule drill-down")
	}

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return domain.Instances{}, ctx.Err()
	}
}

func (s *Svc) drillDown(ctx context.Context, id domain.ClassID, limit int) (out domain.Instances, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perr.PanicErrf("introspector panic: %v", r)
		}
	}()

	// the target may have resumed while the command waited in the queue
	if s.guard.Capture() == nil {
		return out, perr.Conflictf("target is not suspended")
	}

	class, ok := s.lookupClass(ctx, id)
	if !ok {
		return out, perr.NotFoundf("class %d not loaded", id)
	}

	xs, err := s.target.Instances(ctx, id, limit)
	if err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeIntrospection, "instances of %s", class.Name)
	}
	if xs == nil {
		xs = []domain.ObjectID{}
	}

	out = domain.Instances{Class: class, Instances: xs, Limit: limit}
	if tc, ok := s.store.Report(id); ok {
		r := tc.Report
		out.Tracking = &r
	}
	return out, nil
}

// lookupClass resolves a class handle from the tracking store, then the live class list
func (s *Svc) lookupClass(ctx context.Context, id domain.ClassID) (domain.Class, bool) {
	if tc, ok := s.store.Report(id); ok {
		return tc.Class, true
	}
	classes, err := s.target.ListClasses(ctx)
	if err != nil {
		return domain.Class{}, false
	}
	for _, c := range classes {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Class{}, false
}
