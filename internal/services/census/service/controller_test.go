package service

import (
	"context"
	"testing"
	"time"

	"heapcensus/internal/core/tracking"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/services/census/domain"
)

func TestNew_SubscribesToLifecycle(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	if len(target.listeners) != 1 || target.listeners[0] != domain.LifecycleListener(h.svc) {
		t.Fatalf("listeners = %v", target.listeners)
	}
}

func TestController_CoalescesTriggers(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{InitialDelay: 100 * time.Millisecond})
	target.suspend()

	h.svc.Refresh()
	h.clock.Advance(40 * time.Millisecond)
	h.svc.Refresh()
	h.clock.Advance(40 * time.Millisecond)
	h.svc.Refresh()
	h.clock.Advance(99 * time.Millisecond)
	if n := h.cmds.count(); n != 0 {
		t.Fatalf("scheduled early: %d", n)
	}
	h.clock.Advance(time.Millisecond)
	if n := h.cmds.count(); n != 1 {
		t.Fatalf("scheduled %d, want 1", n)
	}
	if h.cmds.prios[0] != domain.PriorityLowest {
		t.Fatalf("priority = %v, want lowest", h.cmds.prios[0])
	}
}

func TestController_ResumeCancelsArmedTimer(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{InitialDelay: 50 * time.Millisecond})
	target.suspend()

	h.svc.MarkNeedsReload(true)
	if !h.svc.Status().RefreshPending {
		t.Fatal("reload while suspended should arm a refresh")
	}

	target.resume()
	h.svc.OnResumed()
	if h.svc.Status().RefreshPending {
		t.Fatal("resume left the timer armed")
	}
	h.clock.Advance(time.Second)
	if n := h.cmds.count(); n != 0 {
		t.Fatalf("cancelled refresh scheduled %d commands", n)
	}
	if ev := h.sink.log(); !equalStrings(ev, []string{"invalidate"}) {
		t.Fatalf("sink events = %v", ev)
	}
}

func TestController_TriggerDuringCycleRearms(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.Refresh()
	h.clock.Advance(0)
	if !h.svc.Status().InFlight {
		t.Fatal("cycle not in flight after fire")
	}

	h.svc.Refresh()
	h.clock.Advance(0)
	if n := h.cmds.count(); n != 1 {
		t.Fatalf("second cycle started while one in flight: %d", n)
	}
	if !h.svc.Status().RefreshPending {
		t.Fatal("trigger during cycle should rearm the timer")
	}

	h.cmds.drain()
	h.clock.Advance(h.svc.sched.Delay())
	if n := h.cmds.count(); n != 2 {
		t.Fatalf("rearmed refresh not scheduled after cycle: %d", n)
	}
}

func TestController_DetachedTargetNeverArms(t *testing.T) {
	target := newFakeTarget("A")
	target.attached = false
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.Refresh()
	h.svc.MarkNeedsReload(true)
	if h.svc.Status().RefreshPending {
		t.Fatal("detached target armed a refresh")
	}
}

func TestController_FireWithoutEpisodeDoesNothing(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.Refresh()
	target.resume()
	h.clock.Advance(0)
	if n := h.cmds.count(); n != 0 {
		t.Fatalf("scheduled %d with no episode", n)
	}
	if ev := h.sink.log(); len(ev) != 0 {
		t.Fatalf("sink events = %v", ev)
	}
}

func TestController_NeedsReloadOnlyForNewEpisode(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.MarkNeedsReload(true)
	h.clock.Advance(0)
	h.cmds.drain()
	if n := h.cmds.count(); n != 1 {
		t.Fatalf("scheduled %d, want 1", n)
	}

	// same episode already censused
	h.svc.MarkNeedsReload(false)
	h.svc.MarkNeedsReload(true)
	if h.svc.Status().RefreshPending {
		t.Fatal("reload flag re-armed for a censused episode")
	}

	// next suspension refreshes because the flag is set
	target.resume()
	h.svc.OnResumed()
	target.suspend()
	h.svc.OnSuspended()
	if !h.svc.Status().RefreshPending {
		t.Fatal("suspend with reload flag set did not arm")
	}
}

func TestController_OnSuspendedWithoutReloadFlag(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.OnSuspended()
	if h.svc.Status().RefreshPending {
		t.Fatal("armed without reload flag")
	}
}

func TestController_SessionEnded(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{InitialDelay: time.Millisecond})
	target.suspend()

	h.svc.Refresh()
	h.svc.OnSessionEnded()
	h.svc.OnSessionEnded()
	if target.unsubscribed != 1 {
		t.Fatalf("unsubscribed %d times", target.unsubscribed)
	}

	h.svc.Refresh()
	h.clock.Advance(time.Second)
	if n := h.cmds.count(); n != 0 || h.svc.Status().RefreshPending {
		t.Fatalf("ended session still refreshes: %d", n)
	}
}

func TestController_SessionEndClearsBusyForDroppedCycle(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	target.suspend()

	h.svc.Refresh()
	h.clock.Advance(0)
	if !h.svc.Status().InFlight {
		t.Fatal("cycle not queued")
	}

	h.cmds.close()
	h.svc.OnSessionEnded()

	if ev := h.sink.log(); !equalStrings(ev, []string{"busy", "idle"}) {
		t.Fatalf("sink events = %v", ev)
	}
	if st := h.svc.Status(); st.InFlight {
		t.Fatalf("status = %+v", st)
	}
	if target.listCalls != 0 {
		t.Fatal("dropped cycle ran")
	}
}

func TestController_ScheduleFailureClearsBusy(t *testing.T) {
	target := newFakeTarget("A")
	h := newHarness(t, target, nil, Config{})
	h.cmds.closed = true
	target.suspend()

	h.svc.Refresh()
	h.clock.Advance(0)

	if ev := h.sink.log(); !equalStrings(ev, []string{"busy", "idle"}) {
		t.Fatalf("sink events = %v", ev)
	}
	if h.svc.Status().InFlight {
		t.Fatal("in flight flag stuck after failed schedule")
	}
}

func TestActivateSelection(t *testing.T) {
	target := newFakeTarget("A", "B")
	target.instances[2] = []domain.ObjectID{5, 6, 7}
	h := newHarness(t, target, trackOnly{"B": tracking.KindIdentity}, Config{DrillDownLimit: 1})
	h.cmds.inline = true
	ctx := context.Background()

	if _, err := h.svc.ActivateSelection(ctx, 2, 0); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("running target: err = %v, want conflict", err)
	}

	target.suspend()
	h.svc.Refresh()
	h.clock.Advance(0)

	got, err := h.svc.ActivateSelection(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ActivateSelection: %v", err)
	}
	if got.Class.Name != "B" || len(got.Instances) != 2 || got.Limit != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Tracking == nil || got.Tracking.Kind != tracking.KindIdentity {
		t.Fatalf("tracking report missing: %+v", got.Tracking)
	}

	got, err = h.svc.ActivateSelection(ctx, 1, 0)
	if err != nil {
		t.Fatalf("untracked class: %v", err)
	}
	if got.Class.Name != "A" || got.Tracking != nil || got.Limit != 1 {
		t.Fatalf("got %+v", got)
	}

	if _, err := h.svc.ActivateSelection(ctx, 99, 0); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown class: err = %v", err)
	}

	target.attached = false
	if _, err := h.svc.ActivateSelection(ctx, 2, 0); !perr.IsCode(err, perr.ErrorCodeDetached) {
		t.Fatalf("detached: err = %v", err)
	}
}
