// Package dispatch provides the two execution contexts of a census session:
// a prioritized single worker command queue and an ordered UI loop
package dispatch

import (
	"container/heap"
	"context"
	"sync"

	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/logger"
	"heapcensus/internal/services/census/domain"
)

type command struct {
	prio domain.Priority
	seq  uint64
	fn   func(ctx context.Context)
}

// commandHeap orders by priority desc then submission order
type commandHeap []command

func (h commandHeap) Len() int { return len(h) }
func (h commandHeap) Less(i, j int) bool {
	if h[i].prio != h[j].prio {
		return h[i].prio > h[j].prio
	}
	return h[i].seq < h[j].seq
}
func (h commandHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *commandHeap) Push(x any) { *h = append(*h, x.(command)) }
func (h *commandHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = command{}
	*h = old[:n-1]
	return c
}

// CommandQueue runs scheduled commands one at a time on a single worker
type CommandQueue struct {
	mu     sync.Mutex
	items  commandHeap
	seq    uint64
	closed bool
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

var _ domain.CommandScheduler = (*CommandQueue)(nil)

// NewCommandQueue returns an idle queue; call Run to start the worker
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Schedule enqueues fn at priority p
func (q *CommandQueue) Schedule(p domain.Priority, fn func(ctx context.Context)) error {
	if fn == nil {
		return perr.InvalidArgf("dispatch: nil command")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return perr.Unavailablef("dispatch: command queue closed")
	}
	q.seq++
	heap.Push(&q.items, command{prio: p, seq: q.seq, fn: fn})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued commands
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects new commands and stops Run once the current command returns
// queued commands are dropped; listeners clean up their own state on session end
func (q *CommandQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.items = nil
		q.mu.Unlock()
		close(q.done)
	})
}

// Run executes commands until ctx is done or the queue is closed
func (q *CommandQueue) Run(ctx context.Context) error {
	log := logger.Named("dispatch")
	for {
		if c, ok := q.pop(); ok {
			runCommand(ctx, log, c.fn)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case <-q.wake:
		}
	}
}

func (q *CommandQueue) pop() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) == 0 {
		return command{}, false
	}
	return heap.Pop(&q.items).(command), true
}

func runCommand(ctx context.Context, log *logger.Logger, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("command panicked")
		}
	}()
	fn(ctx)
}
