package dispatch

import (
	"context"
	"sync"

	"heapcensus/internal/platform/logger"
	"heapcensus/internal/services/census/domain"
)

// UILoop runs posted funcs in order on one goroutine
type UILoop struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
}

var _ domain.UIContext = (*UILoop)(nil)

// NewUILoop returns a loop buffering up to buf posts
func NewUILoop(buf int) *UILoop {
	if buf <= 0 {
		buf = 64
	}
	return &UILoop{ch: make(chan func(), buf), done: make(chan struct{})}
}

// Post hands fn to the loop; it blocks while the buffer is full and drops fn after Close
func (l *UILoop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.ch <- fn:
	case <-l.done:
	}
}

// Close stops the loop; pending posts are dropped
func (l *UILoop) Close() { l.once.Do(func() { close(l.done) }) }

// Run executes posted funcs until ctx is done or the loop is closed
func (l *UILoop) Run(ctx context.Context) error {
	log := logger.Named("ui")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.ch:
			runPosted(log, fn)
		}
	}
}

func runPosted(log *logger.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("ui func panicked")
		}
	}()
	fn()
}
