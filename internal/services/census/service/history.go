package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/logger"
	"heapcensus/internal/services/census/domain"
)

// HistorySink names one durable writer for the recorder
type HistorySink struct {
	Name   string
	Writer domain.HistoryWriter
}

// HistoryStats counts recorder outcomes
type HistoryStats struct {
	Queued   int64 `json:"queued"`
	Written  int64 `json:"written"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
	Retried  int64 `json:"retried"`
	Buffered int   `json:"buffered"`
}

// Recorder persists published censuses off the executor path
// Record never blocks; a full buffer drops the census
type Recorder struct {
	log     *logger.Logger
	sinks   []HistorySink
	queue   chan domain.Census
	baseMs  int
	sleep   func(ctx context.Context, d time.Duration) error
	closeMu sync.RWMutex
	closed  bool

	queued, written, dropped, failed, retried atomic.Int64
}

// NewRecorder buffers up to buffer censuses for sinks
func NewRecorder(log logger.Logger, buffer int, sinks ...HistorySink) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	l := log.With().Str("component", "census.history").Logger()
	return &Recorder{
		log:    &l,
		sinks:  sinks,
		queue:  make(chan domain.Census, buffer),
		baseMs: 250,
		sleep:  sleepCtx,
	}
}

// Record implements domain.HistoryPort
func (r *Recorder) Record(_ context.Context, c domain.Census) error {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return perr.Unavailablef("census history closed")
	}
	select {
	case r.queue <- c:
		r.queued.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		return perr.Unavailablef("census history buffer full")
	}
}

// Run writes queued censuses until ctx is done or Close drains the queue
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-r.queue:
			if !ok {
				return nil
			}
			r.write(ctx, c)
		}
	}
}

// Close stops accepting censuses; Run returns once the queue is drained
func (r *Recorder) Close() {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.queue)
}

// Stats returns a snapshot of the counters
func (r *Recorder) Stats() HistoryStats {
	return HistoryStats{
		Queued:   r.queued.Load(),
		Written:  r.written.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Retried:  r.retried.Load(),
		Buffered: len(r.queue),
	}
}

func (r *Recorder) write(ctx context.Context, c domain.Census) {
	ok := true
	for _, s := range r.sinks {
		if err := r.writeSink(ctx, s, c); err != nil {
			ok = false
			r.log.Warn().Err(err).
				Str("sink", s.Name).
				Str("cycle_id", c.CycleID.String()).
				Msg("census history write failed")
		}
	}
	if ok {
		r.written.Add(1)
	} else {
		r.failed.Add(1)
	}
}

// one retry on transient errors
func (r *Recorder) writeSink(ctx context.Context, s HistorySink, c domain.Census) error {
	err := s.Writer.WriteCensus(ctx, c)
	if err == nil || !perr.Retryable(err) {
		return err
	}
	r.retried.Add(1)
	if serr := r.sleep(ctx, backoffFor(0, r.baseMs)); serr != nil {
		return err
	}
	return s.Writer.WriteCensus(ctx, c)
}

func backoffFor(attempts int, baseMs int) time.Duration {
	if baseMs <= 0 {
		baseMs = 250
	}
	if attempts < 0 {
		attempts = 0
	}
	ms := min(int64(baseMs)<<uint(attempts), int64(time.Minute/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
