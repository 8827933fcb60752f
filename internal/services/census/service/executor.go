package service

import (
	"context"
	"time"

	"heapcensus/internal/core/batch"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/logger"
	"heapcensus/internal/services/census/domain"

	"github.com/google/uuid"
)

// cycleResult is what one census cycle produced
type cycleResult struct {
	outcome domain.Outcome
	census  domain.Census
	batches int
	latency time.Duration
	err     error
}

// runCycle is the census command; it runs on the process command context only
func (s *Svc) runCycle(ctx context.Context, ep *domain.Episode) {
	defer s.inFlight.Store(false)

	cycleID := uuid.New()
	ctx = logger.WithCycle(ctx, cycleID.String())
	log := logger.C(ctx).With().Str("component", "census").Logger()
	log.Debug().Msg("census cycle started")

	res := s.collect(ctx, ep)
	res.census.CycleID = cycleID

	s.setState(domain.StatePublishing)
	published := res.outcome == domain.OutcomePublished
	c := res.census
	s.ui.Post(func() {
		if published {
			s.sink.Publish(c)
		}
		s.sink.SetBusy(false)
	})
	s.setState(domain.StateIdle)

	s.recordStats(res)

	switch res.outcome {
	case domain.OutcomePublished:
		log.Debug().
			Int("classes", len(c.Classes)).
			Int("batches", res.batches).
			Int64("instances", c.Total()).
			Msg("census cycle published")
		if s.history != nil {
			if err := s.history.Record(ctx, c); err != nil {
				log.Debug().Err(err).Msg("census history not recorded")
			}
		}
	case domain.OutcomeAborted:
		log.Debug().Int("batches", res.batches).Msg("census cycle aborted; suspend context changed")
	case domain.OutcomeFailed:
		log.Debug().Err(res.err).Msg("census cycle failed")
	default:
		log.Debug().Msg("census cycle skipped; no valid suspend context")
	}
}

// collect walks the cycle states up to publishing
// failures never escape as panics; a panicking introspector fails the cycle
func (s *Svc) collect(ctx context.Context, ep *domain.Episode) (res cycleResult) {
	defer func() {
		if r := recover(); r != nil {
			res.outcome = domain.OutcomeFailed
			res.err = perr.PanicErrf("introspector panic: %v", r)
		}
	}()

	s.setState(domain.StateCapturingContext)
	if !s.guard.StillValid(ep) {
		return cycleResult{outcome: domain.OutcomeSkipped}
	}

	base := domain.Census{EpisodeID: ep.ID, At: s.now().UTC()}

	classes, err := s.target.ListClasses(ctx)
	if err != nil {
		return failed(perr.Wrap(err, perr.ErrorCodeIntrospection, "list classes"))
	}
	if len(classes) == 0 {
		base.Classes = []domain.Class{}
		base.Counts = []int64{}
		return cycleResult{outcome: domain.OutcomePublished, census: base}
	}

	for _, c := range classes {
		if _, err := s.store.EnsureTracked(ctx, c, s.lookup, s.target); err != nil {
			return failed(err)
		}
	}
	if err := s.store.UpdateAll(ctx, s.target); err != nil {
		return failed(err)
	}

	plan := batch.Plan(len(classes), s.batchSize())
	chunks := make([][]int64, 0, len(plan))

	s.setState(domain.StateBatching)
	for _, sp := range plan {
		// tracking updates made above are kept even when this aborts
		if !s.guard.StillValid(ep) {
			s.setState(domain.StateAborted)
			return cycleResult{outcome: domain.OutcomeAborted, batches: len(chunks), latency: res.latency}
		}

		part := batch.Slice(classes, sp)
		start := s.now()
		counts, err := s.target.InstanceCounts(ctx, part)
		latency := s.now().Sub(start)
		if err != nil {
			return failed(perr.Wrap(err, perr.ErrorCodeIntrospection, "instance counts"))
		}
		if len(counts) != len(part) {
			return failed(perr.Introspectionf("instance counts: got %d for %d classes", len(counts), len(part)))
		}

		chunks = append(chunks, counts)
		res.latency = latency
		s.sched.SetDelay(s.delayFor(latency))

		logger.C(ctx).Info().
			Int64("latency_ms", latency.Milliseconds()).
			Int("batch_size", len(part)).
			Msg("instances query")
	}

	// the target may have resumed while the last batch ran
	if !s.guard.StillValid(ep) {
		s.setState(domain.StateAborted)
		return cycleResult{outcome: domain.OutcomeAborted, batches: len(chunks), latency: res.latency}
	}

	base.Classes = classes
	base.Counts = batch.Concat(chunks)
	return cycleResult{
		outcome: domain.OutcomePublished,
		census:  base,
		batches: len(chunks),
		latency: res.latency,
	}
}

func failed(err error) cycleResult {
	return cycleResult{outcome: domain.OutcomeFailed, err: err}
}

// batchSize picks the plan size for the current runtime
func (s *Svc) batchSize() int {
	if s.target.IsConstrainedRuntime() {
		return s.config.ConstrainedBatchSize
	}
	return s.config.DefaultBatchSize
}

// delayFor scales the whole milliseconds of latency by the coefficient
func (s *Svc) delayFor(latency time.Duration) time.Duration {
	ms := int64(*s.config.Coefficient * float64(latency.Milliseconds()))
	return time.Duration(ms) * time.Millisecond
}

func (s *Svc) recordStats(res cycleResult) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	switch res.outcome {
	case domain.OutcomePublished:
		s.stats.Published++
		s.stats.LastClasses = len(res.census.Classes)
	case domain.OutcomeAborted:
		s.stats.Aborted++
	case domain.OutcomeFailed:
		s.stats.Failed++
	default:
		s.stats.Skipped++
	}
	s.stats.LastOutcome = res.outcome
	s.stats.LastBatches = res.batches
	if res.latency > 0 {
		s.stats.LastLatency = res.latency
	}
	s.stats.LastAt = s.now().UTC()
}
