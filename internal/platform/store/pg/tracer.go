package pg

import (
	"context"
	"strings"
	"time"

	"heapcensus/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one finished statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer observes finished statements
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// TracerFunc adapts a function to QueryTracer
type TracerFunc func(ctx context.Context, ev QueryEvent)

func (f TracerFunc) OnQuery(ctx context.Context, ev QueryEvent) { f(ctx, ev) }

// LogTracer logs every statement regardless of the root level: debug normally,
// warn when slow, error on failure. request_id and cycle_id come from ctx.
func LogTracer(base logger.Logger) QueryTracer {
	l := base.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return TracerFunc(func(ctx context.Context, ev QueryEvent) {
		var e *zerolog.Event
		switch {
		case ev.Err != nil:
			e = l.Error().Err(ev.Err)
		case ev.Slow:
			e = l.Warn()
		default:
			e = l.Debug()
		}
		if id := logger.RequestID(ctx); id != "" {
			e = e.Str("request_id", id)
		}
		if id := logger.CycleID(ctx); id != "" {
			e = e.Str("cycle_id", id)
		}
		e.Dur("elapsed", ev.Elapsed).
			Bool("slow", ev.Slow).
			Str("sql", squash(ev.SQL)).
			Int("args", len(ev.Args)).
			Msg("pg query")
	})
}

// squash collapses runs of whitespace so multi-line statements log on one line
func squash(sql string) string { return strings.Join(strings.Fields(sql), " ") }
