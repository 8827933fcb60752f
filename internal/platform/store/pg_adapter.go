package store

import (
	"context"
	"fmt"
	"time"

	"heapcensus/internal/platform/logger"
	"heapcensus/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// openPG opens the pool, waits for the server and wraps it as a TxRunner
func openPG(ctx context.Context, cfg PGConfig, log logger.Logger) (*pgAdapter, error) {
	var trace pg.QueryTracer
	if cfg.LogSQL {
		trace = pg.LogTracer(log)
	}
	p, err := pg.Open(ctx, pg.Config{URL: cfg.URL, MaxConns: cfg.MaxConns, Slow: cfg.Slow}, trace)
	if err != nil {
		return nil, err
	}

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 20
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if err := p.WaitReady(ctx, retries, timeout); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

// pgxQuerier is the statement surface pgxpool.Pool and pgx.Tx share
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// traced runs statements on q and reports each to the tracer
type traced struct {
	q     pgxQuerier
	trace pg.QueryTracer
	slow  time.Duration
}

var _ RowQuerier = traced{}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.q.Exec(ctx, sql, args...)
	t.report(ctx, sql, args, start, err)
	return ct, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.q.Query(ctx, sql, args...)
	t.report(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgxRows{rs}, nil
}

// QueryRow reports once Scan returns, since pgx defers the error until then
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := t.q.QueryRow(ctx, sql, args...)
	return rowFunc(func(dest ...any) error {
		err := r.Scan(dest...)
		t.report(ctx, sql, args, start, err)
		return err
	})
}

func (t traced) report(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.trace == nil {
		return
	}
	d := time.Since(start)
	t.trace.OnQuery(ctx, pg.QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: d,
		Err:     err,
		Slow:    t.slow > 0 && d >= t.slow,
	})
}

// pgAdapter is the pool-backed TxRunner
type pgAdapter struct {
	traced
	begin func(context.Context) (pgx.Tx, error)
	ping  func(context.Context) error
	close func()
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		traced: traced{q: p.Pool, trace: p.Trace, slow: p.Slow},
		begin:  p.Pool.Begin,
		ping:   p.Pool.Ping,
		close:  p.Close,
	}
}

// Tx commits when fn returns nil and rolls back on error or panic
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) (err error) {
	tx, err := a.begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()
	if err = fn(traced{q: tx, trace: a.trace, slow: a.slow}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (a *pgAdapter) Ping(ctx context.Context) error { return a.ping(ctx) }

func (a *pgAdapter) Close() error {
	a.close()
	return nil
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

// pgxRows adds Columns to pgx.Rows
type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() []string {
	fds := r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}
