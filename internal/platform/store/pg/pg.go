// Package pg opens the pgx pool that backs census history
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	// Slow flags traced statements at or above this latency; zero disables
	Slow time.Duration
}

// PG owns the pool and the optional statement tracer
type PG struct {
	Pool  *pgxpool.Pool
	Trace QueryTracer
	Slow  time.Duration
}

var newPool = pgxpool.NewWithConfig

// Open builds the pool; pgxpool dials lazily, so use WaitReady before serving traffic
func Open(ctx context.Context, cfg Config, trace QueryTracer) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: pool: %w", err)
	}
	return &PG{Pool: pool, Trace: trace, Slow: cfg.Slow}, nil
}

const (
	firstPause = 150 * time.Millisecond
	maxPause   = 2 * time.Second
)

// WaitReady pings the pool up to attempts times, doubling the pause between tries up to 2s
func (p *PG) WaitReady(ctx context.Context, attempts int, timeout time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	pause := firstPause
	var err error
	for i := 1; ; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = p.Pool.Ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
		pause = min(pause*2, maxPause)
	}
	return fmt.Errorf("pg: not ready after %d attempts: %w", attempts, err)
}

// Close releases the pool
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
