package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"heapcensus/internal/platform/config"
	kit "heapcensus/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestOpen_NothingEnabled(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("unexpected backends pg=%T ch=%T", s.PG, s.CH)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("guard with no backends: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_CHOnly(t *testing.T) {
	var buf bytes.Buffer
	s, err := Open(context.Background(), Config{
		AppName: "heapcensus",
		CH:      CHConfig{Enabled: true, URL: "clickhouse://localhost:9000/census"},
	}, WithLogger(zerolog.New(&buf)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.CH == nil || s.PG != nil {
		t.Fatalf("pg=%T ch=%T", s.PG, s.CH)
	}
	_ = s.Close(context.Background())
}

func TestOpen_BadPGURL(t *testing.T) {
	s, err := Open(context.Background(), Config{
		PG: PGConfig{Enabled: true, URL: "://bad"},
		CH: CHConfig{Enabled: true, URL: "clickhouse://localhost:9000/census"},
	})
	if err == nil || s != nil {
		t.Fatalf("store=%v err=%v", s, err)
	}
	kit.MustContain(t, err.Error(), "pg: parse dsn")
}

func TestOpen_PGCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, Config{PG: PGConfig{
		Enabled:        true,
		URL:            "postgres://u:p@127.0.0.1:1/db?sslmode=disable",
		ConnectRetries: 3,
		PingTimeout:    20 * time.Millisecond,
	}})
	if err == nil {
		t.Fatal("want error with canceled context")
	}
}

type pingSeam struct {
	Clickhouse
	err error
}

func (p pingSeam) Ping(context.Context) error { return p.err }

func TestGuard_JoinsBackendFailures(t *testing.T) {
	down := errors.New("connection refused")
	s := &Store{CH: pingSeam{err: down}}
	err := s.Guard(context.Background())
	if !errors.Is(err, down) {
		t.Fatalf("guard = %v", err)
	}
	kit.MustContain(t, err.Error(), "ch: ")

	s.CH = pingSeam{}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("healthy guard = %v", err)
	}
	var nilStore *Store
	if err := nilStore.Guard(context.Background()); err == nil {
		t.Fatal("nil store guard passed")
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_ENABLED", "true")
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://census@db/census")
	t.Setenv("SERVICE_PGSQL_SLOW", "250ms")
	t.Setenv("SERVICE_CH_ENABLED", "1")

	cfg := FromConfig(config.New(), "heapcensus")
	if !cfg.PG.Enabled || cfg.PG.URL != "postgres://census@db/census" || cfg.PG.Slow != 250*time.Millisecond {
		t.Fatalf("pg = %+v", cfg.PG)
	}
	if cfg.PG.MaxConns != 4 || cfg.PG.ConnectRetries != 20 || cfg.PG.PingTimeout != 3*time.Second {
		t.Fatalf("pg defaults = %+v", cfg.PG)
	}
	if !cfg.CH.Enabled || cfg.CH.ClientRole != "heapcensus" || cfg.CH.ClientTag != "history" {
		t.Fatalf("ch = %+v", cfg.CH)
	}
}
