// Package logger owns the process zerolog root and the request and census-cycle
// fields carried on context
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"heapcensus/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // "console" or "json"
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* through the raw view, since config itself logs
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "debug"),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// Init builds the root logger; only the first call has any effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opt.Writer
		if w == nil {
			w = os.Stdout
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		b := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if bi, ok := debug.ReadBuildInfo(); ok {
			b = b.Str("go_version", bi.GoVersion)
		}
		if opt.Service != "" {
			b = b.Str("service", opt.Service)
		}
		if opt.Component != "" {
			b = b.Str("component", opt.Component)
		}
		for k, v := range opt.StaticFields {
			b = b.Str(k, v)
		}
		if opt.WithCaller {
			b = b.Caller()
		}

		l := b.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&l)
	})
}

// Get returns the root logger, initialising it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Named returns a child logger tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// parseLevel defaults to debug for empty or unknown names
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type field uint8

const (
	fieldRequest field = iota
	fieldSession
	fieldCycle
)

// log field name per context key, in emit order
var fieldNames = [...]string{
	fieldRequest: "request_id",
	fieldSession: "session_id",
	fieldCycle:   "cycle_id",
}

func with(ctx context.Context, f field, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, f, v)
}

func value(ctx context.Context, f field) string {
	s, _ := ctx.Value(f).(string)
	return s
}

// WithRequest stamps the request and session ids; empty values are skipped
func WithRequest(ctx context.Context, reqID, sessionID string) context.Context {
	return with(with(ctx, fieldRequest, reqID), fieldSession, sessionID)
}

// WithCycle stamps the census cycle id
func WithCycle(ctx context.Context, cycleID string) context.Context {
	return with(ctx, fieldCycle, cycleID)
}

func RequestID(ctx context.Context) string { return value(ctx, fieldRequest) }
func SessionID(ctx context.Context) string { return value(ctx, fieldSession) }
func CycleID(ctx context.Context) string   { return value(ctx, fieldCycle) }

// C returns a root child carrying whichever ids ctx holds
func C(ctx context.Context) *Logger {
	b := Get().With()
	for f, name := range fieldNames {
		if v := value(ctx, field(f)); v != "" {
			b = b.Str(name, v)
		}
	}
	l := b.Logger()
	return &l
}
