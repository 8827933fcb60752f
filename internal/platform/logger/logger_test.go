package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	kit "heapcensus/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" INFO ":   zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"":         zerolog.DebugLevel,
		"verbose":  zerolog.DebugLevel,
		"panic":    zerolog.PanicLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// Init is once-only, so everything that depends on the root shares this test
func TestRootAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{
		Level:        "debug",
		Format:       "json",
		Service:      "heapcensus",
		Writer:       &buf,
		StaticFields: map[string]string{"build": "test"},
	})
	Init(Options{Level: "error"}) // ignored

	ctx := WithCycle(WithRequest(context.Background(), "req-1", "sess-1"), "cyc-9")
	C(ctx).Info().Msg("published")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	for k, want := range map[string]string{
		"request_id": "req-1",
		"session_id": "sess-1",
		"cycle_id":   "cyc-9",
		"service":    "heapcensus",
		"build":      "test",
		"message":    "published",
	} {
		if line[k] != want {
			t.Errorf("%s = %v, want %q", k, line[k], want)
		}
	}

	buf.Reset()
	Named("census").Debug().Msg("batch")
	kit.MustContain(t, buf.String(), `"component":"census"`)

	buf.Reset()
	C(context.Background()).Info().Msg("bare")
	if bytes.Contains(buf.Bytes(), []byte("request_id")) {
		t.Fatalf("unexpected request_id: %s", buf.String())
	}
}

func TestContextGetters(t *testing.T) {
	ctx := context.Background()
	if WithCycle(ctx, "") != ctx || WithRequest(ctx, "", "") != ctx {
		t.Fatal("empty ids should leave ctx unchanged")
	}
	ctx = WithCycle(WithRequest(ctx, "req-2", "sess-2"), "cyc-2")
	if RequestID(ctx) != "req-2" || SessionID(ctx) != "sess-2" || CycleID(ctx) != "cyc-2" {
		t.Fatalf("request=%q session=%q cycle=%q", RequestID(ctx), SessionID(ctx), CycleID(ctx))
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_SERVICE", "heapcensus")
	t.Setenv("LOG_CALLER", "yes")
	t.Setenv("LOG_SAMPLE_EVERY", "5")

	opt := FromEnv()
	if opt.Level != "warn" || opt.Format != "json" || opt.Service != "heapcensus" {
		t.Fatalf("opts = %+v", opt)
	}
	if !opt.WithCaller || opt.SampleEvery != 5 {
		t.Fatalf("opts = %+v", opt)
	}
}
