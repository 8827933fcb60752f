package config

import (
	"testing"
	"time"

	kit "heapcensus/internal/platform/testkit"
)

func TestPrefixNests(t *testing.T) {
	c := New().Prefix("CENSUS_").Prefix("SIM_")
	if got := c.key("SEED"); got != "CENSUS_SIM_SEED" {
		t.Fatalf("key = %q", got)
	}
	var zero Conf
	if got := zero.key("API_PORT"); got != "API_PORT" {
		t.Fatalf("zero key = %q", got)
	}
}

func TestScalars(t *testing.T) {
	c := New().Prefix("CFGT_")
	t.Setenv("CFGT_NAME", "  census ")
	t.Setenv("CFGT_BATCH", " 250 ")
	t.Setenv("CFGT_COEF", "0")
	t.Setenv("CFGT_TRACE", "true")
	t.Setenv("CFGT_GRACE", "150ms")

	if got := c.MayString("NAME", "x"); got != "census" {
		t.Fatalf("string = %q", got)
	}
	if got := c.MayInt("BATCH", 1); got != 250 {
		t.Fatalf("int = %d", got)
	}
	if got := c.MayFloat64("COEF", 0.5); got != 0 {
		t.Fatalf("explicit zero float = %v", got)
	}
	if got := c.MayBool("TRACE", false); !got {
		t.Fatal("bool = false")
	}
	if got := c.MayDuration("GRACE", time.Second); got != 150*time.Millisecond {
		t.Fatalf("duration = %v", got)
	}
}

func TestUnsetAndInvalidFallBack(t *testing.T) {
	c := New().Prefix("CFGU_")
	t.Setenv("CFGU_BLANK", "   ")
	t.Setenv("CFGU_BAD", "nope")

	if got := c.MayString("BLANK", "def"); got != "def" {
		t.Fatalf("blank string = %q", got)
	}
	if got := c.MayInt("BAD", 3); got != 3 {
		t.Fatalf("bad int = %d", got)
	}
	if got := c.MayFloat64("BAD", 0.5); got != 0.5 {
		t.Fatalf("bad float = %v", got)
	}
	if got := c.MayBool("BAD", true); !got {
		t.Fatal("bad bool should keep default")
	}
	if got := c.MayDuration("MISSING", time.Minute); got != time.Minute {
		t.Fatalf("missing duration = %v", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CFGC_")
	t.Setenv("CFGC_TRACK", " java.lang.String=identity, ,com.acme.*=delta ,, ")
	got := c.MayCSV("TRACK", nil)
	if len(got) != 2 || got[0] != "java.lang.String=identity" || got[1] != "com.acme.*=delta" {
		t.Fatalf("csv = %#v", got)
	}

	t.Setenv("CFGC_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"fallback"}); len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("all blank csv = %#v", got)
	}
	if got := c.MayCSV("MISSING", nil); got != nil {
		t.Fatalf("missing csv = %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("CFGE_")
	if got := c.MayEnum("MISSING", "auto", "off", "auto", "ch"); got != "auto" {
		t.Fatalf("default = %q", got)
	}

	t.Setenv("CFGE_HISTORY", "CH")
	if got := c.MayEnum("HISTORY", "auto", "off", "auto", "ch"); got != "ch" {
		t.Fatalf("canonical spelling = %q", got)
	}

	t.Setenv("CFGE_BAD", "s3")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "auto", "off", "auto", "ch") })
}
