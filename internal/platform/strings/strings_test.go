package strings

import (
	"testing"

	kit "heapcensus/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	origins := IfEmpty(nil, []string{"*"})
	if len(origins) != 1 || origins[0] != "*" {
		t.Fatalf("default = %v", origins)
	}
	set := []string{"http://localhost:5173"}
	if got := IfEmpty(set, []string{"*"}); &got[0] != &set[0] {
		t.Fatal("non-empty input should be returned as-is")
	}
}

func TestMustString(t *testing.T) {
	if got := MustString("census", "module name"); got != "census" {
		t.Fatalf("got %q", got)
	}
	r := kit.MustPanic(t, func() { MustString(" \t", "module name") })
	if r != "module name is required" {
		t.Fatalf("panic = %v", r)
	}
}

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"census":       "/census",
		"/census/":     "/census",
		"  /meta  ":    "/meta",
		"//census/v2/": "/census/v2",
	} {
		if got := MustPrefix(in); got != want {
			t.Errorf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	kit.MustPanic(t, func() { MustPrefix(" / ") })
	kit.MustPanic(t, func() { MustPrefix("") })
}
