package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_SERVICE", " heapcensus ")
	t.Setenv("LOG_COMPONENT", "   ")

	c := New().Prefix("LOG_")
	if got := c.Get("SERVICE", "x"); got != "heapcensus" {
		t.Fatalf("Get = %q", got)
	}
	if got := c.Get("COMPONENT", "api"); got != "api" {
		t.Fatalf("blank Get = %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"no", true, false},
		{"garbage", true, false},
	}
	c := New().Prefix("LOG_")
	for _, tc := range cases {
		t.Setenv("LOG_CALLER", tc.val)
		if got := c.GetBool("CALLER", tc.def); got != tc.want {
			t.Errorf("GetBool(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	cases := []struct {
		val  string
		want int
	}{
		{"", 7},
		{" 25 ", 25},
		{"0", 0},
		{"-3", 7},
		{"12x", 7},
	}
	c := New().Prefix("LOG_")
	for _, tc := range cases {
		t.Setenv("LOG_SAMPLE_EVERY", tc.val)
		if got := c.GetInt("SAMPLE_EVERY", 7); got != tc.want {
			t.Errorf("GetInt(%q) = %d, want %d", tc.val, got, tc.want)
		}
	}
}
