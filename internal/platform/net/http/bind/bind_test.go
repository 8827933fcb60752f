package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "heapcensus/internal/platform/errors"
)

type allocBody struct {
	Class string `json:"class" validate:"required,classname"`
	N     int    `json:"n" validate:"gte=0,max=10"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/target/alloc", strings.NewReader(body))
}

func TestParseJSON_Decodes(t *testing.T) {
	got, err := ParseJSON[allocBody](post(`{"class":"com.acme.Widget$Part","n":3}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Class != "com.acme.Widget$Part" || got.N != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  perr.ErrorCode
		field string
	}{
		{"empty", ``, perr.ErrorCodeJSON, ""},
		{"malformed", `{"class":`, perr.ErrorCodeJSON, ""},
		{"unknown field", `{"class":"A","n":1,"extra":true}`, perr.ErrorCodeJSON, ""},
		{"trailing", `{"class":"A","n":1}{}`, perr.ErrorCodeJSON, ""},
		{"too big", `{"class":"` + strings.Repeat("a", MaxBody) + `"}`, perr.ErrorCodeJSON, ""},
		{"missing class", `{"n":1}`, perr.ErrorCodeValidation, "class"},
		{"bad class", `{"class":"com..acme","n":1}`, perr.ErrorCodeValidation, "class"},
		{"too many", `{"class":"A","n":11}`, perr.ErrorCodeValidation, "n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON[allocBody](post(tc.body))
			if !perr.IsCode(err, tc.code) {
				t.Fatalf("err = %v, want code %v", err, tc.code)
			}
			if e, ok := perr.As(err); ok && e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	_, err := ParseJSON[allocBody](post(`{"class":"1abc","n":1}`))
	if !strings.Contains(err.Error(), "class must be a binary class name") {
		t.Fatalf("message = %v", err)
	}
	_, err = ParseJSON[allocBody](post(`{"class":"A","n":99}`))
	if !strings.Contains(err.Error(), "n must be at most 10") {
		t.Fatalf("message = %v", err)
	}
	if f, m := ValidationFieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil = %q %q", f, m)
	}
	if f, m := ValidationFieldAndMessage(perr.NotFoundf("x")); f != "" || m != "x" {
		t.Fatalf("foreign = %q %q", f, m)
	}
}

func TestIsClassName(t *testing.T) {
	for _, ok := range []string{"java.lang.String", "A", "com.acme.Outer$Inner", "int[]", "java.lang.Object[][]", "_x.y1"} {
		if !IsClassName(ok) {
			t.Fatalf("%q rejected", ok)
		}
	}
	for _, bad := range []string{"", "[]", ".A", "A.", "a..b", "1a", "a.2b", "a b", "a-b"} {
		if IsClassName(bad) {
			t.Fatalf("%q accepted", bad)
		}
	}
}
