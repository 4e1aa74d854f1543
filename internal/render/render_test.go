package render

import (
	"errors"
	"strings"
	"testing"
)

func TestPrettyIndentsJSON(t *testing.T) {
	got := string(Pretty([]byte(`{"a":1,"b":[true]}`)))
	want := "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}"
	if got != want {
		t.Fatalf("Pretty got %q", got)
	}

	if got := string(Pretty([]byte("plain text"))); got != "plain text" {
		t.Fatalf("non-JSON body changed: %q", got)
	}
}

func TestQuery(t *testing.T) {
	body := []byte(`{"items":[{"name":"a","n":1},{"name":"b","n":2}],"meta":{"total":2}}`)

	cases := []struct {
		expr string
		want string
	}{
		{"$.items[0].name", "a"},
		{"$.items[1].n", "2"},
		{"$.meta", `{"total":2}`},
		{"$.items[*].name", `["a","b"]`},
	}
	for _, tc := range cases {
		got, err := Query(body, tc.expr)
		if err != nil {
			t.Fatalf("Query(%q): %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("Query(%q) = %q, want %q", tc.expr, got, tc.want)
		}
	}
}

func TestQueryErrors(t *testing.T) {
	if _, err := Query([]byte("<html>"), "$.x"); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}
	if _, err := Query([]byte(`{}`), "  "); err == nil {
		t.Fatalf("expected error for empty expression")
	}
	if _, err := Query([]byte(`{"a":1}`), "$.missing"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestSummaryReducesHTMLErrorPages(t *testing.T) {
	page := []byte(`<!DOCTYPE html>
<html>
  <head><title>  Error 502:
    Bad Gateway </title></head>
  <body><h1>Something went wrong</h1><p>The upstream did not respond.</p></body>
</html>`)

	got := Summary("text/html; charset=utf-8", page)
	if got != "Error 502: Bad Gateway: The upstream did not respond." {
		t.Fatalf("Summary got %q", got)
	}

	// Content type missing, detection falls back to the body prefix.
	if got := Summary("", page); !strings.HasPrefix(got, "Error 502") {
		t.Fatalf("Summary without content type got %q", got)
	}
}

func TestSummaryFallsBackToSnippet(t *testing.T) {
	if got := Summary("application/json", []byte(`  {"error":"bad"} `)); got != `{"error":"bad"}` {
		t.Fatalf("Summary got %q", got)
	}
	if got := Summary("", nil); got != "<empty>" {
		t.Fatalf("Summary of empty body got %q", got)
	}
	long := strings.Repeat("x", maxSummaryBytes+10)
	if got := Summary("text/plain", []byte(long)); len(got) != maxSummaryBytes+3 {
		t.Fatalf("expected truncated summary, got %d bytes", len(got))
	}
}

func TestClipKeepsRuneBoundary(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "abcdef", max: 3, want: "abc..."},
		{in: "héllo", max: 2, want: "h..."},
		{in: "日本語", max: 4, want: "日..."},
		{in: "anything", max: 0, want: "anything"},
	}
	for _, tc := range cases {
		if got := Clip(tc.in, tc.max); got != tc.want {
			t.Fatalf("Clip(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
