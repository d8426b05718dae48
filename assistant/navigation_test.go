package assistant

import (
	"net/url"
	"testing"
)

func TestURL_AllParams(t *testing.T) {
	got := URL("acct-1", URLParams{Input: "fix this rule", Tab: "history", ThreadID: "thread-9"})

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("URL produced unparseable value %q: %v", got, err)
	}
	if parsed.Path != "/acct-1/assistant" {
		t.Errorf("path = %q, want %q", parsed.Path, "/acct-1/assistant")
	}
	q := parsed.Query()
	if q.Get("input") != "fix this rule" {
		t.Errorf("input = %q", q.Get("input"))
	}
	if q.Get("tab") != "history" {
		t.Errorf("tab = %q", q.Get("tab"))
	}
	if q.Get("threadId") != "thread-9" {
		t.Errorf("threadId = %q", q.Get("threadId"))
	}
}

func TestURL_OmitsEmptyParams(t *testing.T) {
	got := URL("acct-1", URLParams{Input: "hello"})

	parsed, _ := url.Parse(got)
	q := parsed.Query()
	if _, ok := q["tab"]; ok {
		t.Error("empty tab should be omitted")
	}
	if _, ok := q["threadId"]; ok {
		t.Error("empty threadId should be omitted")
	}
}

func TestURL_EscapesInput(t *testing.T) {
	got := URL("acct-1", URLParams{Input: "a&b=c d\nnewline"})

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("URL produced unparseable value %q: %v", got, err)
	}
	if parsed.Query().Get("input") != "a&b=c d\nnewline" {
		t.Errorf("input round-trip = %q", parsed.Query().Get("input"))
	}
}
