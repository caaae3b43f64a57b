package journal

import (
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) {
	t.Helper()
	if err := Open(filepath.Join(t.TempDir(), "journal")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
}

func TestAppendAndList(t *testing.T) {
	openTestJournal(t)

	entries := []Entry{
		{User: "alice", Method: "POST", Route: "/session", Status: 200},
		{User: "alice", Method: "POST", Route: "/session/s1/prompt", Status: 200},
		{User: "bob", Method: "DELETE", Route: "/session/s2", Status: 200},
	}
	for _, e := range entries {
		if err := Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := List("alice", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Route != "/session" || got[1].Route != "/session/s1/prompt" {
		t.Fatalf("entries out of append order: %+v", got)
	}
	for _, e := range got {
		if e.User != "alice" {
			t.Fatalf("foreign user entry leaked: %+v", e)
		}
		if e.TS == 0 {
			t.Fatalf("timestamp not assigned: %+v", e)
		}
	}
}

func TestListLimitKeepsMostRecent(t *testing.T) {
	openTestJournal(t)

	for i := 0; i < 5; i++ {
		if err := Append(Entry{User: "carol", Method: "POST", Route: "/session", Status: 200, TS: int64(i + 1)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := List("carol", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].TS != 4 || got[1].TS != 5 {
		t.Fatalf("limit did not keep the most recent entries: %+v", got)
	}
}

func TestAppendWithoutOpenFails(t *testing.T) {
	if Ready() {
		t.Fatalf("journal unexpectedly open")
	}
	if err := Append(Entry{User: "x"}); err == nil {
		t.Fatalf("Append on closed journal should fail")
	}
	if _, err := List("x", 0); err == nil {
		t.Fatalf("List on closed journal should fail")
	}
}
