package bridge

import (
	"context"
	"testing"
	"time"
)

func addSession(t *testing.T, r *Registry, host string) (string, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	id := r.Add(Info{Host: host, Username: "admin", ClientIP: "10.0.0.1"}, cancel)
	if id == "" {
		t.Fatal("Add returned an empty id")
	}
	return id, ctx
}

// --- Registry tests ---

func TestRegistry_AddAssignsIdentity(t *testing.T) {
	r := NewRegistry()
	id, _ := addSession(t, r, "host-a")

	list := r.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
	if list[0].ID != id {
		t.Errorf("expected id %q, got %q", id, list[0].ID)
	}
	if list[0].Host != "host-a" {
		t.Errorf("expected host-a, got %q", list[0].Host)
	}
	if list[0].StartedAt.IsZero() {
		t.Error("StartedAt was not stamped")
	}
}

func TestRegistry_CountTracksAddRemove(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 {
		t.Fatalf("fresh registry count = %d", r.Count())
	}
	id1, _ := addSession(t, r, "host-a")
	id2, _ := addSession(t, r, "host-b")
	if r.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Count())
	}
	r.Remove(id1)
	if r.Count() != 1 {
		t.Fatalf("expected 1 session after remove, got %d", r.Count())
	}
	r.Remove(id2)
	r.Remove(id2) // removing twice is harmless
	if r.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Count())
	}
}

func TestRegistry_ListSortedByStart(t *testing.T) {
	r := NewRegistry()
	addSession(t, r, "first")
	time.Sleep(5 * time.Millisecond)
	addSession(t, r, "second")
	time.Sleep(5 * time.Millisecond)
	addSession(t, r, "third")

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(list))
	}
	for i, want := range []string{"first", "second", "third"} {
		if list[i].Host != want {
			t.Errorf("position %d: expected %q, got %q", i, want, list[i].Host)
		}
	}
}

func TestRegistry_CloseCancelsSession(t *testing.T) {
	r := NewRegistry()
	id, ctx := addSession(t, r, "host-a")

	if !r.Close(id) {
		t.Fatal("Close reported the session as unknown")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the session context")
	}
}

func TestRegistry_CloseUnknown(t *testing.T) {
	r := NewRegistry()
	if r.Close("no-such-session") {
		t.Error("Close of an unknown id should report false")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	_, ctx1 := addSession(t, r, "host-a")
	_, ctx2 := addSession(t, r, "host-b")

	r.CloseAll()

	for i, ctx := range []context.Context{ctx1, ctx2} {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatalf("session %d not cancelled by CloseAll", i)
		}
	}
}
