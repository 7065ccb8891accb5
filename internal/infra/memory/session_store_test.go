package memory

import (
	"testing"

	"hitalk-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("123456", "host-1", "T", nil)
	if !store.Insert("123456", session) {
		t.Fatalf("expected insert to succeed")
	}
	if store.Insert("123456", app.NewSession("123456", "host-2", "T2", nil)) {
		t.Fatalf("expected duplicate code to be rejected")
	}

	got, ok := store.Get("123456")
	if !ok || got != session {
		t.Fatalf("expected stored session back")
	}

	store.Delete("123456")
	if _, ok := store.Get("123456"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreFindByParticipant(t *testing.T) {
	store := NewSessionStore()
	a := app.NewSession("111111", "host-a", "A", nil)
	b := app.NewSession("222222", "host-b", "B", nil)
	store.Insert("111111", a)
	store.Insert("222222", b)

	if _, err := b.Join("c9", "Niner"); err != nil {
		t.Fatalf("join: %v", err)
	}

	found, ok := store.Find(func(s *app.Session) bool { return s.HasParticipant("c9") })
	if !ok || found != b {
		t.Fatalf("expected session B, got %v ok=%v", found, ok)
	}
	if _, ok := store.Find(func(s *app.Session) bool { return s.HasParticipant("nobody") }); ok {
		t.Fatalf("expected no match")
	}
}
