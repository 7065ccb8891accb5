package redis

import (
	"testing"
	"time"

	"hitalk-quiz-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	if !store.Insert("123456", app.NewSession("123456", "host-1", "T", nil)) {
		t.Fatalf("expected insert to succeed")
	}
	if !mr.Exists("game:room:123456") {
		t.Fatalf("expected redis liveness key to be set")
	}
	if store.Insert("123456", app.NewSession("123456", "host-2", "T2", nil)) {
		t.Fatalf("expected duplicate code to be rejected")
	}

	store.Delete("123456")
	if mr.Exists("game:room:123456") {
		t.Fatalf("expected redis liveness key to be removed")
	}
	if _, ok := store.Get("123456"); ok {
		t.Fatalf("expected session removed")
	}
}
