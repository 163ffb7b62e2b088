package cache

import (
	"testing"
	"time"
)

func newTestStore() (*Store, *time.Time) {
	s := New(time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreGetBeforeAndAfterTTL(t *testing.T) {
	s, now := newTestStore()

	s.Set("users_{}", []string{"a"}, 5*time.Minute)

	if v, ok := s.Get("users_{}"); !ok || v == nil {
		t.Fatalf("expected hit right after set, got ok=%v", ok)
	}

	*now = now.Add(4 * time.Minute)
	if _, ok := s.Get("users_{}"); !ok {
		t.Fatal("expected hit before TTL elapsed")
	}

	*now = now.Add(time.Minute)
	if _, ok := s.Get("users_{}"); ok {
		t.Fatal("expected miss once TTL elapsed")
	}

	if s.Len() != 0 {
		t.Fatalf("expired entry should be deleted on read, len=%d", s.Len())
	}
}

func TestStoreSetAfterExpiryIsVisibleImmediately(t *testing.T) {
	s, now := newTestStore()

	s.Set("k", 1, time.Minute)
	*now = now.Add(2 * time.Minute)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected expired entry to be absent")
	}

	s.Set("k", 2, time.Minute)
	v, ok := s.Get("k")
	if !ok || v.(int) != 2 {
		t.Fatalf("expected fresh value 2 immediately after re-set, got %v ok=%v", v, ok)
	}
}

func TestStoreOverwriteLastWriterWins(t *testing.T) {
	s, _ := newTestStore()

	s.Set("k", "old", time.Minute)
	s.Set("k", "new", time.Minute)

	v, _ := s.Get("k")
	if v.(string) != "new" {
		t.Fatalf("expected overwrite, got %v", v)
	}
}

func TestStoreDeletePrefix(t *testing.T) {
	s, _ := newTestStore()

	s.Set("users_a", 1, time.Minute)
	s.Set("users_b", 2, time.Minute)
	s.Set("trades_a", 3, time.Minute)

	if removed := s.DeletePrefix("users_"); removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, ok := s.Get("trades_a"); !ok {
		t.Fatal("unrelated prefix must survive")
	}
	if _, ok := s.Get("users_a"); ok {
		t.Fatal("prefixed key must be gone")
	}
}

func TestStoreSweepRemovesOnlyExpired(t *testing.T) {
	s, now := newTestStore()

	s.Set("short", 1, time.Minute)
	s.Set("long", 2, time.Hour)

	*now = now.Add(5 * time.Minute)
	if removed := s.sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1 entry, got %d", removed)
	}
	if _, ok := s.Get("long"); !ok {
		t.Fatal("unexpired entry removed by sweep")
	}
}

func TestStoreClear(t *testing.T) {
	s, _ := newTestStore()
	s.Set("a", 1, time.Minute)
	s.Set("b", 2, time.Minute)
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after clear, len=%d", s.Len())
	}
}
