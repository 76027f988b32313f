package cache

import (
	"context"
	"errors"
	"testing"
)

// The no-op cache stores nothing: every Fetch computes, every Get misses.
func TestNop(t *testing.T) {
	n := NewNop[string, int]()

	calls := 0
	v, err := n.Fetch(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if err != nil || v != 1 {
		t.Fatalf("Fetch: v=%v err=%v", v, err)
	}
	v, err = n.Fetch(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 2, nil
	})
	if err != nil || v != 2 {
		t.Fatalf("Fetch: v=%v err=%v", v, err)
	}
	if calls != 2 {
		t.Fatalf("every Fetch must compute, got %d calls", calls)
	}

	if _, err := n.Get("k"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get must miss, err=%v", err)
	}
}

// Mutators are no-ops and queries report an empty-but-present world.
func TestNop_Surface(t *testing.T) {
	n := NewNop[string, string]()

	n.Put("k", "v")
	if !n.Contains("k") {
		t.Fatal("Contains must always be true")
	}
	if n.Expired("k") {
		t.Fatal("Expired must always be false")
	}
	if n.Locked("k") {
		t.Fatal("Locked must always be false")
	}
	if _, ok := n.Remove("k"); ok {
		t.Fatal("Remove must report nothing removed")
	}
	n.RemoveAll()
	if got := n.RemoveFunc(func(string) bool { return true }); got != 0 {
		t.Fatalf("RemoveFunc must remove nothing, got %d", got)
	}
	if got := n.Clean(); got != 0 {
		t.Fatalf("Clean must remove nothing, got %d", got)
	}
	if n.Len() != 0 || !n.Empty() {
		t.Fatal("Nop must look empty")
	}
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}
}

// A Fetch error passes straight through.
func TestNop_FetchError(t *testing.T) {
	n := NewNop[string, int]()

	boom := errors.New("boom")
	_, err := n.Fetch(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}
