package storage

import (
	"testing"
	"time"
)

func TestMemoryStoreMarksScopesAndExpires(t *testing.T) {
	store, err := NewStore(TypeMemory, "", Options{TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Mark("api", "d1"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := store.Seen("api", "d1"); !seen {
		t.Fatalf("expected digest to be seen")
	}
	if seen, _ := store.Seen("other", "d1"); seen {
		t.Fatalf("digests must be scoped per target")
	}

	time.Sleep(100 * time.Millisecond)
	if seen, _ := store.Seen("api", "d1"); seen {
		t.Fatalf("expected digest to expire")
	}
}

func TestMemoryStoreForgetDropsTarget(t *testing.T) {
	store, err := NewStore(TypeMemory, "", Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	_ = store.Mark("api", "d1")
	_ = store.Mark("api-v2", "d1")
	if err := store.Forget("api"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if seen, _ := store.Seen("api", "d1"); seen {
		t.Fatalf("expected Forget to drop target digests")
	}
	if seen, _ := store.Seen("api-v2", "d1"); !seen {
		t.Fatalf("Forget must not touch other targets")
	}
}
