package database

import (
	"context"
	"testing"
)

func TestKeyValueStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewKeyValueStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewKeyValueStore() error = %v", err)
	}

	if _, ok, err := store.Get(ctx, "lastImageUrl"); err != nil || ok {
		t.Fatalf("Get() on empty store = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	if err := store.Set(ctx, "lastImageUrl", "https://images.example.com/a.jpg"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, "lastImageUrl", "https://images.example.com/b.jpg"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	value, ok, err := store.Get(ctx, "lastImageUrl")
	if err != nil || !ok {
		t.Fatalf("Get() = (_, %v, %v), want present", ok, err)
	}
	if value != "https://images.example.com/b.jpg" {
		t.Errorf("Get() = %q, want the overwritten value", value)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["keys"] != 1 {
		t.Errorf("keys = %v, want 1", stats["keys"])
	}

	if err := store.Remove(ctx, "lastImageUrl"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Remove(ctx, "lastImageUrl"); err != nil {
		t.Errorf("Remove() of missing key error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "lastImageUrl"); ok {
		t.Error("key still present after Remove()")
	}
}

func TestKeyValueStoreEmptyValue(t *testing.T) {
	ctx := context.Background()

	store, err := NewKeyValueStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewKeyValueStore() error = %v", err)
	}

	if err := store.Set(ctx, "k", ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "" {
		t.Errorf("Get() = (%q, %v, %v), want empty string present", value, ok, err)
	}
}
