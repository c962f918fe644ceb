package storage

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNewStaticStore(t *testing.T) {
	store, err := NewStaticStore(map[string]*mockStoreSpec{
		"one": {Name: "One", Value: 1},
		"two": {Name: "Two", Value: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.Get("one")
	if got == nil {
		t.Fatal("expected record")
	}
	testutil.AssertEqual(t, "name", got.Name, "One")

	if store.Get("nosuch") != nil {
		t.Error("expected nil for unknown id")
	}

	all := store.GetAll()
	testutil.AssertEqual(t, "count", len(all), 2)

	// GetAll returns a copy, not the live map
	delete(all, "one")
	if store.Get("one") == nil {
		t.Error("GetAll should return a copy, not the original map")
	}
}

func TestNewStaticStore_InvalidID(t *testing.T) {
	_, err := NewStaticStore(map[string]*mockStoreSpec{
		"bad id": {Name: "Bad", Value: 1},
	})
	if err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestNewStaticStore_ValidationError(t *testing.T) {
	_, err := NewStaticStore(map[string]*testSpec{
		"fails": {valid: false},
	})
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestStaticStore_SaveRejected(t *testing.T) {
	store, err := NewStaticStore(map[string]*mockStoreSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Save("x", &mockStoreSpec{Name: "X"}); err == nil {
		t.Error("expected error saving to a static store")
	}
}
