package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/testutil"
)

func TestReflectorCoalescesPerField(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	r := NewReflector(store, time.Hour)
	defer r.Stop()

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana María"})
	r.Flush(context.Background())

	if len(store.Writes) != 1 {
		t.Fatalf("expected 1 coalesced write, got %d", len(store.Writes))
	}
	var p domain.Profile
	if err := json.Unmarshal(store.Writes[0].Data["userData"], &p); err != nil {
		t.Fatalf("decoding written profile: %v", err)
	}
	if p.Name != "Ana María" {
		t.Errorf("expected the latest value, got %q", p.Name)
	}
}

func TestReflectorMergesFieldsIntoOneWrite(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	r := NewReflector(store, time.Hour)
	defer r.Stop()

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	r.Enqueue("user-1", "wishlist", []domain.WishlistItem{})
	r.Flush(context.Background())

	if len(store.Writes) != 1 {
		t.Fatalf("expected 1 write for both fields, got %d", len(store.Writes))
	}
	w := store.Writes[0]
	if !w.Merge {
		t.Error("reflector writes must merge")
	}
	if w.Path != "users/user-1" {
		t.Errorf("unexpected path %q", w.Path)
	}
	if len(w.Data) != 2 {
		t.Errorf("expected 2 fields, got %d", len(w.Data))
	}
}

func TestReflectorSeparatesUsers(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	r := NewReflector(store, time.Hour)
	defer r.Stop()

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	r.Enqueue("user-2", "userData", domain.Profile{Name: "Beto"})
	r.Flush(context.Background())

	if len(store.Writes) != 2 {
		t.Fatalf("expected 1 write per user, got %d", len(store.Writes))
	}
	paths := map[string]bool{}
	for _, w := range store.Writes {
		paths[w.Path] = true
	}
	if !paths["users/user-1"] || !paths["users/user-2"] {
		t.Errorf("unexpected write paths: %v", paths)
	}
}

func TestReflectorDiscard(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	r := NewReflector(store, time.Hour)
	defer r.Stop()

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	r.Discard("user-1")
	r.Flush(context.Background())

	if len(store.Writes) != 0 {
		t.Errorf("discarded writes must not reach the store, got %d", len(store.Writes))
	}
}

func TestReflectorWriteFailureIsDropped(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	store.WriteDocumentFn = func(path string, data domain.Document, merge bool) error {
		return errors.New("store unavailable")
	}
	r := NewReflector(store, time.Hour)
	defer r.Stop()

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	// Must not panic or surface the error
	r.Flush(context.Background())
}

func TestReflectorStopFlushes(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	r := NewReflector(store, time.Hour)

	r.Enqueue("user-1", "userData", domain.Profile{Name: "Ana"})
	r.Stop()

	if len(store.Writes) != 1 {
		t.Errorf("expected pending write flushed on stop, got %d", len(store.Writes))
	}
}
