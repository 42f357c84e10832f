package memory

import (
	"context"
	"errors"
	"testing"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

func TestUnresolvedStore_RecordIncrements(t *testing.T) {
	store := NewUnresolvedStore()
	ctx := context.Background()

	row := &domain.UnresolvedToken{ID: "u1", TokenKey: "zzz", Source: domain.SourceTicker, Reason: "miss", LastPostID: "p1", LastSeenAt: 1000}
	if err := store.Record(ctx, row); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	again := &domain.UnresolvedToken{ID: "u2", TokenKey: "zzz", Source: domain.SourceTicker, Reason: "rejected:placeholder", LastPostID: "p2", LastSeenAt: 2000}
	if err := store.Record(ctx, again); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Same key under a different source is a separate row
	phrase := &domain.UnresolvedToken{ID: "u3", TokenKey: "zzz", Source: domain.SourcePhrase, Reason: "miss", LastPostID: "p3", LastSeenAt: 1500}
	if err := store.Record(ctx, phrase); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	rows, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	top := rows[0]
	if top.ID != "u1" || top.SeenCount != 2 || top.FirstSeenAt != 1000 || top.LastSeenAt != 2000 {
		t.Errorf("unexpected top row: %+v", top)
	}
	if top.LastPostID != "p2" || top.Reason != "rejected:placeholder" {
		t.Errorf("last-seen fields not refreshed: %+v", top)
	}
}

func TestUnresolvedStore_InvalidInput(t *testing.T) {
	store := NewUnresolvedStore()
	ctx := context.Background()

	if err := store.Record(ctx, &domain.UnresolvedToken{ID: "u1", TokenKey: "x", Source: "bogus"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.List(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
