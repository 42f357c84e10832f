package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"solana-mention-tracker/internal/domain"
)

func TestPriceSnapshotStore_AppendAndGet(t *testing.T) {
	store := NewPriceSnapshotStore()
	ctx := context.Background()

	snaps := []*domain.PriceSnapshot{
		{ContractAddress: "addr", PoolAddress: "pool", PriceUSD: decimal.RequireFromString("2.5"), PriceAt: 2000, Source: "geckoterminal:minute", Confidence: 100},
		{ContractAddress: "addr", PoolAddress: "pool", PriceUSD: decimal.RequireFromString("1.000000001"), PriceAt: 1000, Source: "geckoterminal:day", Confidence: 70},
		{ContractAddress: "other", PoolAddress: "pool2", PriceUSD: decimal.NewFromInt(3), PriceAt: 1500, Source: "geckoterminal:minute", Confidence: 100},
	}
	for _, s := range snaps {
		if err := store.Append(ctx, s); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.GetByContract(ctx, "addr")
	if err != nil {
		t.Fatalf("GetByContract failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].PriceAt != 1000 || got[1].PriceAt != 2000 {
		t.Errorf("snapshots not ordered by price_at: %d, %d", got[0].PriceAt, got[1].PriceAt)
	}
	if !got[0].PriceUSD.Equal(decimal.NewFromInt(1)) {
		t.Errorf("price not rounded to 8 decimals: %s", got[0].PriceUSD)
	}
}
