package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mention-tracker/internal/domain"
)

func TestKnowledgeBaseStore_UpsertMerge(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewKnowledgeBaseStore(pool)
	ctx := context.Background()

	first, err := store.Upsert(ctx, &domain.KnowledgeBaseEntry{
		TokenTicker:     "popcat",
		ContractAddress: "addr1",
		TokenName:       ptr("Popcat"),
		Source:          ptr("manual"),
		Priority:        ptr(5),
		FirstSeenPostID: ptr("post-1"),
		UpdatedAt:       1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "POPCAT", first.TokenTicker)
	assert.Equal(t, int64(1000), first.CreatedAt)

	merged, err := store.Upsert(ctx, &domain.KnowledgeBaseEntry{
		TokenTicker:        "POPCAT",
		ContractAddress:    "addr1",
		PrimaryPoolAddress: ptr("pool1"),
		Network:            ptr("solana"),
		FirstSeenPostID:    ptr("post-2"),
		UpdatedAt:          2000,
	})
	require.NoError(t, err)

	assert.Equal(t, "Popcat", *merged.TokenName)
	assert.Equal(t, "manual", *merged.Source)
	assert.Equal(t, 5, *merged.Priority)
	assert.Equal(t, "pool1", *merged.PrimaryPoolAddress)
	assert.Equal(t, "post-1", *merged.FirstSeenPostID)
	assert.Equal(t, int64(1000), merged.CreatedAt)
	assert.Equal(t, int64(2000), merged.UpdatedAt)

	entries, err := store.FindByTicker(ctx, "POPCAT")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pool1", *entries[0].PrimaryPoolAddress)
}

func TestKnowledgeBaseStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewKnowledgeBaseStore(pool)
	ctx := context.Background()

	for _, e := range []*domain.KnowledgeBaseEntry{
		{TokenTicker: "WIF", ContractAddress: "none-new", TokenName: ptr("dogwifhat"), UpdatedAt: 9000},
		{TokenTicker: "WIF", ContractAddress: "low", TokenName: ptr("Dogwifhat"), Priority: ptr(1), UpdatedAt: 1000},
		{TokenTicker: "WIF", ContractAddress: "high", TokenName: ptr("dogwifhat classic"), Priority: ptr(10), UpdatedAt: 500},
	} {
		_, err := store.Upsert(ctx, e)
		require.NoError(t, err)
	}

	byTicker, err := store.FindByTicker(ctx, "wif")
	require.NoError(t, err)
	require.Len(t, byTicker, 3)
	assert.Equal(t, "high", byTicker[0].ContractAddress)
	assert.Equal(t, "low", byTicker[1].ContractAddress)
	assert.Equal(t, "none-new", byTicker[2].ContractAddress)

	exact, err := store.FindByName(ctx, "DOGWIFHAT")
	require.NoError(t, err)
	require.Len(t, exact, 2)
	assert.Equal(t, "low", exact[0].ContractAddress)

	partial, err := store.SearchByName(ctx, "wifhat", 2)
	require.NoError(t, err)
	require.Len(t, partial, 2)
	assert.Equal(t, "high", partial[0].ContractAddress)
}
