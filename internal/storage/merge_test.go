package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mention-tracker/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestMergeKnowledgeEntry_NewEntry(t *testing.T) {
	incoming := &domain.KnowledgeBaseEntry{
		TokenTicker:     "POPCAT",
		ContractAddress: "addr",
		TokenName:       strPtr("Popcat"),
		UpdatedAt:       2000,
	}

	merged := MergeKnowledgeEntry(nil, incoming)
	require.NotNil(t, merged)
	assert.Equal(t, int64(2000), merged.CreatedAt)
	assert.Equal(t, "Popcat", *merged.TokenName)
	assert.NotSame(t, incoming, merged)
}

func TestMergeKnowledgeEntry_NullNeverOverwrites(t *testing.T) {
	existing := &domain.KnowledgeBaseEntry{
		TokenTicker:        "POPCAT",
		ContractAddress:    "addr",
		TokenName:          strPtr("Popcat"),
		PrimaryPoolAddress: strPtr("pool1"),
		Source:             strPtr("manual"),
		FirstSeenPostID:    strPtr("post-1"),
		Priority:           intPtr(10),
		CreatedAt:          1000,
		UpdatedAt:          1000,
	}
	incoming := &domain.KnowledgeBaseEntry{
		TokenTicker:     "POPCAT",
		ContractAddress: "addr",
		TokenName:       nil,
		Source:          strPtr(""),
		Network:         strPtr("solana"),
		FirstSeenPostID: strPtr("post-9"),
		UpdatedAt:       5000,
	}

	merged := MergeKnowledgeEntry(existing, incoming)

	assert.Equal(t, "Popcat", *merged.TokenName)
	assert.Equal(t, "pool1", *merged.PrimaryPoolAddress)
	assert.Equal(t, "manual", *merged.Source)
	assert.Equal(t, "solana", *merged.Network)
	assert.Equal(t, "post-1", *merged.FirstSeenPostID)
	assert.Equal(t, 10, *merged.Priority)
	assert.Equal(t, int64(1000), merged.CreatedAt)
	assert.Equal(t, int64(5000), merged.UpdatedAt)
}

func TestMergeKnowledgeEntry_IncomingValueWins(t *testing.T) {
	existing := &domain.KnowledgeBaseEntry{
		TokenTicker:     "WIF",
		ContractAddress: "addr",
		TokenName:       nil,
		UpdatedAt:       1000,
	}
	incoming := &domain.KnowledgeBaseEntry{
		TokenTicker:        "WIF",
		ContractAddress:    "addr",
		TokenName:          strPtr("dogwifhat"),
		PrimaryPoolAddress: strPtr("pool2"),
		Priority:           intPtr(1),
		UpdatedAt:          2000,
	}

	merged := MergeKnowledgeEntry(existing, incoming)
	assert.Equal(t, "dogwifhat", *merged.TokenName)
	assert.Equal(t, "pool2", *merged.PrimaryPoolAddress)
	assert.Equal(t, 1, *merged.Priority)
}
