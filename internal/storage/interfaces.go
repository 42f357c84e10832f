package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-mention-tracker/internal/domain"
)

// PostStore provides access to posts storage.
type PostStore interface {
	// Upsert inserts or replaces a post by ID.
	Upsert(ctx context.Context, p *domain.Post) error

	// GetByID retrieves a post by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, postID string) (*domain.Post, error)

	// ListSince retrieves up to limit posts ordered by (published_at, id) ASC,
	// strictly after the (afterPublishedAt, afterID) cursor.
	ListSince(ctx context.Context, afterPublishedAt int64, afterID string, limit int) ([]*domain.Post, error)
}

// MentionStore provides access to token_mentions storage.
type MentionStore interface {
	// ReplaceForPost deletes all mentions of a post and inserts the given set atomically.
	// Returns ErrDuplicateKey if the set repeats a trigger key.
	ReplaceForPost(ctx context.Context, postID string, mentions []*domain.TokenMention) error

	// GetByPostID retrieves all mentions for a post, ordered by trigger key ASC.
	GetByPostID(ctx context.Context, postID string) ([]*domain.TokenMention, error)

	// MaxConfidence returns the highest stored confidence for a post.
	// The bool is false when the post has no stored mentions.
	MaxConfidence(ctx context.Context, postID string) (int, bool, error)

	// ApplyResolution rewrites token key and display and raises confidence to at least minConfidence.
	// Returns ErrNotFound if the mention does not exist.
	ApplyResolution(ctx context.Context, mentionID, tokenKey, tokenDisplay string, minConfidence int, updatedAt int64) error

	// SetExcluded flags a mention as excluded. Returns ErrNotFound if the mention does not exist.
	SetExcluded(ctx context.Context, mentionID string, excluded bool, updatedAt int64) error

	// SetPriceIfNull stores the price only when none is set yet.
	// Returns false when the mention was already priced. Returns ErrNotFound if the mention does not exist.
	SetPriceIfNull(ctx context.Context, mentionID string, price decimal.Decimal, updatedAt int64) (bool, error)
}

// KnowledgeBaseStore provides access to knowledge_base storage.
type KnowledgeBaseStore interface {
	// Upsert merges the entry on (token_ticker, contract_address) using MergeKnowledgeEntry
	// and returns the stored result.
	Upsert(ctx context.Context, e *domain.KnowledgeBaseEntry) (*domain.KnowledgeBaseEntry, error)

	// FindByTicker retrieves entries for an uppercase ticker,
	// ordered by priority DESC NULLS LAST, updated_at DESC.
	FindByTicker(ctx context.Context, ticker string) ([]*domain.KnowledgeBaseEntry, error)

	// FindByName retrieves entries whose name equals name case-insensitively, same ordering.
	FindByName(ctx context.Context, name string) ([]*domain.KnowledgeBaseEntry, error)

	// SearchByName retrieves up to limit entries whose name contains fragment case-insensitively, same ordering.
	SearchByName(ctx context.Context, fragment string, limit int) ([]*domain.KnowledgeBaseEntry, error)
}

// UnresolvedStore provides access to unresolved_tokens storage.
type UnresolvedStore interface {
	// Record inserts a ledger row or, on (token_key, source) conflict, bumps seen_count,
	// last_seen_at, last_post_id and reason.
	Record(ctx context.Context, u *domain.UnresolvedToken) error

	// List retrieves up to limit rows ordered by seen_count DESC, last_seen_at DESC.
	List(ctx context.Context, limit int) ([]*domain.UnresolvedToken, error)
}

// PriceSnapshotStore provides access to price_snapshots storage (append-only).
type PriceSnapshotStore interface {
	// Append adds a snapshot.
	Append(ctx context.Context, s *domain.PriceSnapshot) error

	// GetByContract retrieves all snapshots for a contract, ordered by price_at ASC.
	GetByContract(ctx context.Context, contractAddress string) ([]*domain.PriceSnapshot, error)
}
