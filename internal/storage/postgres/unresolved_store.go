package postgres

import (
	"context"
	"fmt"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// UnresolvedStore implements storage.UnresolvedStore using PostgreSQL.
type UnresolvedStore struct {
	pool *Pool
}

// NewUnresolvedStore creates a new UnresolvedStore.
func NewUnresolvedStore(pool *Pool) *UnresolvedStore {
	return &UnresolvedStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UnresolvedStore = (*UnresolvedStore)(nil)

// Record inserts a ledger row or bumps the existing one.
func (s *UnresolvedStore) Record(ctx context.Context, u *domain.UnresolvedToken) error {
	if u == nil || u.ID == "" || u.TokenKey == "" || !u.Source.IsValid() {
		return storage.ErrInvalidInput
	}

	firstSeen := u.FirstSeenAt
	if firstSeen == 0 {
		firstSeen = u.LastSeenAt
	}

	query := `
		INSERT INTO unresolved_tokens (
			id, token_key, source, reason, last_post_id, first_seen_at, last_seen_at, seen_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (token_key, source) DO UPDATE SET
			seen_count = unresolved_tokens.seen_count + 1,
			reason = EXCLUDED.reason,
			last_post_id = EXCLUDED.last_post_id,
			last_seen_at = GREATEST(unresolved_tokens.last_seen_at, EXCLUDED.last_seen_at)
	`

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.TokenKey, string(u.Source), u.Reason, u.LastPostID, firstSeen, u.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("record unresolved token: %w", err)
	}
	return nil
}

// List retrieves up to limit rows ordered by seen_count DESC, last_seen_at DESC.
func (s *UnresolvedStore) List(ctx context.Context, limit int) ([]*domain.UnresolvedToken, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, token_key, source, reason, last_post_id, first_seen_at, last_seen_at, seen_count
		FROM unresolved_tokens
		ORDER BY seen_count DESC, last_seen_at DESC, token_key ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unresolved tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.UnresolvedToken
	for rows.Next() {
		var u domain.UnresolvedToken
		var source string
		if err := rows.Scan(
			&u.ID, &u.TokenKey, &source, &u.Reason, &u.LastPostID,
			&u.FirstSeenAt, &u.LastSeenAt, &u.SeenCount,
		); err != nil {
			return nil, fmt.Errorf("scan unresolved token: %w", err)
		}
		u.Source = domain.MentionSource(source)
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unresolved tokens: %w", err)
	}
	return result, nil
}
