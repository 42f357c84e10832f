package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// MentionStore implements storage.MentionStore using PostgreSQL.
type MentionStore struct {
	pool *Pool
}

// NewMentionStore creates a new MentionStore.
func NewMentionStore(pool *Pool) *MentionStore {
	return &MentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// ReplaceForPost deletes all mentions of a post and inserts the given set in one transaction.
func (s *MentionStore) ReplaceForPost(ctx context.Context, postID string, mentions []*domain.TokenMention) error {
	if err := storage.ValidateMentionSet(postID, mentions); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM token_mentions WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete mentions: %w", err)
	}

	query := `
		INSERT INTO token_mentions (
			id, post_id, token_key, token_display, confidence, source,
			trigger_key, trigger_text, price_usd_at, excluded, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12)
	`

	for _, m := range mentions {
		var price *string
		if m.PriceUSDAt != nil {
			p := domain.RoundPrice(*m.PriceUSDAt).String()
			price = &p
		}

		_, err := tx.Exec(ctx, query,
			m.ID, m.PostID, m.TokenKey, m.TokenDisplay, m.Confidence, string(m.Source),
			m.TriggerKey, m.TriggerText, price, m.Excluded, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert mention: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByPostID retrieves all mentions for a post, ordered by trigger key ASC.
func (s *MentionStore) GetByPostID(ctx context.Context, postID string) ([]*domain.TokenMention, error) {
	query := `
		SELECT id, post_id, token_key, token_display, confidence, source,
			trigger_key, trigger_text, price_usd_at::text, excluded, created_at, updated_at
		FROM token_mentions
		WHERE post_id = $1
		ORDER BY trigger_key ASC
	`

	rows, err := s.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("get mentions by post: %w", err)
	}
	defer rows.Close()

	mentions := make([]*domain.TokenMention, 0)
	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return mentions, nil
}

// MaxConfidence returns the highest stored confidence for a post.
func (s *MentionStore) MaxConfidence(ctx context.Context, postID string) (int, bool, error) {
	var maxConf *int
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(confidence) FROM token_mentions WHERE post_id = $1`, postID,
	).Scan(&maxConf)
	if err != nil {
		return 0, false, fmt.Errorf("max confidence: %w", err)
	}
	if maxConf == nil {
		return 0, false, nil
	}
	return *maxConf, true, nil
}

// ApplyResolution rewrites token key and display and raises confidence to at least minConfidence.
func (s *MentionStore) ApplyResolution(ctx context.Context, mentionID, tokenKey, tokenDisplay string, minConfidence int, updatedAt int64) error {
	if tokenKey == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE token_mentions
		SET token_key = $2,
			token_display = $3,
			confidence = GREATEST(confidence, $4),
			updated_at = $5
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, mentionID, tokenKey, tokenDisplay, minConfidence, updatedAt)
	if err != nil {
		return fmt.Errorf("apply resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetExcluded flags a mention as excluded.
func (s *MentionStore) SetExcluded(ctx context.Context, mentionID string, excluded bool, updatedAt int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE token_mentions SET excluded = $2, updated_at = $3 WHERE id = $1`,
		mentionID, excluded, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set excluded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetPriceIfNull stores the price only when none is set yet.
// Concurrent writers race on the IS NULL guard; exactly one update wins.
func (s *MentionStore) SetPriceIfNull(ctx context.Context, mentionID string, price decimal.Decimal, updatedAt int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE token_mentions
		SET price_usd_at = $2::numeric, updated_at = $3
		WHERE id = $1 AND price_usd_at IS NULL
	`, mentionID, domain.RoundPrice(price).String(), updatedAt)
	if err != nil {
		return false, fmt.Errorf("set price: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM token_mentions WHERE id = $1)`, mentionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check mention exists: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

func scanMention(row pgx.Row) (*domain.TokenMention, error) {
	var m domain.TokenMention
	var source string
	var price *string

	err := row.Scan(
		&m.ID, &m.PostID, &m.TokenKey, &m.TokenDisplay, &m.Confidence, &source,
		&m.TriggerKey, &m.TriggerText, &price, &m.Excluded, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan mention: %w", err)
	}

	m.Source = domain.MentionSource(source)
	m.PriceUSDAt, err = parseNullableDecimal(price)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
