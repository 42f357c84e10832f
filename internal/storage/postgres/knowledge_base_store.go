package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// KnowledgeBaseStore implements storage.KnowledgeBaseStore using PostgreSQL.
type KnowledgeBaseStore struct {
	pool *Pool
}

// NewKnowledgeBaseStore creates a new KnowledgeBaseStore.
func NewKnowledgeBaseStore(pool *Pool) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.KnowledgeBaseStore = (*KnowledgeBaseStore)(nil)

const kbColumns = `token_ticker, contract_address, token_name, primary_pool_address,
	source, network, first_seen_post_id, priority, created_at, updated_at`

const kbOrder = `ORDER BY priority DESC NULLS LAST, updated_at DESC, contract_address ASC`

// Upsert merges the entry on (token_ticker, contract_address).
// The first writer inserts; later writers lock the row and merge in Go
// so a known value is never replaced by a null.
func (s *KnowledgeBaseStore) Upsert(ctx context.Context, e *domain.KnowledgeBaseEntry) (*domain.KnowledgeBaseEntry, error) {
	if e == nil || e.TokenTicker == "" || e.ContractAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	incoming := *e
	incoming.TokenTicker = strings.ToUpper(incoming.TokenTicker)
	if incoming.CreatedAt == 0 {
		incoming.CreatedAt = incoming.UpdatedAt
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO knowledge_base (`+kbColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_ticker, contract_address) DO NOTHING
	`,
		incoming.TokenTicker, incoming.ContractAddress, incoming.TokenName, incoming.PrimaryPoolAddress,
		incoming.Source, incoming.Network, incoming.FirstSeenPostID, incoming.Priority,
		incoming.CreatedAt, incoming.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert knowledge entry: %w", err)
	}

	if tag.RowsAffected() == 1 {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return &incoming, nil
	}

	existing, err := scanEntry(tx.QueryRow(ctx, `
		SELECT `+kbColumns+`
		FROM knowledge_base
		WHERE token_ticker = $1 AND contract_address = $2
		FOR UPDATE
	`, incoming.TokenTicker, incoming.ContractAddress))
	if err != nil {
		return nil, fmt.Errorf("lock knowledge entry: %w", err)
	}

	merged := storage.MergeKnowledgeEntry(existing, &incoming)

	_, err = tx.Exec(ctx, `
		UPDATE knowledge_base
		SET token_name = $3,
			primary_pool_address = $4,
			source = $5,
			network = $6,
			first_seen_post_id = $7,
			priority = $8,
			updated_at = $9
		WHERE token_ticker = $1 AND contract_address = $2
	`,
		merged.TokenTicker, merged.ContractAddress, merged.TokenName, merged.PrimaryPoolAddress,
		merged.Source, merged.Network, merged.FirstSeenPostID, merged.Priority, merged.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update knowledge entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return merged, nil
}

// FindByTicker retrieves entries for a ticker, best first.
func (s *KnowledgeBaseStore) FindByTicker(ctx context.Context, ticker string) ([]*domain.KnowledgeBaseEntry, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_base WHERE token_ticker = $1 ` + kbOrder
	return s.query(ctx, "find by ticker", query, strings.ToUpper(ticker))
}

// FindByName retrieves entries whose name equals name case-insensitively.
func (s *KnowledgeBaseStore) FindByName(ctx context.Context, name string) ([]*domain.KnowledgeBaseEntry, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_base WHERE LOWER(token_name) = LOWER($1) ` + kbOrder
	return s.query(ctx, "find by name", query, name)
}

// SearchByName retrieves up to limit entries whose name contains fragment case-insensitively.
func (s *KnowledgeBaseStore) SearchByName(ctx context.Context, fragment string, limit int) ([]*domain.KnowledgeBaseEntry, error) {
	if fragment == "" || limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	query := `
		SELECT ` + kbColumns + `
		FROM knowledge_base
		WHERE STRPOS(LOWER(token_name), LOWER($1)) > 0
		` + kbOrder + `
		LIMIT $2
	`
	return s.query(ctx, "search by name", query, fragment, limit)
}

func (s *KnowledgeBaseStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.KnowledgeBaseEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []*domain.KnowledgeBaseEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.KnowledgeBaseEntry, error) {
	var e domain.KnowledgeBaseEntry
	err := row.Scan(
		&e.TokenTicker, &e.ContractAddress, &e.TokenName, &e.PrimaryPoolAddress,
		&e.Source, &e.Network, &e.FirstSeenPostID, &e.Priority,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
