package clickhouse

import (
	"context"
	"fmt"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// PriceSnapshotStore implements storage.PriceSnapshotStore using ClickHouse.
type PriceSnapshotStore struct {
	conn *Conn
}

// NewPriceSnapshotStore creates a new PriceSnapshotStore.
func NewPriceSnapshotStore(conn *Conn) *PriceSnapshotStore {
	return &PriceSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSnapshotStore = (*PriceSnapshotStore)(nil)

// Append adds a snapshot. The table is append-only; repeated snapshots are kept.
func (s *PriceSnapshotStore) Append(ctx context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.ContractAddress == "" || snap.Confidence < 0 || snap.Confidence > 100 {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_snapshots (
			contract_address, pool_address, price_usd, price_at, source, confidence, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		snap.ContractAddress, snap.PoolAddress, domain.RoundPrice(snap.PriceUSD),
		uint64(snap.PriceAt), snap.Source, uint8(snap.Confidence), uint64(snap.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByContract retrieves all snapshots for a contract, ordered by price_at ASC.
func (s *PriceSnapshotStore) GetByContract(ctx context.Context, contractAddress string) ([]*domain.PriceSnapshot, error) {
	query := `
		SELECT contract_address, pool_address, price_usd, price_at, source, confidence, created_at
		FROM price_snapshots
		WHERE contract_address = ?
		ORDER BY price_at ASC, created_at ASC
	`

	rows, err := s.conn.Query(ctx, query, contractAddress)
	if err != nil {
		return nil, fmt.Errorf("query by contract: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.PriceSnapshot
	for rows.Next() {
		var snap domain.PriceSnapshot
		var priceAt, createdAt uint64
		var confidence uint8

		err := rows.Scan(
			&snap.ContractAddress, &snap.PoolAddress, &snap.PriceUSD,
			&priceAt, &snap.Source, &confidence, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price snapshot row: %w", err)
		}

		snap.PriceAt = int64(priceAt)
		snap.CreatedAt = int64(createdAt)
		snap.Confidence = int(confidence)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price snapshot rows: %w", err)
	}
	return snaps, nil
}
