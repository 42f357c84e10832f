package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// PriceSnapshotStore is an in-memory implementation of storage.PriceSnapshotStore.
type PriceSnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PriceSnapshot // keyed by contract address
}

// NewPriceSnapshotStore creates a new in-memory price snapshot store.
func NewPriceSnapshotStore() *PriceSnapshotStore {
	return &PriceSnapshotStore{
		data: make(map[string][]*domain.PriceSnapshot),
	}
}

// Append adds a snapshot.
func (s *PriceSnapshotStore) Append(_ context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.ContractAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	snapCopy.PriceUSD = domain.RoundPrice(snap.PriceUSD)
	s.data[snap.ContractAddress] = append(s.data[snap.ContractAddress], &snapCopy)
	return nil
}

// GetByContract retrieves all snapshots for a contract, ordered by price_at ASC.
func (s *PriceSnapshotStore) GetByContract(_ context.Context, contractAddress string) ([]*domain.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.data[contractAddress]
	result := make([]*domain.PriceSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PriceAt < result[j].PriceAt
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PriceSnapshotStore = (*PriceSnapshotStore)(nil)
