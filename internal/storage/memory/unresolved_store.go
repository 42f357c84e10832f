package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

type unresolvedKey struct {
	tokenKey string
	source   domain.MentionSource
}

// UnresolvedStore is an in-memory implementation of storage.UnresolvedStore.
type UnresolvedStore struct {
	mu   sync.RWMutex
	data map[unresolvedKey]*domain.UnresolvedToken
}

// NewUnresolvedStore creates a new in-memory unresolved ledger.
func NewUnresolvedStore() *UnresolvedStore {
	return &UnresolvedStore{
		data: make(map[unresolvedKey]*domain.UnresolvedToken),
	}
}

// Record inserts a ledger row or bumps the existing one.
func (s *UnresolvedStore) Record(_ context.Context, u *domain.UnresolvedToken) error {
	if u == nil || u.ID == "" || u.TokenKey == "" || !u.Source.IsValid() {
		return storage.ErrInvalidInput
	}

	key := unresolvedKey{tokenKey: u.TokenKey, source: u.Source}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[key]
	if !exists {
		row := *u
		if row.FirstSeenAt == 0 {
			row.FirstSeenAt = row.LastSeenAt
		}
		row.SeenCount = 1
		s.data[key] = &row
		return nil
	}

	existing.SeenCount++
	existing.Reason = u.Reason
	existing.LastPostID = u.LastPostID
	if u.LastSeenAt > existing.LastSeenAt {
		existing.LastSeenAt = u.LastSeenAt
	}
	return nil
}

// List retrieves up to limit rows ordered by seen_count DESC, last_seen_at DESC.
func (s *UnresolvedStore) List(_ context.Context, limit int) ([]*domain.UnresolvedToken, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.UnresolvedToken, 0, len(s.data))
	for _, u := range s.data {
		row := *u
		result = append(result, &row)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SeenCount != result[j].SeenCount {
			return result[i].SeenCount > result[j].SeenCount
		}
		if result[i].LastSeenAt != result[j].LastSeenAt {
			return result[i].LastSeenAt > result[j].LastSeenAt
		}
		return result[i].TokenKey < result[j].TokenKey
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.UnresolvedStore = (*UnresolvedStore)(nil)
