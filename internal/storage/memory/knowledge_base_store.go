package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

type kbKey struct {
	ticker   string
	contract string
}

// KnowledgeBaseStore is an in-memory implementation of storage.KnowledgeBaseStore.
type KnowledgeBaseStore struct {
	mu   sync.RWMutex
	data map[kbKey]*domain.KnowledgeBaseEntry
}

// NewKnowledgeBaseStore creates a new in-memory knowledge base store.
func NewKnowledgeBaseStore() *KnowledgeBaseStore {
	return &KnowledgeBaseStore{
		data: make(map[kbKey]*domain.KnowledgeBaseEntry),
	}
}

// Upsert merges the entry on (token_ticker, contract_address).
func (s *KnowledgeBaseStore) Upsert(_ context.Context, e *domain.KnowledgeBaseEntry) (*domain.KnowledgeBaseEntry, error) {
	if e == nil || e.TokenTicker == "" || e.ContractAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	incoming := copyEntry(e)
	incoming.TokenTicker = strings.ToUpper(incoming.TokenTicker)
	key := kbKey{ticker: incoming.TokenTicker, contract: incoming.ContractAddress}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := storage.MergeKnowledgeEntry(s.data[key], incoming)
	s.data[key] = copyEntry(merged)
	return copyEntry(merged), nil
}

// FindByTicker retrieves entries for a ticker, best first.
func (s *KnowledgeBaseStore) FindByTicker(_ context.Context, ticker string) ([]*domain.KnowledgeBaseEntry, error) {
	ticker = strings.ToUpper(ticker)
	return s.filter(func(e *domain.KnowledgeBaseEntry) bool {
		return e.TokenTicker == ticker
	}, 0), nil
}

// FindByName retrieves entries whose name equals name case-insensitively.
func (s *KnowledgeBaseStore) FindByName(_ context.Context, name string) ([]*domain.KnowledgeBaseEntry, error) {
	return s.filter(func(e *domain.KnowledgeBaseEntry) bool {
		return e.TokenName != nil && strings.EqualFold(*e.TokenName, name)
	}, 0), nil
}

// SearchByName retrieves up to limit entries whose name contains fragment case-insensitively.
func (s *KnowledgeBaseStore) SearchByName(_ context.Context, fragment string, limit int) ([]*domain.KnowledgeBaseEntry, error) {
	if fragment == "" || limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	needle := strings.ToLower(fragment)
	return s.filter(func(e *domain.KnowledgeBaseEntry) bool {
		return e.TokenName != nil && strings.Contains(strings.ToLower(*e.TokenName), needle)
	}, limit), nil
}

func (s *KnowledgeBaseStore) filter(match func(*domain.KnowledgeBaseEntry) bool, limit int) []*domain.KnowledgeBaseEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.KnowledgeBaseEntry
	for _, e := range s.data {
		if match(e) {
			result = append(result, copyEntry(e))
		}
	}

	sortEntries(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// sortEntries orders by priority DESC NULLS LAST, updated_at DESC, contract ASC.
func sortEntries(entries []*domain.KnowledgeBaseEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Priority != nil && b.Priority == nil:
			return true
		case a.Priority == nil && b.Priority != nil:
			return false
		case a.Priority != nil && b.Priority != nil && *a.Priority != *b.Priority:
			return *a.Priority > *b.Priority
		}
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		return a.ContractAddress < b.ContractAddress
	})
}

func copyEntry(e *domain.KnowledgeBaseEntry) *domain.KnowledgeBaseEntry {
	c := *e
	c.TokenName = copyString(e.TokenName)
	c.PrimaryPoolAddress = copyString(e.PrimaryPoolAddress)
	c.Source = copyString(e.Source)
	c.Network = copyString(e.Network)
	c.FirstSeenPostID = copyString(e.FirstSeenPostID)
	if e.Priority != nil {
		p := *e.Priority
		c.Priority = &p
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Verify interface compliance at compile time.
var _ storage.KnowledgeBaseStore = (*KnowledgeBaseStore)(nil)
