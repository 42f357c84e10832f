package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// MentionStore is an in-memory implementation of storage.MentionStore.
type MentionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.TokenMention // keyed by mention id
	byPost map[string][]string             // post id -> mention ids
}

// NewMentionStore creates a new in-memory mention store.
func NewMentionStore() *MentionStore {
	return &MentionStore{
		data:   make(map[string]*domain.TokenMention),
		byPost: make(map[string][]string),
	}
}

// ReplaceForPost deletes all mentions of a post and inserts the given set atomically.
func (s *MentionStore) ReplaceForPost(_ context.Context, postID string, mentions []*domain.TokenMention) error {
	if err := storage.ValidateMentionSet(postID, mentions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byPost[postID] {
		delete(s.data, id)
	}
	delete(s.byPost, postID)

	ids := make([]string, 0, len(mentions))
	for _, m := range mentions {
		s.data[m.ID] = copyMention(m)
		ids = append(ids, m.ID)
	}
	if len(ids) > 0 {
		s.byPost[postID] = ids
	}
	return nil
}

// GetByPostID retrieves all mentions for a post, ordered by trigger key ASC.
func (s *MentionStore) GetByPostID(_ context.Context, postID string) ([]*domain.TokenMention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPost[postID]
	result := make([]*domain.TokenMention, 0, len(ids))
	for _, id := range ids {
		result = append(result, copyMention(s.data[id]))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TriggerKey < result[j].TriggerKey
	})
	return result, nil
}

// MaxConfidence returns the highest stored confidence for a post.
func (s *MentionStore) MaxConfidence(_ context.Context, postID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPost[postID]
	if len(ids) == 0 {
		return 0, false, nil
	}

	best := 0
	for _, id := range ids {
		if c := s.data[id].Confidence; c > best {
			best = c
		}
	}
	return best, true, nil
}

// ApplyResolution rewrites token key and display and raises confidence to at least minConfidence.
func (s *MentionStore) ApplyResolution(_ context.Context, mentionID, tokenKey, tokenDisplay string, minConfidence int, updatedAt int64) error {
	if tokenKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[mentionID]
	if !exists {
		return storage.ErrNotFound
	}

	m.TokenKey = tokenKey
	m.TokenDisplay = tokenDisplay
	if minConfidence > m.Confidence {
		m.Confidence = minConfidence
	}
	m.UpdatedAt = updatedAt
	return nil
}

// SetExcluded flags a mention as excluded.
func (s *MentionStore) SetExcluded(_ context.Context, mentionID string, excluded bool, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[mentionID]
	if !exists {
		return storage.ErrNotFound
	}

	m.Excluded = excluded
	m.UpdatedAt = updatedAt
	return nil
}

// SetPriceIfNull stores the price only when none is set yet.
func (s *MentionStore) SetPriceIfNull(_ context.Context, mentionID string, price decimal.Decimal, updatedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[mentionID]
	if !exists {
		return false, storage.ErrNotFound
	}
	if m.PriceUSDAt != nil {
		return false, nil
	}

	p := domain.RoundPrice(price)
	m.PriceUSDAt = &p
	m.UpdatedAt = updatedAt
	return true, nil
}

func copyMention(m *domain.TokenMention) *domain.TokenMention {
	mentionCopy := *m
	if m.PriceUSDAt != nil {
		p := *m.PriceUSDAt
		mentionCopy.PriceUSDAt = &p
	}
	return &mentionCopy
}

// Verify interface compliance at compile time.
var _ storage.MentionStore = (*MentionStore)(nil)
