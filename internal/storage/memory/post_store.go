package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// PostStore is an in-memory implementation of storage.PostStore.
type PostStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Post // keyed by post id
}

// NewPostStore creates a new in-memory post store.
func NewPostStore() *PostStore {
	return &PostStore{
		data: make(map[string]*domain.Post),
	}
}

// Upsert inserts or replaces a post by ID.
func (s *PostStore) Upsert(_ context.Context, p *domain.Post) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	postCopy := *p
	s.data[p.ID] = &postCopy
	return nil
}

// GetByID retrieves a post by its ID. Returns ErrNotFound if not exists.
func (s *PostStore) GetByID(_ context.Context, postID string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[postID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	postCopy := *p
	return &postCopy, nil
}

// ListSince retrieves up to limit posts strictly after the (publishedAt, id) cursor.
func (s *PostStore) ListSince(_ context.Context, afterPublishedAt int64, afterID string, limit int) ([]*domain.Post, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Post
	for _, p := range s.data {
		if p.PublishedAt > afterPublishedAt || (p.PublishedAt == afterPublishedAt && p.ID > afterID) {
			postCopy := *p
			result = append(result, &postCopy)
		}
	}

	// Sort by (published_at, id) ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].PublishedAt != result[j].PublishedAt {
			return result[i].PublishedAt < result[j].PublishedAt
		}
		return result[i].ID < result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PostStore = (*PostStore)(nil)
