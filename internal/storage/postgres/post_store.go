package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/storage"
)

// PostStore implements storage.PostStore using PostgreSQL.
type PostStore struct {
	pool *Pool
}

// NewPostStore creates a new PostStore.
func NewPostStore(pool *Pool) *PostStore {
	return &PostStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PostStore = (*PostStore)(nil)

const postColumns = `id, author, text, published_at, likes, reposts, replies, created_at`

// Upsert inserts or replaces a post by ID.
func (s *PostStore) Upsert(ctx context.Context, p *domain.Post) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			author = EXCLUDED.author,
			text = EXCLUDED.text,
			published_at = EXCLUDED.published_at,
			likes = EXCLUDED.likes,
			reposts = EXCLUDED.reposts,
			replies = EXCLUDED.replies
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Author, p.Text, p.PublishedAt,
		p.Likes, p.Reposts, p.Replies, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by its ID. Returns ErrNotFound if not exists.
func (s *PostStore) GetByID(ctx context.Context, postID string) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(s.pool.QueryRow(ctx, query, postID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return p, nil
}

// ListSince retrieves up to limit posts strictly after the (publishedAt, id) cursor.
func (s *PostStore) ListSince(ctx context.Context, afterPublishedAt int64, afterID string, limit int) ([]*domain.Post, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE (published_at, id) > ($1, $2)
		ORDER BY published_at ASC, id ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, afterPublishedAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts since: %w", err)
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.Author, &p.Text, &p.PublishedAt,
		&p.Likes, &p.Reposts, &p.Replies, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
