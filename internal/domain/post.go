package domain

// Post is an ingested social post.
// Corresponds to posts table in PostgreSQL (owned by the ingestion side).
type Post struct {
	ID          string // external post id
	Author      string // author handle
	Text        string // raw text
	PublishedAt int64  // Unix timestamp in milliseconds
	Likes       int64  // engagement counters
	Reposts     int64
	Replies     int64
	CreatedAt   int64 // record creation timestamp (ms)
}
