package domain

import "github.com/shopspring/decimal"

// MentionSource identifies the grammar rule that produced a mention.
type MentionSource string

const (
	SourceContract MentionSource = "contract"
	SourceTicker   MentionSource = "ticker"
	SourcePhrase   MentionSource = "phrase"
)

// Base confidence assigned by the extractor per source.
const (
	ConfidenceContract = 100
	ConfidenceTicker   = 95
	ConfidencePhrase   = 80
)

// String returns the string representation of MentionSource.
func (s MentionSource) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s MentionSource) IsValid() bool {
	return s == SourceContract || s == SourceTicker || s == SourcePhrase
}

// MentionCandidate is a token reference found in a single text.
// Produced fresh per extraction, never persisted directly.
type MentionCandidate struct {
	TokenKey     string        // normalized key: address as-is, ticker/phrase lowercase
	TokenDisplay string        // text as shown to users ($POPCAT, address, phrase)
	Source       MentionSource // contract | ticker | phrase
	Confidence   int           // 0-100
}

// TokenMention is a persisted mention of a token inside a post.
// Corresponds to token_mentions table in PostgreSQL.
// Unique per (PostID, TriggerKey).
type TokenMention struct {
	ID           string           // deterministic hash of post_id|trigger_key
	PostID       string           // FK to posts
	TokenKey     string           // rewritten to the contract address once resolved
	TokenDisplay string           // display form
	Confidence   int              // 0-100, raised by successful resolution
	Source       MentionSource    // grammar rule that produced the mention
	TriggerKey   string           // stable identifier of the producing text span
	TriggerText  string           // original text span
	PriceUSDAt   *decimal.Decimal // USD price at post time (nullable, write-once)
	Excluded     bool             // excluded from pricing and reporting
	CreatedAt    int64            // record creation timestamp (ms)
	UpdatedAt    int64            // last update timestamp (ms)
}

// HasPrice reports whether the mention already carries a price.
func (m *TokenMention) HasPrice() bool {
	return m.PriceUSDAt != nil
}
