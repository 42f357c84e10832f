package domain

// KnowledgeBaseEntry maps a ticker (and name) to a canonical contract address.
// Corresponds to knowledge_base table in PostgreSQL.
// Unique per (TokenTicker, ContractAddress).
type KnowledgeBaseEntry struct {
	TokenTicker        string  // uppercase, without $
	ContractAddress    string  // token mint address
	TokenName          *string // human-readable name (nullable)
	PrimaryPoolAddress *string // preferred pool (nullable)
	Source             *string // provenance: manual, geckoterminal, ... (nullable)
	Network            *string // network the mapping was found on (nullable)
	FirstSeenPostID    *string // post that triggered the first resolution (nullable)
	Priority           *int    // manual priority, higher wins (nullable)
	CreatedAt          int64   // record creation timestamp (ms)
	UpdatedAt          int64   // last merge timestamp (ms)
}

// UnresolvedToken is a ledger row for mentions nothing could resolve.
// Corresponds to unresolved_tokens table in PostgreSQL.
// Unique per (TokenKey, Source).
type UnresolvedToken struct {
	ID          string        // uuid
	TokenKey    string        // normalized ticker or phrase
	Source      MentionSource // ticker | phrase
	Reason      string        // miss | rejected:<why>
	LastPostID  string        // most recent post mentioning the token
	FirstSeenAt int64         // ms
	LastSeenAt  int64         // ms
	SeenCount   int           // number of times recorded
}
