package storage

import "solana-mention-tracker/internal/domain"

// MergeKnowledgeEntry merges an incoming knowledge-base entry into the stored one.
// A known value is never replaced by an incoming null. FirstSeenPostID and CreatedAt
// keep the stored value, UpdatedAt always takes the incoming value.
// When existing is nil a copy of incoming is returned.
func MergeKnowledgeEntry(existing, incoming *domain.KnowledgeBaseEntry) *domain.KnowledgeBaseEntry {
	if existing == nil {
		merged := *incoming
		if merged.CreatedAt == 0 {
			merged.CreatedAt = merged.UpdatedAt
		}
		return &merged
	}

	merged := *existing
	merged.TokenName = preferIncoming(existing.TokenName, incoming.TokenName)
	merged.PrimaryPoolAddress = preferIncoming(existing.PrimaryPoolAddress, incoming.PrimaryPoolAddress)
	merged.Source = preferIncoming(existing.Source, incoming.Source)
	merged.Network = preferIncoming(existing.Network, incoming.Network)
	if merged.FirstSeenPostID == nil {
		merged.FirstSeenPostID = incoming.FirstSeenPostID
	}
	if incoming.Priority != nil {
		p := *incoming.Priority
		merged.Priority = &p
	}
	merged.UpdatedAt = incoming.UpdatedAt
	return &merged
}

func preferIncoming(existing, incoming *string) *string {
	if incoming == nil || *incoming == "" {
		return existing
	}
	v := *incoming
	return &v
}
