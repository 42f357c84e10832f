package storage

import "solana-mention-tracker/internal/domain"

// ValidateMentionSet checks a replacement set for a single post.
// Every mention must belong to postID and carry an ID and trigger key.
// Trigger keys and IDs must be unique within the set.
func ValidateMentionSet(postID string, mentions []*domain.TokenMention) error {
	if postID == "" {
		return ErrInvalidInput
	}

	seenTrigger := make(map[string]struct{}, len(mentions))
	seenID := make(map[string]struct{}, len(mentions))
	for _, m := range mentions {
		if m == nil || m.ID == "" || m.TriggerKey == "" || m.PostID != postID || !m.Source.IsValid() {
			return ErrInvalidInput
		}
		if m.Confidence < 0 || m.Confidence > 100 {
			return ErrInvalidInput
		}
		if _, dup := seenTrigger[m.TriggerKey]; dup {
			return ErrDuplicateKey
		}
		if _, dup := seenID[m.ID]; dup {
			return ErrDuplicateKey
		}
		seenTrigger[m.TriggerKey] = struct{}{}
		seenID[m.ID] = struct{}{}
	}
	return nil
}
