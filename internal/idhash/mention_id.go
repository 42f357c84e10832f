package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-mention-tracker/internal/domain"
)

// ComputeTriggerKey builds the stable identifier of the span that produced a mention.
// Formula: source:token_key. Contract keys keep their case, other keys are already lowercase.
func ComputeTriggerKey(source domain.MentionSource, tokenKey string) string {
	return fmt.Sprintf("%s:%s", source, tokenKey)
}

// ComputeMentionID computes a deterministic mention id using SHA256.
// Formula: SHA256(post_id|trigger_key)
// Returns hex-encoded hash (64 characters).
func ComputeMentionID(postID, triggerKey string) string {
	data := fmt.Sprintf("%s|%s", postID, triggerKey)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
