// Package rebuild decides when a post's stored mentions are stale and
// replaces them with a freshly extracted set.
package rebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/extract"
	"solana-mention-tracker/internal/idhash"
	"solana-mention-tracker/internal/observability"
	"solana-mention-tracker/internal/storage"
)

// DefaultThreshold is the stored confidence above which a post is left untouched.
const DefaultThreshold = 98

// Decision labels.
const (
	DecisionRebuild = "rebuild"
	DecisionSkip    = "skip"
)

// ShouldRebuild reports whether a post must be re-extracted.
// present is false when the post has no stored mentions.
func ShouldRebuild(storedMax int, present bool, threshold int) bool {
	return !present || storedMax <= threshold
}

// Options configures Rebuilder.
type Options struct {
	Mentions  storage.MentionStore
	Extractor *extract.Extractor // defaults to the built-in stopwords
	Threshold int                // defaults to DefaultThreshold
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// Rebuilder applies the gate and rebuilds mention sets.
type Rebuilder struct {
	mentions  storage.MentionStore
	extractor *extract.Extractor
	threshold int
	log       logrus.FieldLogger
	now       func() time.Time
}

// New creates a Rebuilder.
func New(opts Options) *Rebuilder {
	r := &Rebuilder{
		mentions:  opts.Mentions,
		extractor: opts.Extractor,
		threshold: opts.Threshold,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if r.extractor == nil {
		r.extractor = extract.New(extract.Options{})
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Threshold returns the configured gate threshold.
func (r *Rebuilder) Threshold() int {
	return r.threshold
}

// Outcome is the result of Process.
type Outcome struct {
	Rebuilt  bool
	Mentions []*domain.TokenMention // current stored set, ordered by trigger key
}

// Gate reports whether the stored mentions of postID must be rebuilt.
func (r *Rebuilder) Gate(ctx context.Context, postID string) (bool, error) {
	storedMax, present, err := r.mentions.MaxConfidence(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("max confidence for post %s: %w", postID, err)
	}
	rebuild := ShouldRebuild(storedMax, present, r.threshold)
	if rebuild {
		observability.RecordRebuildDecision(DecisionRebuild)
	} else {
		observability.RecordRebuildDecision(DecisionSkip)
	}
	return rebuild, nil
}

// Process gates the post and, when stale, rebuilds it. It returns the mentions
// stored for the post afterwards.
func (r *Rebuilder) Process(ctx context.Context, post *domain.Post) (Outcome, error) {
	rebuild, err := r.Gate(ctx, post.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !rebuild {
		stored, err := r.mentions.GetByPostID(ctx, post.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("load mentions for post %s: %w", post.ID, err)
		}
		r.log.WithField("post_id", post.ID).Debug("mentions above threshold, skipping rebuild")
		return Outcome{Mentions: stored}, nil
	}

	mentions, err := r.Rebuild(ctx, post)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Rebuilt: true, Mentions: mentions}, nil
}

// Rebuild extracts post text and atomically replaces the stored mention set.
func (r *Rebuilder) Rebuild(ctx context.Context, post *domain.Post) ([]*domain.TokenMention, error) {
	matches := r.extractor.ExtractMatches(post.Text)
	mentions := BuildMentions(post.ID, matches, r.now().UnixMilli())

	if err := r.mentions.ReplaceForPost(ctx, post.ID, mentions); err != nil {
		return nil, fmt.Errorf("replace mentions for post %s: %w", post.ID, err)
	}
	for _, m := range mentions {
		observability.RecordMentionStored(string(m.Source))
	}

	r.log.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"mentions": len(mentions),
	}).Debug("rebuilt mentions")
	return mentions, nil
}

// BuildMentions converts extraction matches into persisted rows with deterministic IDs.
func BuildMentions(postID string, matches []extract.Match, nowMs int64) []*domain.TokenMention {
	out := make([]*domain.TokenMention, 0, len(matches))
	for _, m := range matches {
		trigger := idhash.ComputeTriggerKey(m.Candidate.Source, m.Candidate.TokenKey)
		out = append(out, &domain.TokenMention{
			ID:           idhash.ComputeMentionID(postID, trigger),
			PostID:       postID,
			TokenKey:     m.Candidate.TokenKey,
			TokenDisplay: m.Candidate.TokenDisplay,
			Confidence:   m.Candidate.Confidence,
			Source:       m.Candidate.Source,
			TriggerKey:   trigger,
			TriggerText:  m.TriggerText,
			CreatedAt:    nowMs,
			UpdatedAt:    nowMs,
		})
	}
	return out
}
