// Package orchestrator drives the mention pipeline over stored posts.
// Per post it coordinates: rebuild gate → extraction → resolution → pricing
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/observability"
	"solana-mention-tracker/internal/pricing"
	"solana-mention-tracker/internal/rebuild"
	"solana-mention-tracker/internal/resolver"
	"solana-mention-tracker/internal/solana"
	"solana-mention-tracker/internal/storage"
)

// ErrInvalidInput is returned for malformed posts and incomplete options.
var ErrInvalidInput = errors.New("orchestrator: invalid input")

// Defaults.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 200
)

// Skip reasons reported in RunResult.Skipped.
const (
	SkipInvalidPost  = "invalid_post"
	SkipDuplicateKey = "duplicate_key"
	skipResolve      = "resolve:"
	skipPrice        = "price:"
)

// Rebuilder gates and rebuilds a post's mentions. Satisfied by *rebuild.Rebuilder.
type Rebuilder interface {
	Process(ctx context.Context, post *domain.Post) (rebuild.Outcome, error)
}

// Resolver resolves ticker and phrase mentions. Satisfied by *resolver.Resolver.
type Resolver interface {
	IsBlocked(ticker string) bool
	Resolve(ctx context.Context, req resolver.Request) (resolver.Result, error)
}

// Pricer prices mentions. Satisfied by *pricing.Engine.
type Pricer interface {
	PriceMention(ctx context.Context, m *domain.TokenMention, tsMs int64) (pricing.Result, error)
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Posts     storage.PostStore
	Mentions  storage.MentionStore
	Rebuilder Rebuilder
	Resolver  Resolver

	// Optional
	Unresolved storage.UnresolvedStore // nil disables the unresolved ledger
	Pricer     Pricer                  // nil disables pricing

	Workers   int // concurrent posts; the gateway still enforces the global request cap
	BatchSize int // posts per page
	MaxPosts  int // stop after this many posts; 0 scans everything

	// ResolvedConfidence is the minimum confidence stored for a resolved mention.
	// Keep it above the rebuild threshold so resolved posts are not rebuilt.
	// Defaults to rebuild.DefaultThreshold + 1.
	ResolvedConfidence int

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Orchestrator runs the pipeline over the post store.
type Orchestrator struct {
	posts      storage.PostStore
	mentions   storage.MentionStore
	unresolved storage.UnresolvedStore
	rebuilder  Rebuilder
	resolver   Resolver
	pricer     Pricer

	workers      int
	batchSize    int
	maxPosts     int
	resolvedConf int
	log          logrus.FieldLogger
	now          func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Posts == nil || opts.Mentions == nil || opts.Rebuilder == nil || opts.Resolver == nil {
		return nil, fmt.Errorf("%w: posts, mentions, rebuilder and resolver are required", ErrInvalidInput)
	}
	o := &Orchestrator{
		posts:      opts.Posts,
		mentions:   opts.Mentions,
		unresolved: opts.Unresolved,
		rebuilder:  opts.Rebuilder,
		resolver:   opts.Resolver,
		pricer:     opts.Pricer,
		workers:      opts.Workers,
		batchSize:    opts.BatchSize,
		maxPosts:     opts.MaxPosts,
		resolvedConf: opts.ResolvedConfidence,
		log:          opts.Logger,
		now:          opts.Now,
	}
	if o.workers <= 0 {
		o.workers = DefaultWorkers
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if o.resolvedConf <= 0 {
		o.resolvedConf = rebuild.DefaultThreshold + 1
	}
	if o.resolvedConf > 100 {
		o.resolvedConf = 100
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// RunResult summarizes a batch run.
type RunResult struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Scanned    int            `json:"scanned"`
	Rebuilt    int            `json:"rebuilt"`
	Resolved   int            `json:"resolved"`
	Priced     int            `json:"priced"`
	Skipped    map[string]int `json:"skipped"` // reason -> count
	Errors     []string       `json:"errors,omitempty"`
}

// SkippedTotal returns the number of skipped items across all reasons.
func (r *RunResult) SkippedTotal() int {
	var n int
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *RunResult) merge(p *PostResult) {
	r.Scanned++
	if p.Rebuilt {
		r.Rebuilt++
	}
	r.Resolved += p.Resolved
	r.Priced += p.Priced
	for k, v := range p.Skipped {
		r.Skipped[k] += v
	}
}

// PostResult summarizes the work done for one post.
type PostResult struct {
	Rebuilt  bool
	Resolved int
	Priced   int
	Skipped  map[string]int
}

func (p *PostResult) skip(reason string) {
	if p.Skipped == nil {
		p.Skipped = make(map[string]int)
	}
	p.Skipped[reason]++
}

// Run pages through all posts in publish order and processes them with a bounded worker pool.
// Per-post failures are collected in RunResult.Errors; Run itself fails only when listing
// posts fails or ctx is done, returning the partial result alongside the error.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Skipped:   make(map[string]int),
	}
	log := o.log.WithField("run_id", result.RunID)
	log.Info("batch run started")

	err := o.run(ctx, result, log)

	result.FinishedAt = o.now()
	elapsed := result.FinishedAt.Sub(result.StartedAt).Seconds()
	status := "success"
	switch {
	case err != nil:
		status = "failed"
	case len(result.Errors) > 0:
		status = "partial"
	}
	observability.RecordBatchRun(status, elapsed, result.FinishedAt.Unix())

	log.WithFields(logrus.Fields{
		"status":   status,
		"scanned":  result.Scanned,
		"rebuilt":  result.Rebuilt,
		"resolved": result.Resolved,
		"priced":   result.Priced,
		"skipped":  result.SkippedTotal(),
		"errors":   len(result.Errors),
	}).Info("batch run finished")

	return result, err
}

func (o *Orchestrator) run(ctx context.Context, result *RunResult, log logrus.FieldLogger) error {
	var (
		mu      sync.Mutex
		afterTs int64
		afterID string
		seen    int
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		limit := o.batchSize
		if o.maxPosts > 0 && o.maxPosts-seen < limit {
			limit = o.maxPosts - seen
		}
		if limit <= 0 {
			return nil
		}

		page, err := o.posts.ListSince(ctx, afterTs, afterID, limit)
		if err != nil {
			return fmt.Errorf("list posts after %d/%s: %w", afterTs, afterID, err)
		}
		if len(page) == 0 {
			return nil
		}
		seen += len(page)
		last := page[len(page)-1]
		afterTs, afterID = last.PublishedAt, last.ID

		g := new(errgroup.Group)
		g.SetLimit(o.workers)
		for _, post := range page {
			post := post
			g.Go(func() error {
				// Stop between posts on cancellation.
				if err := ctx.Err(); err != nil {
					return err
				}
				pr, err := o.ProcessPost(ctx, post)

				mu.Lock()
				defer mu.Unlock()
				if pr != nil {
					result.merge(pr)
				}
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					result.Errors = append(result.Errors, fmt.Sprintf("post %s: %v", post.ID, err))
					log.WithError(err).WithField("post_id", post.ID).Warn("post processing failed")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if len(page) < limit {
			return nil
		}
	}
}

// ProcessPost runs the pipeline for one post. A malformed post yields ErrInvalidInput
// together with a result recording the skip.
func (o *Orchestrator) ProcessPost(ctx context.Context, post *domain.Post) (*PostResult, error) {
	pr := &PostResult{}
	observability.RecordPostProcessed()

	if err := validatePost(post); err != nil {
		pr.skip(SkipInvalidPost)
		return pr, err
	}
	log := o.log.WithField("post_id", post.ID)

	outcome, err := o.rebuilder.Process(ctx, post)
	if err != nil {
		return pr, err
	}
	pr.Rebuilt = outcome.Rebuilt

	// One price per token per post: a ticker resolved to an address the post
	// also names as a contract is not priced twice.
	pricedKeys := make(map[string]bool, len(outcome.Mentions))
	for _, m := range outcome.Mentions {
		if m.HasPrice() && !m.Excluded {
			pricedKeys[m.TokenKey] = true
		}
	}

	for _, m := range outcome.Mentions {
		// A skipped post keeps its stored resolutions; only fresh rows are resolved.
		if outcome.Rebuilt && needsResolution(m) {
			if err := o.resolveMention(ctx, post, m, pr, log); err != nil {
				return pr, err
			}
		}
		if o.pricer != nil && needsPrice(m) {
			if pricedKeys[m.TokenKey] {
				pr.skip(skipPrice + SkipDuplicateKey)
				continue
			}
			priced, err := o.priceMention(ctx, post, m, pr)
			if err != nil {
				return pr, err
			}
			if priced {
				pricedKeys[m.TokenKey] = true
			}
		}
	}
	return pr, nil
}

func (o *Orchestrator) resolveMention(ctx context.Context, post *domain.Post, m *domain.TokenMention, pr *PostResult, log logrus.FieldLogger) error {
	nowMs := o.now().UnixMilli()

	if m.Source == domain.SourceTicker && o.resolver.IsBlocked(m.TokenKey) {
		return o.exclude(ctx, m, nowMs, pr)
	}

	res, err := o.resolver.Resolve(ctx, resolver.Request{Source: m.Source, Key: m.TokenKey, PostID: post.ID})
	if err != nil {
		return fmt.Errorf("resolve %s %q: %w", m.Source, m.TokenKey, err)
	}

	switch res.Outcome {
	case resolver.OutcomeResolved:
		c := res.Candidate
		display := "$" + c.TokenTicker
		conf := max(c.Score, o.resolvedConf)
		if err := o.mentions.ApplyResolution(ctx, m.ID, c.ContractAddress, display, conf, nowMs); err != nil {
			return fmt.Errorf("apply resolution to mention %s: %w", m.ID, err)
		}
		m.TokenKey = c.ContractAddress
		m.TokenDisplay = display
		m.Confidence = max(m.Confidence, conf)
		m.UpdatedAt = nowMs
		pr.Resolved++
		log.WithFields(logrus.Fields{
			"trigger": m.TriggerKey,
			"address": c.ContractAddress,
		}).Debug("mention resolved")
		return nil

	case resolver.OutcomeBlocked:
		return o.exclude(ctx, m, nowMs, pr)

	case resolver.OutcomeMiss, resolver.OutcomeRejected:
		pr.skip(skipResolve + string(res.Outcome))
		o.recordUnresolved(ctx, post, m, res, nowMs, log)
		return nil

	default:
		pr.skip(skipResolve + string(res.Outcome))
		return nil
	}
}

func (o *Orchestrator) exclude(ctx context.Context, m *domain.TokenMention, nowMs int64, pr *PostResult) error {
	if err := o.mentions.SetExcluded(ctx, m.ID, true, nowMs); err != nil {
		return fmt.Errorf("exclude mention %s: %w", m.ID, err)
	}
	m.Excluded = true
	m.UpdatedAt = nowMs
	pr.skip(skipResolve + string(resolver.OutcomeBlocked))
	return nil
}

// recordUnresolved writes the ledger row. Ledger failures are logged, not returned.
func (o *Orchestrator) recordUnresolved(ctx context.Context, post *domain.Post, m *domain.TokenMention, res resolver.Result, nowMs int64, log logrus.FieldLogger) {
	if o.unresolved == nil {
		return
	}
	reason := string(res.Outcome)
	if res.Reason != "" {
		reason += ":" + res.Reason
	}
	err := o.unresolved.Record(ctx, &domain.UnresolvedToken{
		ID:          uuid.NewString(),
		TokenKey:    m.TokenKey,
		Source:      m.Source,
		Reason:      reason,
		LastPostID:  post.ID,
		FirstSeenAt: nowMs,
		LastSeenAt:  nowMs,
	})
	if err != nil {
		log.WithError(err).WithField("token_key", m.TokenKey).Warn("record unresolved token failed")
	}
}

// priceMention reports whether the mention carries a price afterwards.
func (o *Orchestrator) priceMention(ctx context.Context, post *domain.Post, m *domain.TokenMention, pr *PostResult) (bool, error) {
	res, err := o.pricer.PriceMention(ctx, m, post.PublishedAt)
	if err != nil {
		return false, fmt.Errorf("price mention %s: %w", m.ID, err)
	}
	if res.Priced() {
		pr.Priced++
		return true, nil
	}
	if res.Status == pricing.StatusAlreadyPriced {
		return true, nil
	}
	pr.skip(skipPrice + string(res.Status))
	return false, nil
}

func needsResolution(m *domain.TokenMention) bool {
	if m.Excluded || m.Source == domain.SourceContract {
		return false
	}
	return !solana.IsValidAddress(m.TokenKey)
}

func needsPrice(m *domain.TokenMention) bool {
	return !m.Excluded && !m.HasPrice() && solana.IsValidAddress(m.TokenKey)
}

func validatePost(p *domain.Post) error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil post", ErrInvalidInput)
	case p.ID == "":
		return fmt.Errorf("%w: post without id", ErrInvalidInput)
	case p.PublishedAt <= 0:
		return fmt.Errorf("%w: post %s without publish time", ErrInvalidInput, p.ID)
	}
	return nil
}
