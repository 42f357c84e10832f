// Package resolver maps ticker and phrase mentions to canonical contract addresses
// using the local knowledge base first and external token search second.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/gateway"
	"solana-mention-tracker/internal/market"
	"solana-mention-tracker/internal/observability"
	"solana-mention-tracker/internal/solana"
	"solana-mention-tracker/internal/storage"
)

// Resolution scores. Every score exceeds the default rebuild threshold.
const (
	ScoreKnowledgeTicker = 99
	ScoreExternalTicker  = 99
	ScorePhraseExact     = 99
	ScorePhraseSubstring = 96
	ScoreExternalPhrase  = 96
)

// Defaults.
const (
	DefaultMinPhraseLength = 4
	DefaultNetwork         = "solana"
	KnowledgeSource        = "geckoterminal"

	substringLimit = 10
)

// DefaultBlocklist holds major and non-project assets that are never resolved.
var DefaultBlocklist = []string{
	"SOL", "WSOL", "USDC", "USDT", "BTC", "WBTC", "ETH", "WETH", "BNB", "XRP",
	"DAI", "USD", "PYUSD", "USDE", "FDUSD",
}

// Outcome classifies a resolution attempt.
type Outcome string

const (
	OutcomeResolved    Outcome = "resolved"
	OutcomeBlocked     Outcome = "blocked"     // major asset, never a project token
	OutcomeMiss        Outcome = "miss"        // nothing found anywhere
	OutcomeRejected    Outcome = "rejected"    // found but incomplete or ambiguous
	OutcomeUnavailable Outcome = "unavailable" // external search temporarily unavailable
)

// Candidate is a resolved token.
type Candidate struct {
	ContractAddress    string `json:"contract_address"`
	TokenTicker        string `json:"token_ticker"`
	TokenName          string `json:"token_name,omitempty"`
	PrimaryPoolAddress string `json:"primary_pool_address,omitempty"`
	Score              int    `json:"score"`
	FromKnowledgeBase  bool   `json:"from_knowledge_base"`
}

// Request is a resolution request for one mention.
type Request struct {
	Source domain.MentionSource // ticker | phrase
	Key    string               // ticker (with or without $) or phrase
	PostID string               // recorded as first_seen_post_id on new mappings
}

// Result is the outcome of a resolution. Candidate is nil unless Outcome is OutcomeResolved.
type Result struct {
	Candidate *Candidate
	Outcome   Outcome
	Reason    string
}

// Searcher performs external token search. Satisfied by *market.Client.
type Searcher interface {
	SearchTokens(ctx context.Context, network, query string) ([]market.TokenMatch, error)
}

// Options configures Resolver.
type Options struct {
	KnowledgeBase        storage.KnowledgeBaseStore
	Searcher             Searcher // nil disables external search
	Networks             []string // searched in order; defaults to [solana]
	Blocklist            []string // defaults to DefaultBlocklist
	Strict               bool     // reject external hits lacking symbol or name
	ExternalPhraseSearch bool
	MinPhraseLength      int
	Logger               logrus.FieldLogger
	Now                  func() time.Time
}

// Resolver resolves tickers and phrases.
type Resolver struct {
	kb           storage.KnowledgeBaseStore
	searcher     Searcher
	networks     []string
	blocklist    map[string]struct{}
	strict       bool
	phraseSearch bool
	minPhrase    int
	log          logrus.FieldLogger
	now          func() time.Time
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	networks := opts.Networks
	if len(networks) == 0 {
		networks = []string{DefaultNetwork}
	}
	list := opts.Blocklist
	if list == nil {
		list = DefaultBlocklist
	}
	blocklist := make(map[string]struct{}, len(list))
	for _, t := range list {
		blocklist[strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(t), "$"))] = struct{}{}
	}
	minPhrase := opts.MinPhraseLength
	if minPhrase <= 0 {
		minPhrase = DefaultMinPhraseLength
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		kb:           opts.KnowledgeBase,
		searcher:     opts.Searcher,
		networks:     networks,
		blocklist:    blocklist,
		strict:       opts.Strict,
		phraseSearch: opts.ExternalPhraseSearch,
		minPhrase:    minPhrase,
		log:          log,
		now:          now,
	}
}

// IsBlocked reports whether ticker names a blocklisted asset.
func (r *Resolver) IsBlocked(ticker string) bool {
	_, ok := r.blocklist[normalizeTicker(ticker)]
	return ok
}

// ResolveTicker resolves a ticker such as "$POPCAT" or "popcat".
func (r *Resolver) ResolveTicker(ctx context.Context, ticker string) (Result, error) {
	return r.Resolve(ctx, Request{Source: domain.SourceTicker, Key: ticker})
}

// ResolvePhrase resolves a phrase such as "unstable".
func (r *Resolver) ResolvePhrase(ctx context.Context, phrase string) (Result, error) {
	return r.Resolve(ctx, Request{Source: domain.SourcePhrase, Key: phrase})
}

// Resolve dispatches on the request source. A non-nil error means the knowledge
// base failed; every other failure is reported through Result.Outcome.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	var (
		res Result
		err error
	)
	switch req.Source {
	case domain.SourceTicker:
		res, err = r.resolveTicker(ctx, req)
	case domain.SourcePhrase:
		res, err = r.resolvePhrase(ctx, req)
	default:
		return Result{}, fmt.Errorf("resolve %s mention: %w", req.Source, storage.ErrInvalidInput)
	}
	if err != nil {
		return Result{}, err
	}
	observability.RecordResolverOutcome(string(req.Source), string(res.Outcome))
	return res, nil
}

func (r *Resolver) resolveTicker(ctx context.Context, req Request) (Result, error) {
	ticker := normalizeTicker(req.Key)
	log := r.log.WithField("ticker", ticker)

	if ticker == "" {
		return Result{Outcome: OutcomeRejected, Reason: "empty"}, nil
	}
	if _, blocked := r.blocklist[ticker]; blocked {
		log.Debug("ticker is blocklisted")
		return Result{Outcome: OutcomeBlocked, Reason: "blocklist"}, nil
	}

	entries, err := r.kb.FindByTicker(ctx, ticker)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge base lookup %s: %w", ticker, err)
	}
	if c := r.pickEntry(entries, ScoreKnowledgeTicker, log); c != nil {
		return Result{Candidate: c, Outcome: OutcomeResolved}, nil
	}

	if r.searcher == nil {
		return Result{Outcome: OutcomeMiss, Reason: "not_in_knowledge_base"}, nil
	}

	return r.searchExternal(ctx, req, ticker, ScoreExternalTicker, func(m market.TokenMatch) bool {
		return strings.EqualFold(m.Symbol, ticker)
	}, log)
}

func (r *Resolver) resolvePhrase(ctx context.Context, req Request) (Result, error) {
	phrase := strings.ToLower(strings.TrimSpace(req.Key))
	log := r.log.WithField("phrase", phrase)

	if len([]rune(phrase)) < r.minPhrase {
		log.Debug("phrase too short to resolve")
		return Result{Outcome: OutcomeRejected, Reason: "too_short"}, nil
	}
	if _, blocked := r.blocklist[strings.ToUpper(phrase)]; blocked {
		return Result{Outcome: OutcomeBlocked, Reason: "blocklist"}, nil
	}

	exact, err := r.kb.FindByName(ctx, phrase)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge base name lookup %s: %w", phrase, err)
	}
	if c := r.pickEntry(exact, ScorePhraseExact, log); c != nil {
		return Result{Candidate: c, Outcome: OutcomeResolved}, nil
	}

	partial, err := r.kb.SearchByName(ctx, phrase, substringLimit)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge base name search %s: %w", phrase, err)
	}
	if c := r.pickEntry(partial, ScorePhraseSubstring, log); c != nil {
		return Result{Candidate: c, Outcome: OutcomeResolved}, nil
	}

	if r.searcher == nil || !r.phraseSearch {
		return Result{Outcome: OutcomeMiss, Reason: "not_in_knowledge_base"}, nil
	}

	return r.searchExternal(ctx, req, phrase, ScoreExternalPhrase, func(m market.TokenMatch) bool {
		return strings.Contains(strings.ToLower(m.Name), phrase)
	}, log)
}

// pickEntry returns the first knowledge-base entry, in store order, whose
// address is valid and, in strict mode, whose metadata is complete.
func (r *Resolver) pickEntry(entries []*domain.KnowledgeBaseEntry, score int, log logrus.FieldLogger) *Candidate {
	for _, e := range entries {
		if !solana.IsValidAddress(e.ContractAddress) {
			log.WithField("address", e.ContractAddress).Debug("skipping knowledge base entry with invalid address")
			continue
		}
		name := deref(e.TokenName)
		if r.strict && (isPlaceholder(e.TokenTicker) || isPlaceholder(name)) {
			log.WithField("address", e.ContractAddress).Debug("skipping incomplete knowledge base entry")
			continue
		}
		return &Candidate{
			ContractAddress:    e.ContractAddress,
			TokenTicker:        e.TokenTicker,
			TokenName:          name,
			PrimaryPoolAddress: deref(e.PrimaryPoolAddress),
			Score:              score,
			FromKnowledgeBase:  true,
		}
	}
	return nil
}

// searchExternal runs token search across the configured networks in order.
// The first network yielding an acceptable match wins and is written to the knowledge base.
func (r *Resolver) searchExternal(ctx context.Context, req Request, query string, score int, accept func(market.TokenMatch) bool, log logrus.FieldLogger) (Result, error) {
	var unavailable, rejected bool
	var rejectReason string

	for _, network := range r.networks {
		matches, err := r.searcher.SearchTokens(ctx, network, query)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if !errors.Is(err, gateway.ErrUnavailable) {
				log.WithError(err).WithField("network", network).Warn("token search failed")
			}
			unavailable = true
			continue
		}

		var found []market.TokenMatch
		for _, m := range matches {
			if accept(m) && solana.IsValidAddress(m.Address) {
				found = append(found, m)
			}
		}
		if len(found) == 0 {
			continue
		}

		// Deepest pool first; ties keep search order.
		sort.SliceStable(found, func(i, j int) bool {
			return found[i].ReservesUSD > found[j].ReservesUSD
		})

		for _, m := range found {
			if reason := r.incomplete(m); reason != "" {
				log.WithFields(logrus.Fields{
					"address": m.Address,
					"network": network,
					"reason":  reason,
				}).Warn("rejecting incomplete token metadata")
				rejected = true
				rejectReason = reason
				continue
			}

			c, err := r.remember(ctx, req, network, m, score)
			if err != nil {
				return Result{}, err
			}
			log.WithFields(logrus.Fields{"address": c.ContractAddress, "network": network}).Info("resolved via token search")
			return Result{Candidate: c, Outcome: OutcomeResolved}, nil
		}
	}

	switch {
	case rejected:
		return Result{Outcome: OutcomeRejected, Reason: rejectReason}, nil
	case unavailable:
		return Result{Outcome: OutcomeUnavailable, Reason: "search_unavailable"}, nil
	default:
		return Result{Outcome: OutcomeMiss, Reason: "not_found"}, nil
	}
}

// incomplete returns a rejection reason, or "" when m is acceptable.
// A symbol is always required since it keys the knowledge base; a name only in strict mode.
func (r *Resolver) incomplete(m market.TokenMatch) string {
	switch {
	case isPlaceholder(m.Symbol):
		return "missing_symbol"
	case r.strict && isPlaceholder(m.Name):
		return "missing_name"
	}
	return ""
}

// remember upserts the mapping and returns the candidate built from the stored row.
func (r *Resolver) remember(ctx context.Context, req Request, network string, m market.TokenMatch, score int) (*Candidate, error) {
	entry := &domain.KnowledgeBaseEntry{
		TokenTicker:        strings.ToUpper(m.Symbol),
		ContractAddress:    m.Address,
		TokenName:          optional(m.Name),
		PrimaryPoolAddress: optional(m.PoolAddress),
		Source:             optional(KnowledgeSource),
		Network:            optional(network),
		FirstSeenPostID:    optional(req.PostID),
		UpdatedAt:          r.now().UnixMilli(),
	}
	if isPlaceholder(m.Name) {
		entry.TokenName = nil
	}

	stored, err := r.kb.Upsert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("knowledge base upsert %s: %w", entry.TokenTicker, err)
	}

	return &Candidate{
		ContractAddress:    stored.ContractAddress,
		TokenTicker:        stored.TokenTicker,
		TokenName:          deref(stored.TokenName),
		PrimaryPoolAddress: deref(stored.PrimaryPoolAddress),
		Score:              score,
	}, nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(t), "$"))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
