package resolver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/gateway"
	"solana-mention-tracker/internal/market"
	"solana-mention-tracker/internal/storage/memory"
)

const (
	popcatMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
	usdcMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	usdtMint   = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]market.TokenMatch // keyed by network|query
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) SearchTokens(_ context.Context, network, query string) ([]market.TokenMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := network + "|" + query
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.results[key], nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newResolver(kb *memory.KnowledgeBaseStore, s Searcher) *Resolver {
	log, _ := test.NewNullLogger()
	return New(Options{
		KnowledgeBase:        kb,
		Searcher:             s,
		Networks:             []string{"solana"},
		Strict:               true,
		ExternalPhraseSearch: true,
		Logger:               log,
		Now:                  func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func TestResolveTicker_BlocklistWinsOverKnowledgeBase(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	_, err := kb.Upsert(context.Background(), &domain.KnowledgeBaseEntry{
		TokenTicker: "USDC", ContractAddress: usdcMint, TokenName: strPtr("USD Coin"), Priority: intPtr(100),
	})
	require.NoError(t, err)

	searcher := &fakeSearcher{}
	r := newResolver(kb, searcher)

	for _, ticker := range []string{"$SOL", "usdc", "USDT"} {
		res, err := r.ResolveTicker(context.Background(), ticker)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBlocked, res.Outcome, ticker)
		assert.Nil(t, res.Candidate)
	}
	assert.Zero(t, searcher.callCount())
}

func TestResolveTicker_KnowledgeBaseByPriority(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	ctx := context.Background()
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "POPCAT", ContractAddress: usdtMint, TokenName: strPtr("Imposter"), UpdatedAt: 9000})
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "POPCAT", ContractAddress: popcatMint, TokenName: strPtr("Popcat"), Priority: intPtr(10), UpdatedAt: 1})

	searcher := &fakeSearcher{}
	r := newResolver(kb, searcher)

	first, err := r.ResolveTicker(ctx, "$popcat")
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, first.Outcome)
	assert.Equal(t, popcatMint, first.Candidate.ContractAddress)
	assert.Equal(t, ScoreKnowledgeTicker, first.Candidate.Score)
	assert.True(t, first.Candidate.FromKnowledgeBase)

	// Determinism: same answer against an unchanged knowledge base.
	second, err := r.ResolveTicker(ctx, "POPCAT")
	require.NoError(t, err)
	assert.Equal(t, first.Candidate.ContractAddress, second.Candidate.ContractAddress)
	assert.Zero(t, searcher.callCount())
}

func TestResolveTicker_SkipsInvalidAndPlaceholderEntries(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	ctx := context.Background()
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "WIF", ContractAddress: "not-an-address", TokenName: strPtr("dogwifhat"), Priority: intPtr(50)})
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "WIF", ContractAddress: usdtMint, TokenName: strPtr("unknown"), Priority: intPtr(40)})
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "WIF", ContractAddress: popcatMint, TokenName: strPtr("dogwifhat"), Priority: intPtr(1)})

	r := newResolver(kb, nil)
	res, err := r.ResolveTicker(ctx, "WIF")
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, popcatMint, res.Candidate.ContractAddress)
}

func TestResolveTicker_ExternalHitIsRemembered(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	searcher := &fakeSearcher{results: map[string][]market.TokenMatch{
		"solana|POPCAT": {
			{Address: usdtMint, Symbol: "POPCATX", Name: "Other"},
			{Address: popcatMint, Symbol: "popcat", Name: "Popcat", PoolAddress: "PoolA", ReservesUSD: 1000},
		},
	}}
	r := newResolver(kb, searcher)
	ctx := context.Background()

	res, err := r.Resolve(ctx, Request{Source: domain.SourceTicker, Key: "$POPCAT", PostID: "post-1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, popcatMint, res.Candidate.ContractAddress)
	assert.Equal(t, "POPCAT", res.Candidate.TokenTicker)
	assert.Equal(t, ScoreExternalTicker, res.Candidate.Score)
	assert.False(t, res.Candidate.FromKnowledgeBase)

	entries, err := kb.FindByTicker(ctx, "POPCAT")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Popcat", *entries[0].TokenName)
	assert.Equal(t, "PoolA", *entries[0].PrimaryPoolAddress)
	assert.Equal(t, "post-1", *entries[0].FirstSeenPostID)
	assert.Equal(t, KnowledgeSource, *entries[0].Source)
	assert.Equal(t, int64(1700000000000), entries[0].UpdatedAt)

	// Second resolution is served by the knowledge base.
	res, err = r.ResolveTicker(ctx, "POPCAT")
	require.NoError(t, err)
	assert.True(t, res.Candidate.FromKnowledgeBase)
	assert.Equal(t, 1, searcher.callCount())
}

func TestResolveTicker_StrictRejectsMissingName(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	searcher := &fakeSearcher{results: map[string][]market.TokenMatch{
		"solana|GHOST": {{Address: popcatMint, Symbol: "GHOST", Name: "unknown"}},
	}}
	r := newResolver(kb, searcher)
	ctx := context.Background()

	res, err := r.ResolveTicker(ctx, "GHOST")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, "missing_name", res.Reason)
	assert.Nil(t, res.Candidate)

	entries, _ := kb.FindByTicker(ctx, "GHOST")
	assert.Empty(t, entries, "strict mode never writes placeholder rows")
}

func TestResolveTicker_PermissiveAcceptsMissingName(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	searcher := &fakeSearcher{results: map[string][]market.TokenMatch{
		"solana|GHOST": {{Address: popcatMint, Symbol: "GHOST", Name: ""}},
	}}
	log, _ := test.NewNullLogger()
	r := New(Options{KnowledgeBase: kb, Searcher: searcher, Strict: false, Logger: log})

	res, err := r.ResolveTicker(context.Background(), "GHOST")
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, res.Outcome)

	entries, _ := kb.FindByTicker(context.Background(), "GHOST")
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].TokenName)
}

func TestResolveTicker_MissAndUnavailable(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	searcher := &fakeSearcher{
		results: map[string][]market.TokenMatch{},
		errs: map[string]error{
			"solana|DOWN": fmt.Errorf("search tokens: %w", gateway.ErrUnavailable),
		},
	}
	r := newResolver(kb, searcher)
	ctx := context.Background()

	res, err := r.ResolveTicker(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)

	res, err = r.ResolveTicker(ctx, "DOWN")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
}

func TestResolveTicker_NetworksInOrder(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	searcher := &fakeSearcher{results: map[string][]market.TokenMatch{
		"eclipse|POPCAT": {{Address: popcatMint, Symbol: "POPCAT", Name: "Popcat"}},
	}}
	log, _ := test.NewNullLogger()
	r := New(Options{KnowledgeBase: kb, Searcher: searcher, Strict: true, Networks: []string{"solana", "eclipse"}, Logger: log})

	res, err := r.ResolveTicker(context.Background(), "POPCAT")
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, []string{"solana|POPCAT", "eclipse|POPCAT"}, searcher.calls)

	entries, _ := kb.FindByTicker(context.Background(), "POPCAT")
	require.Len(t, entries, 1)
	assert.Equal(t, "eclipse", *entries[0].Network)
}

func TestResolvePhrase(t *testing.T) {
	kb := memory.NewKnowledgeBaseStore()
	ctx := context.Background()
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "UNSTABLE", ContractAddress: popcatMint, TokenName: strPtr("Unstable"), UpdatedAt: 1})
	_, _ = kb.Upsert(ctx, &domain.KnowledgeBaseEntry{TokenTicker: "MOODENG", ContractAddress: usdtMint, TokenName: strPtr("Moo Deng Official"), UpdatedAt: 1})

	searcher := &fakeSearcher{results: map[string][]market.TokenMatch{
		"solana|catwifhat": {{Address: usdcMint, Symbol: "CWH", Name: "CatWifHat", PoolAddress: "PoolC"}},
	}}
	r := newResolver(kb, searcher)

	t.Run("exact name", func(t *testing.T) {
		res, err := r.ResolvePhrase(ctx, "UNSTABLE")
		require.NoError(t, err)
		require.Equal(t, OutcomeResolved, res.Outcome)
		assert.Equal(t, popcatMint, res.Candidate.ContractAddress)
		assert.Equal(t, ScorePhraseExact, res.Candidate.Score)
	})

	t.Run("substring", func(t *testing.T) {
		res, err := r.ResolvePhrase(ctx, "moo deng")
		require.NoError(t, err)
		require.Equal(t, OutcomeResolved, res.Outcome)
		assert.Equal(t, ScorePhraseSubstring, res.Candidate.Score)
	})

	t.Run("external name search", func(t *testing.T) {
		res, err := r.ResolvePhrase(ctx, "catwifhat")
		require.NoError(t, err)
		require.Equal(t, OutcomeResolved, res.Outcome)
		assert.Equal(t, "CWH", res.Candidate.TokenTicker)
		assert.Equal(t, ScoreExternalPhrase, res.Candidate.Score)
	})

	t.Run("too short", func(t *testing.T) {
		before := searcher.callCount()
		res, err := r.ResolvePhrase(ctx, "cat")
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, res.Outcome)
		assert.Equal(t, "too_short", res.Reason)
		assert.Equal(t, before, searcher.callCount())
	})
}

func TestResolve_InvalidSource(t *testing.T) {
	r := newResolver(memory.NewKnowledgeBaseStore(), nil)
	_, err := r.Resolve(context.Background(), Request{Source: domain.SourceContract, Key: popcatMint})
	assert.Error(t, err)
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"", " ", "Unknown", "N/A", "null", "-"} {
		assert.True(t, isPlaceholder(s), s)
	}
	for _, s := range []string{"Popcat", "dogwifhat", "0"} {
		assert.False(t, isPlaceholder(s), s)
	}
}
