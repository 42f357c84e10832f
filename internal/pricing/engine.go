// Package pricing discovers the historical USD price of a token at a point in time
// by ranking its pools and walking a widening OHLCV ladder.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/gateway"
	"solana-mention-tracker/internal/market"
	"solana-mention-tracker/internal/observability"
	"solana-mention-tracker/internal/solana"
	"solana-mention-tracker/internal/storage"
)

// Defaults.
const (
	DefaultPoolCandidates = 3
	DefaultGracePeriod    = 90 * time.Second
	DefaultNetwork        = "solana"

	snapshotSourcePrefix = "geckoterminal:"
)

// Status is the outcome of a price lookup.
type Status string

const (
	StatusPriced        Status = "priced"
	StatusTooFresh      Status = "too_fresh"      // inside the grace period, nothing was fetched
	StatusNoPools       Status = "no_pools"       // token has no pools, no OHLCV call was made
	StatusUnavailable   Status = "unavailable"    // every pool and window missed, or upstream failed
	StatusAlreadyPriced Status = "already_priced" // write-once price already set
	StatusExcluded      Status = "excluded"
	StatusNoAddress     Status = "no_address" // mention key is not a contract address
)

// Window is one step of the OHLCV ladder.
type Window struct {
	Timeframe  market.Timeframe
	Aggregate  int
	Span       time.Duration // a candle is accepted when ts - candleTs < Span
	Confidence int
	Label      string
}

// DefaultLadder is tried per pool in order: 1m, 5m, 1d.
var DefaultLadder = []Window{
	{Timeframe: market.TimeframeMinute, Aggregate: 1, Span: time.Minute, Confidence: 100, Label: "1m"},
	{Timeframe: market.TimeframeMinute, Aggregate: 5, Span: 5 * time.Minute, Confidence: 90, Label: "5m"},
	{Timeframe: market.TimeframeDay, Aggregate: 1, Span: 24 * time.Hour, Confidence: 70, Label: "1d"},
}

// Market is the market-data surface the engine needs. Satisfied by *market.Client.
type Market interface {
	ListPools(ctx context.Context, network, token string) ([]domain.PoolCandidate, error)
	LatestCandle(ctx context.Context, network, pool string, tf market.Timeframe, aggregate int, atMs int64) (*market.Candle, error)
}

// Quote is a discovered price.
type Quote struct {
	ContractAddress string
	PoolAddress     string
	PriceUSD        decimal.Decimal // rounded to domain.PriceDecimals
	CandleAt        int64           // candle timestamp (ms)
	Window          Window
}

// Result is the outcome of a lookup. Quote is nil unless Status is StatusPriced.
type Result struct {
	Status Status
	Quote  *Quote
}

// Priced reports whether a price was found.
func (r Result) Priced() bool {
	return r.Status == StatusPriced && r.Quote != nil
}

// Options configures Engine.
type Options struct {
	Market         Market
	Mentions       storage.MentionStore       // required by PriceMention
	Snapshots      storage.PriceSnapshotStore // nil disables snapshot history
	Network        string
	PoolCandidates int
	GracePeriod    time.Duration // negative disables the grace check
	Ladder         []Window
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// Engine is the price discovery engine.
type Engine struct {
	market     Market
	mentions   storage.MentionStore
	snapshots  storage.PriceSnapshotStore
	network    string
	candidates int
	grace      time.Duration
	ladder     []Window
	log        logrus.FieldLogger
	now        func() time.Time
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		market:     opts.Market,
		mentions:   opts.Mentions,
		snapshots:  opts.Snapshots,
		network:    opts.Network,
		candidates: opts.PoolCandidates,
		grace:      opts.GracePeriod,
		ladder:     opts.Ladder,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if e.network == "" {
		e.network = DefaultNetwork
	}
	if e.candidates <= 0 {
		e.candidates = DefaultPoolCandidates
	}
	if e.grace == 0 {
		e.grace = DefaultGracePeriod
	}
	if len(e.ladder) == 0 {
		e.ladder = DefaultLadder
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Network returns the default network used by PriceMention.
func (e *Engine) Network() string {
	return e.network
}

// PriceAt finds the USD price of address at tsMs on network.
// Upstream failures degrade to StatusUnavailable; the error is non-nil only when ctx is done.
func (e *Engine) PriceAt(ctx context.Context, network, address string, tsMs int64) (Result, error) {
	res, err := e.priceAt(ctx, network, address, tsMs)
	if err != nil {
		return Result{}, err
	}
	observability.RecordPricingOutcome(string(res.Status))
	return res, nil
}

func (e *Engine) priceAt(ctx context.Context, network, address string, tsMs int64) (Result, error) {
	if network == "" {
		network = e.network
	}
	log := e.log.WithFields(logrus.Fields{"address": address, "network": network})

	if e.grace > 0 && e.now().UnixMilli()-tsMs < e.grace.Milliseconds() {
		log.Debug("mention inside grace period")
		return Result{Status: StatusTooFresh}, nil
	}

	pools, err := e.market.ListPools(ctx, network, address)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		e.logUpstream(log, err, "list pools failed")
		return Result{Status: StatusUnavailable}, nil
	}

	ranked := RankPools(pools, e.candidates)
	if len(ranked) == 0 {
		log.Debug("token has no pools")
		return Result{Status: StatusNoPools}, nil
	}

	for _, pool := range ranked {
		q, err := e.walkLadder(ctx, network, address, pool.Address, tsMs, log.WithField("pool", pool.Address))
		if err != nil {
			return Result{}, err
		}
		if q != nil {
			return Result{Status: StatusPriced, Quote: q}, nil
		}
	}

	log.Debug("no candle found in any pool")
	return Result{Status: StatusUnavailable}, nil
}

// walkLadder returns the first accepted candle for one pool, or nil when every window misses.
func (e *Engine) walkLadder(ctx context.Context, network, address, pool string, tsMs int64, log logrus.FieldLogger) (*Quote, error) {
	for _, w := range e.ladder {
		candle, err := e.market.LatestCandle(ctx, network, pool, w.Timeframe, w.Aggregate, tsMs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logUpstream(log.WithField("window", w.Label), err, "ohlcv lookup failed")
			continue
		}
		if candle == nil || candle.Timestamp > tsMs || tsMs-candle.Timestamp >= w.Span.Milliseconds() {
			continue
		}
		return &Quote{
			ContractAddress: address,
			PoolAddress:     pool,
			PriceUSD:        domain.RoundPrice(candle.Close),
			CandleAt:        candle.Timestamp,
			Window:          w,
		}, nil
	}
	return nil, nil
}

func (e *Engine) logUpstream(log logrus.FieldLogger, err error, msg string) {
	if errors.Is(err, gateway.ErrUnavailable) {
		log.WithError(err).Debug(msg)
		return
	}
	log.WithError(err).Warn(msg)
}

// PriceMention prices a stored mention at tsMs and writes the price once.
// A mention that is excluded, already priced, or keyed by something other than
// a contract address is left untouched.
func (e *Engine) PriceMention(ctx context.Context, m *domain.TokenMention, tsMs int64) (Result, error) {
	if e.mentions == nil {
		return Result{}, fmt.Errorf("price mention: %w", storage.ErrInvalidInput)
	}

	var status Status
	switch {
	case m.Excluded:
		status = StatusExcluded
	case m.HasPrice():
		status = StatusAlreadyPriced
	case !solana.IsValidAddress(m.TokenKey):
		status = StatusNoAddress
	}
	if status != "" {
		observability.RecordPricingOutcome(string(status))
		return Result{Status: status}, nil
	}

	res, err := e.PriceAt(ctx, e.network, m.TokenKey, tsMs)
	if err != nil || !res.Priced() {
		return res, err
	}

	nowMs := e.now().UnixMilli()
	stored, err := e.mentions.SetPriceIfNull(ctx, m.ID, res.Quote.PriceUSD, nowMs)
	if err != nil {
		return Result{}, fmt.Errorf("store price for mention %s: %w", m.ID, err)
	}
	if !stored {
		return Result{Status: StatusAlreadyPriced}, nil
	}
	price := res.Quote.PriceUSD
	m.PriceUSDAt = &price
	m.UpdatedAt = nowMs

	if e.snapshots != nil {
		snap := &domain.PriceSnapshot{
			ContractAddress: res.Quote.ContractAddress,
			PoolAddress:     res.Quote.PoolAddress,
			PriceUSD:        res.Quote.PriceUSD,
			PriceAt:         res.Quote.CandleAt,
			Source:          snapshotSourcePrefix + res.Quote.Window.Label,
			Confidence:      res.Quote.Window.Confidence,
			CreatedAt:       nowMs,
		}
		if err := e.snapshots.Append(ctx, snap); err != nil {
			e.log.WithError(err).WithField("address", snap.ContractAddress).Warn("append price snapshot failed")
		}
	}

	return res, nil
}

// RankPools orders pools by score descending and keeps the top n.
// Pools without an address are dropped; ties keep listing order.
func RankPools(pools []domain.PoolCandidate, n int) []domain.PoolCandidate {
	ranked := make([]domain.PoolCandidate, 0, len(pools))
	for _, p := range pools {
		if p.Address != "" {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
