// Package market reads pools, OHLCV candles and token search results from the
// GeckoTerminal public API. All requests go through a shared Fetcher so they
// draw from one rate budget.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/gateway"
)

// DefaultBaseURL is the GeckoTerminal v2 API root.
const DefaultBaseURL = "https://api.geckoterminal.com/api/v2"

// Fetcher performs GET requests and decodes JSON. Satisfied by *gateway.Gateway.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Timeframe is an OHLCV candle period understood by the API.
type Timeframe string

const (
	TimeframeMinute Timeframe = "minute"
	TimeframeHour   Timeframe = "hour"
	TimeframeDay    Timeframe = "day"
)

// Candle is a single OHLCV row reduced to what pricing needs.
type Candle struct {
	Timestamp int64           // candle open time (ms)
	Close     decimal.Decimal // close price in USD
}

// TokenMatch is a token found by search, with the pool it was found through.
type TokenMatch struct {
	Address     string
	Symbol      string
	Name        string
	Network     string
	PoolAddress string
	ReservesUSD float64
}

// Client is a GeckoTerminal API client.
type Client struct {
	fetcher Fetcher
	baseURL string
	log     logrus.FieldLogger
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(fetcher Fetcher, baseURL string, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// ListPools returns the pools trading token on network.
// An unknown token yields an empty list, not an error.
func (c *Client) ListPools(ctx context.Context, network, token string) ([]domain.PoolCandidate, error) {
	u := fmt.Sprintf("%s/networks/%s/tokens/%s/pools?page=1",
		c.baseURL, url.PathEscape(network), url.PathEscape(token))

	var resp poolsResponse
	if err := c.fetcher.GetJSON(ctx, u, &resp); err != nil {
		if gateway.IsNotFound(err) {
			c.log.WithFields(logrus.Fields{"network": network, "address": token}).Debug("token not indexed")
			return nil, nil
		}
		return nil, fmt.Errorf("list pools: %w", err)
	}

	pools := make([]domain.PoolCandidate, 0, len(resp.Data))
	for _, p := range resp.Data {
		address := p.Attributes.Address
		if address == "" {
			address = stripNetworkPrefix(p.ID)
		}
		if address == "" {
			continue
		}
		var dex string
		if p.Relations.Dex.Data != nil {
			dex = p.Relations.Dex.Data.ID
		}
		pools = append(pools, domain.PoolCandidate{
			Address:     address,
			DexID:       dex,
			ReservesUSD: float64(p.Attributes.ReserveInUSD),
			Volume24h:   float64(p.Attributes.VolumeUSD.H24),
		})
	}
	return pools, nil
}

// LatestCandle returns the most recent candle of the given timeframe and aggregate
// that opens at or before atMs, or nil when the pool has none.
func (c *Client) LatestCandle(ctx context.Context, network, pool string, tf Timeframe, aggregate int, atMs int64) (*Candle, error) {
	q := url.Values{}
	q.Set("aggregate", strconv.Itoa(aggregate))
	// before_timestamp is exclusive and in seconds
	q.Set("before_timestamp", strconv.FormatInt(atMs/1000+1, 10))
	q.Set("limit", "1")
	q.Set("currency", "usd")

	u := fmt.Sprintf("%s/networks/%s/pools/%s/ohlcv/%s?%s",
		c.baseURL, url.PathEscape(network), url.PathEscape(pool), tf, q.Encode())

	var resp ohlcvResponse
	if err := c.fetcher.GetJSON(ctx, u, &resp); err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch ohlcv: %w", err)
	}

	var best *Candle
	for _, row := range resp.Data.Attributes.OHLCVList {
		candle, ok := parseCandle(row)
		if !ok || candle.Timestamp > atMs {
			continue
		}
		if best == nil || candle.Timestamp > best.Timestamp {
			best = candle
		}
	}
	return best, nil
}

// SearchTokens searches pools on network by free text and returns their base tokens,
// deduplicated by address, in the order the API ranked them.
func (c *Client) SearchTokens(ctx context.Context, network, query string) ([]TokenMatch, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("network", network)
	q.Set("include", "base_token")
	q.Set("page", "1")

	u := fmt.Sprintf("%s/search/pools?%s", c.baseURL, q.Encode())

	var resp poolsResponse
	if err := c.fetcher.GetJSON(ctx, u, &resp); err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search tokens: %w", err)
	}

	tokens := make(map[string]tokenResource, len(resp.Included))
	for _, t := range resp.Included {
		tokens[t.ID] = t
	}

	seen := make(map[string]struct{})
	var matches []TokenMatch
	for _, p := range resp.Data {
		if p.Relations.BaseToken.Data == nil {
			continue
		}
		tok, ok := tokens[p.Relations.BaseToken.Data.ID]
		if !ok {
			continue
		}
		address := tok.Attributes.Address
		if address == "" {
			address = stripNetworkPrefix(tok.ID)
		}
		if _, dup := seen[address]; dup || address == "" {
			continue
		}
		seen[address] = struct{}{}

		matches = append(matches, TokenMatch{
			Address:     address,
			Symbol:      strings.TrimSpace(tok.Attributes.Symbol),
			Name:        strings.TrimSpace(tok.Attributes.Name),
			Network:     network,
			PoolAddress: p.Attributes.Address,
			ReservesUSD: float64(p.Attributes.ReserveInUSD),
		})
	}
	return matches, nil
}

// parseCandle reads [timestamp_s, open, high, low, close, volume].
func parseCandle(row []json.Number) (*Candle, bool) {
	if len(row) < 5 {
		return nil, false
	}
	ts, err := row[0].Int64()
	if err != nil {
		f, ferr := row[0].Float64()
		if ferr != nil {
			return nil, false
		}
		ts = int64(f)
	}
	closePrice, err := decimal.NewFromString(row[4].String())
	if err != nil || !closePrice.IsPositive() {
		return nil, false
	}
	return &Candle{Timestamp: ts * 1000, Close: closePrice}, true
}

func stripNetworkPrefix(id string) string {
	if i := strings.IndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}
