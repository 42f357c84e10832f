package domain

import "github.com/shopspring/decimal"

// PriceDecimals is the fixed precision of every stored USD price.
const PriceDecimals = 8

// PriceSnapshot is an append-only record of a discovered historical price.
// Corresponds to price_snapshots table in ClickHouse.
type PriceSnapshot struct {
	ContractAddress string          // token mint address
	PoolAddress     string          // pool the candle came from
	PriceUSD        decimal.Decimal // candle close, 8 decimals
	PriceAt         int64           // candle timestamp (ms)
	Source          string          // e.g. geckoterminal:1m
	Confidence      int             // 0-100, lower for wider windows
	CreatedAt       int64           // record creation timestamp (ms)
}

// PoolCandidate is a liquidity pool considered for price lookup.
type PoolCandidate struct {
	Address     string  // pool address
	DexID       string  // dex identifier
	ReservesUSD float64 // on-chain USD reserves (0 when unknown)
	Volume24h   float64 // 24h volume in USD (0 when unknown)
}

// Score returns the ranking score: reserves, falling back to 24h volume.
func (p PoolCandidate) Score() float64 {
	if p.ReservesUSD > 0 {
		return p.ReservesUSD
	}
	return p.Volume24h
}

// RoundPrice fixes a price to PriceDecimals digits.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceDecimals)
}
