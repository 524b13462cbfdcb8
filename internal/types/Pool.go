/*

This is a custom type for the settlement coordinator's liquidity pool state
and the persisted records derived from it.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// TradeSide labels the direction of a settled swap from the trader's
// perspective.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeReceipt records the outcome of a single swap for persistence and
// the web API.
type TradeReceipt struct {
	ID         string      `json:"id"` // uuid
	Timestamp  time.Time   `json:"timestamp"`
	Trader     string      `json:"trader"`
	Side       TradeSide   `json:"side"`
	AmountIn   sdkmath.Int `json:"amount_in"`
	AmountOut  sdkmath.Int `json:"amount_out"`
	FeeBps     uint64      `json:"fee_bps"`
	ExecPrice  sdkmath.Int `json:"exec_price"` // 1e8-scaled bid/ask price applied
	SkewAfter  sdkmath.Int `json:"skew_after"`
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
}

// PoolSnapshot is a per-cycle view of the pool and the pricing engine,
// persisted by the daemon loop.
type PoolSnapshot struct {
	CycleNumber    int          `json:"cycle_number"`
	Timestamp      time.Time    `json:"timestamp"`
	Instrument     InstrumentID `json:"instrument"`
	OraclePrice    sdkmath.Int  `json:"oracle_price"` // 1e8-scaled
	BidPrice       sdkmath.Int  `json:"bid_price"`
	AskPrice       sdkmath.Int  `json:"ask_price"`
	BidFeeBps      uint64       `json:"bid_fee_bps"`
	AskFeeBps      uint64       `json:"ask_fee_bps"`
	SpreadBps      uint64       `json:"spread_bps"`
	TotalLiquidity sdkmath.Int  `json:"total_liquidity"`
	TotalShares    sdkmath.Int  `json:"total_shares"`
	InventorySkew  sdkmath.Int  `json:"inventory_skew"`
}

// PricePoint holds one historical oracle price observation, used for
// realized volatility analysis over stored snapshots.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
