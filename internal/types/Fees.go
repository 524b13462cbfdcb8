/*

This is a custom type for the dynamic fee module which contains all the state
needed for quoting bid and ask fees.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// InstrumentID identifies a priced instrument on the oracle feed.
type InstrumentID uint32

// FeeConfig holds the fee bounds and adjustment multipliers of the pricing
// engine. All fees are expressed in basis points (1 bps = 0.01%).
type FeeConfig struct {
	BaseBidFee uint64 `json:"base_bid_fee"` // baseline sell-side fee, must be <= MaxFee
	BaseAskFee uint64 `json:"base_ask_fee"` // baseline buy-side fee, must be <= MaxFee
	MinFee     uint64 `json:"min_fee"`      // hard lower clamp on quoted fees
	MaxFee     uint64 `json:"max_fee"`      // hard upper clamp on quoted fees

	// Percentage-like scaling factors: 100 = 1x. Deliberately unvalidated on
	// update, matching the reference behavior.
	VolatilityMultiplier uint64 `json:"volatility_multiplier"`
	InventoryMultiplier  uint64 `json:"inventory_multiplier"`

	// VolatilityWindow is the age after which a price sample is considered
	// stale and contributes no volatility adjustment.
	VolatilityWindow time.Duration `json:"volatility_window"`
}

// ValidateBounds checks the fee-bound invariant: MinFee <= MaxFee and both
// base fees within MaxFee. The multipliers are intentionally not validated.
func (c FeeConfig) ValidateBounds() error {
	if c.MinFee > c.MaxFee {
		return ErrInvalidParameter
	}
	if c.BaseBidFee > c.MaxFee || c.BaseAskFee > c.MaxFee {
		return ErrInvalidParameter
	}
	return nil
}

// PriceSample is the last oracle reading tracked by the pricing engine.
// It is only ever overwritten by an explicit refresh, never implicitly
// during a fee query.
type PriceSample struct {
	LastPrice sdkmath.Int `json:"last_price"` // 1e8-scaled
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsZero reports whether no sample has been taken yet.
func (s PriceSample) IsZero() bool {
	return s.UpdatedAt.IsZero()
}

// FeeQuote is a point-in-time view of both sides of the fee schedule,
// served by the web API.
type FeeQuote struct {
	Instrument InstrumentID `json:"instrument"`
	BidFeeBps  uint64       `json:"bid_fee_bps"`
	AskFeeBps  uint64       `json:"ask_fee_bps"`
	BidPrice   sdkmath.Int  `json:"bid_price"` // 1e8-scaled
	AskPrice   sdkmath.Int  `json:"ask_price"` // 1e8-scaled
	SpreadBps  uint64       `json:"spread_bps"`
	Timestamp  time.Time    `json:"timestamp"`
}
