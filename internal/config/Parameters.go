/*

This file contains the default fee parameters for the market maker.

These values are the operational baseline used when no active parameter set
is found in the database at startup. Each value has been chosen to keep the
quoted spread competitive while still widening defensively under volatility
and inventory pressure.

*/

package config

import (
	"time"

	"github.com/quantrafi/dmm/internal/types"
)

// DefaultFeeConfig provides the baseline fee schedule for the pricing engine.
// These values are used if no active parameter set is found in the database
// during initialization.
var DefaultFeeConfig = types.FeeConfig{
	// --- Fee Bounds (basis points) ---
	BaseBidFee: 10, // 0.10% baseline on sells.
	BaseAskFee: 10, // 0.10% baseline on buys.

	MinFee: 1, // Never quote below 0.01%. A zero floor would let heavy
	// one-sided skew discount a side to free, inviting flow that only
	// worsens the imbalance.

	MaxFee: 200, // 2.00% hard cap. Beyond this the quote is effectively a
	// refusal to trade; volatility spikes should widen the spread, not
	// produce absurd prices.

	// --- Adjustment Multipliers (100 = 1x) ---
	VolatilityMultiplier: 100, // Pass volatility through at face value:
	// each 1% oracle move between samples adds 10 bps to both sides.

	InventoryMultiplier: 100, // Each 10,000 units of net skew shifts the
	// affected side by 100 bps before clamping.

	// --- Staleness ---
	VolatilityWindow: 1 * time.Hour, // Samples older than this contribute
	// no volatility adjustment. Matches the daemon's refresh cadence with
	// headroom for a missed cycle.
}
