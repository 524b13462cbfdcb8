/*

This file implements the dynamic fee pricing engine. It owns the fee bounds,
the volatility price sample and the running inventory skew, and is the sole
price-adjustment authority for its market from construction onward.

Sign convention for skew: positive skew means the desk is net long the base
asset. A long desk wants more sells than buys, so positive skew discounts
bid-side (sell) fees and surcharges ask-side (buy) fees; negative skew
reverses the roles.

*/

package pricing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/oracle"
	"github.com/quantrafi/dmm/internal/types"
)

var (
	// ErrInvalidSample is returned when a refresh reads a zero or otherwise
	// unusable oracle price. The tracked sample is therefore always
	// strictly positive.
	ErrInvalidSample = errors.New("oracle reading unusable as price sample")
)

var (
	hundred     = sdkmath.NewInt(100)
	tenThousand = sdkmath.NewInt(10000)
	ten         = sdkmath.NewInt(10)
)

// side selects which half of the fee schedule a quote is for.
type side int

const (
	bidSide side = iota
	askSide
)

// Config holds the dependencies and initial state for creating an Engine.
type Config struct {
	Oracle    oracle.PriceSource
	Owner     string // identity allowed to mutate fee parameters
	FeeConfig types.FeeConfig

	// Reporter is the identity allowed to refresh the price sample and
	// report inventory deltas (normally the settlement coordinator). Leave
	// empty to keep both mutators unrestricted, matching the reference
	// system's open behavior.
	Reporter string

	// Clock overrides the time source for staleness checks. Defaults to
	// time.Now.
	Clock func() time.Time
}

// Engine is the stateful fee calculator. All state is owned exclusively by
// the engine and mutated under a single lock, so concurrent readers only
// ever observe fully-committed states.
type Engine struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	oracle   oracle.PriceSource
	owner    string
	reporter string
	now      func() time.Time

	cfg    types.FeeConfig
	sample types.PriceSample

	// skew is the net directional exposure accumulated from trade flow.
	// sdkmath.Int is arbitrary precision, so unbounded growth cannot
	// silently wrap the way a native 64-bit counter would.
	skew sdkmath.Int
}

// NewEngine creates a pricing engine with the given initial bounds. The
// engine is created once per market and never replaced afterwards.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("pricing engine requires a price source")
	}
	if cfg.Owner == "" {
		return nil, errors.New("pricing engine requires an owner identity")
	}
	if err := cfg.FeeConfig.ValidateBounds(); err != nil {
		return nil, fmt.Errorf("initial fee config rejected: %w", err)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		logger:   logger.GetForComponent("pricing_engine"),
		oracle:   cfg.Oracle,
		owner:    cfg.Owner,
		reporter: cfg.Reporter,
		now:      now,
		cfg:      cfg.FeeConfig,
		skew:     sdkmath.ZeroInt(),
	}

	e.logger.Info().
		Uint64("baseBidFee", cfg.FeeConfig.BaseBidFee).
		Uint64("baseAskFee", cfg.FeeConfig.BaseAskFee).
		Uint64("minFee", cfg.FeeConfig.MinFee).
		Uint64("maxFee", cfg.FeeConfig.MaxFee).
		Msg("Pricing engine initialized")
	return e, nil
}

// QuoteBidFee returns the sell-side fee in basis points for a trade of the
// given size. tradeSize is reserved for size-dependent slippage and is
// currently unused.
func (e *Engine) QuoteBidFee(instrument types.InstrumentID, tradeSize sdkmath.Int) (uint64, error) {
	return e.quoteFee(instrument, bidSide)
}

// QuoteAskFee returns the buy-side fee in basis points for a trade of the
// given size. tradeSize is reserved for size-dependent slippage and is
// currently unused.
func (e *Engine) QuoteAskFee(instrument types.InstrumentID, tradeSize sdkmath.Int) (uint64, error) {
	return e.quoteFee(instrument, askSide)
}

func (e *Engine) quoteFee(instrument types.InstrumentID, s side) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	base := e.cfg.BaseBidFee
	if s == askSide {
		base = e.cfg.BaseAskFee
	}

	volAdj, err := e.volatilityAdjustment(instrument)
	if err != nil {
		return 0, err
	}

	fee := sdkmath.NewIntFromUint64(base).
		Add(volAdj.Mul(sdkmath.NewIntFromUint64(e.cfg.VolatilityMultiplier)).Quo(hundred))

	skewTerm := e.skew.Abs().
		Mul(sdkmath.NewIntFromUint64(e.cfg.InventoryMultiplier)).
		Quo(tenThousand)

	// Positive skew discounts the side that reduces exposure and surcharges
	// the side that adds to it; negative skew mirrors the roles.
	discount := (s == bidSide) == e.skew.IsPositive()
	if e.skew.IsZero() {
		skewTerm = sdkmath.ZeroInt()
	} else if discount {
		fee = fee.Sub(skewTerm)
	} else {
		fee = fee.Add(skewTerm)
	}

	return e.clampFee(fee), nil
}

// clampFee bounds a raw fee into [MinFee, MaxFee].
func (e *Engine) clampFee(fee sdkmath.Int) uint64 {
	min := sdkmath.NewIntFromUint64(e.cfg.MinFee)
	max := sdkmath.NewIntFromUint64(e.cfg.MaxFee)
	if fee.LT(min) {
		return e.cfg.MinFee
	}
	if fee.GT(max) {
		return e.cfg.MaxFee
	}
	return fee.Uint64()
}

// volatilityAdjustment returns the volatility component of the fee in basis
// points: each 1% move of the oracle price against the tracked sample adds
// 10 bps. A missing or stale sample contributes nothing.
//
// Callers must hold at least the read lock.
func (e *Engine) volatilityAdjustment(instrument types.InstrumentID) (sdkmath.Int, error) {
	if e.sample.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if e.now().Sub(e.sample.UpdatedAt) > e.cfg.VolatilityWindow {
		return sdkmath.ZeroInt(), nil
	}

	current, err := e.oracle.GetPrice(instrument)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("volatility adjustment unavailable: %w", err)
	}

	// sample.LastPrice is positive by construction: RefreshPriceSample
	// rejects non-positive readings.
	changeBps := current.Sub(e.sample.LastPrice).Abs().
		Mul(tenThousand).
		Quo(e.sample.LastPrice)

	return changeBps.Quo(ten), nil
}

// RefreshPriceSample overwrites the tracked price sample with the current
// oracle reading. The sample is never updated implicitly during a fee
// query.
func (e *Engine) RefreshPriceSample(caller string, instrument types.InstrumentID) error {
	if err := e.checkReporter(caller); err != nil {
		return err
	}

	price, err := e.oracle.GetPrice(instrument)
	if err != nil {
		return fmt.Errorf("price sample refresh failed: %w", err)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidSample, price.String())
	}

	e.mu.Lock()
	e.sample = types.PriceSample{
		LastPrice: price,
		UpdatedAt: e.now(),
	}
	e.mu.Unlock()

	e.logger.Debug().
		Str("price", price.String()).
		Uint32("instrument", uint32(instrument)).
		Msg("Price sample refreshed")
	return nil
}

// ReportInventoryDelta adds a signed trade-size delta to the inventory
// skew. There is no bounds check: skew is a pressure signal, not a hard
// limit, and the arbitrary-precision representation makes growth safe.
func (e *Engine) ReportInventoryDelta(caller string, delta sdkmath.Int) error {
	if err := e.checkReporter(caller); err != nil {
		return err
	}

	e.mu.Lock()
	e.skew = e.skew.Add(delta)
	after := e.skew
	e.mu.Unlock()

	e.logger.Debug().
		Str("delta", delta.String()).
		Str("skew", after.String()).
		Msg("Inventory delta reported")
	return nil
}

// UpdateFeeConfig atomically replaces the four fee-bound fields. The
// multipliers and volatility window are untouched; see UpdateMultipliers
// and UpdateVolatilityWindow.
func (e *Engine) UpdateFeeConfig(caller string, newCfg types.FeeConfig) error {
	if caller != e.owner {
		return types.ErrUnauthorized
	}
	if err := newCfg.ValidateBounds(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg.BaseBidFee = newCfg.BaseBidFee
	e.cfg.BaseAskFee = newCfg.BaseAskFee
	e.cfg.MinFee = newCfg.MinFee
	e.cfg.MaxFee = newCfg.MaxFee
	e.mu.Unlock()

	e.logger.Info().
		Uint64("baseBidFee", newCfg.BaseBidFee).
		Uint64("baseAskFee", newCfg.BaseAskFee).
		Uint64("minFee", newCfg.MinFee).
		Uint64("maxFee", newCfg.MaxFee).
		Msg("Fee bounds updated")
	return nil
}

// UpdateMultipliers unconditionally replaces both adjustment multipliers.
// No bounds validation is applied, matching the reference behavior.
func (e *Engine) UpdateMultipliers(caller string, volatilityMultiplier, inventoryMultiplier uint64) error {
	if caller != e.owner {
		return types.ErrUnauthorized
	}

	e.mu.Lock()
	e.cfg.VolatilityMultiplier = volatilityMultiplier
	e.cfg.InventoryMultiplier = inventoryMultiplier
	e.mu.Unlock()

	e.logger.Info().
		Uint64("volatilityMultiplier", volatilityMultiplier).
		Uint64("inventoryMultiplier", inventoryMultiplier).
		Msg("Fee multipliers updated")
	return nil
}

// UpdateVolatilityWindow replaces the staleness window for price samples.
func (e *Engine) UpdateVolatilityWindow(caller string, window time.Duration) error {
	if caller != e.owner {
		return types.ErrUnauthorized
	}

	e.mu.Lock()
	e.cfg.VolatilityWindow = window
	e.mu.Unlock()

	e.logger.Info().Dur("window", window).Msg("Volatility window updated")
	return nil
}

// checkReporter enforces the reporter binding on the open mutators. An
// empty binding leaves them unrestricted for reference parity.
func (e *Engine) checkReporter(caller string) error {
	if e.reporter != "" && caller != e.reporter && caller != e.owner {
		return types.ErrUnauthorized
	}
	return nil
}

// AcceptsReporter reports whether the identity may drive the price sample
// and inventory skew mutators. The binding is fixed at construction, so
// the answer never changes over the engine's lifetime.
func (e *Engine) AcceptsReporter(caller string) bool {
	return e.checkReporter(caller) == nil
}

// FeeConfig returns a copy of the current fee configuration.
func (e *Engine) FeeConfig() types.FeeConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// PriceSample returns a copy of the tracked price sample.
func (e *Engine) PriceSample() types.PriceSample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sample
}

// InventorySkew returns the current net directional exposure.
func (e *Engine) InventorySkew() sdkmath.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.skew
}
