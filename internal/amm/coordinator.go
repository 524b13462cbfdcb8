/*

This file implements the quote/settlement coordinator. It owns the liquidity
pool share accounting, derives executable bid/ask prices by combining the
oracle price with the pricing engine's fees, settles swaps against the
value-transfer ledger, and feeds realized trade flow back into the engine's
inventory skew.

Settlement only moves the quote-token leg; no distinct base asset is
delivered on buys. That is the documented behavior of the reference system
and is preserved here.

*/

package amm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantrafi/dmm/internal/ledger"
	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/oracle"
	"github.com/quantrafi/dmm/internal/pricing"
	"github.com/quantrafi/dmm/internal/types"
)

var (
	tenThousand = sdkmath.NewInt(10000)
	priceScale  = sdkmath.NewInt(100_000_000) // 1e8, matches the oracle scale
)

// TradeRecorder receives settled (and rejected) trade receipts for
// persistence. Recording is observational only: a recorder must not be able
// to fail a swap.
type TradeRecorder interface {
	RecordTrade(receipt types.TradeReceipt)
}

// Config holds the dependencies for creating a Coordinator.
type Config struct {
	ID         string // identity used on calls into the pricing engine
	Engine     *pricing.Engine
	Oracle     oracle.PriceSource
	Transfers  ledger.TransferService
	Instrument types.InstrumentID

	// MinLiquidity is the pool floor: swaps halt and partial withdrawals
	// are rejected below it. A full drain to zero is always permitted.
	MinLiquidity sdkmath.Int

	// Recorder is optional; when set, every swap attempt produces a receipt.
	Recorder TradeRecorder
}

// Coordinator orchestrates liquidity accounting and swap settlement for a
// single trading pair. All mutations happen under one lock so every
// operation is all-or-nothing and readers only see committed states.
type Coordinator struct {
	mu     sync.Mutex
	logger zerolog.Logger

	id         string
	engine     *pricing.Engine
	oracle     oracle.PriceSource
	transfers  ledger.TransferService
	instrument types.InstrumentID
	recorder   TradeRecorder

	minLiquidity   sdkmath.Int
	totalShares    sdkmath.Int
	totalLiquidity sdkmath.Int
	shares         map[string]sdkmath.Int
}

// NewCoordinator creates a settlement coordinator over an empty pool.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Engine == nil {
		return nil, errors.New("coordinator requires a pricing engine")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("coordinator requires a price source")
	}
	if cfg.Transfers == nil {
		return nil, errors.New("coordinator requires a transfer service")
	}
	if cfg.ID == "" {
		return nil, errors.New("coordinator requires an identity")
	}
	if !cfg.Engine.AcceptsReporter(cfg.ID) {
		// Settlement reports inventory deltas after the transfer leg has
		// committed; a rejected report at that point would be a partial
		// state, so the binding is checked up front instead.
		return nil, errors.New("coordinator identity is not accepted as the pricing engine's reporter")
	}
	if cfg.MinLiquidity.IsNil() || cfg.MinLiquidity.IsNegative() {
		return nil, errors.New("coordinator requires a non-negative liquidity floor")
	}

	return &Coordinator{
		logger:         logger.GetForComponent("settlement"),
		id:             cfg.ID,
		engine:         cfg.Engine,
		oracle:         cfg.Oracle,
		transfers:      cfg.Transfers,
		instrument:     cfg.Instrument,
		recorder:       cfg.Recorder,
		minLiquidity:   cfg.MinLiquidity,
		totalShares:    sdkmath.ZeroInt(),
		totalLiquidity: sdkmath.ZeroInt(),
		shares:         make(map[string]sdkmath.Int),
	}, nil
}

// ID returns the coordinator's identity, used as the pricing engine's
// reporter binding.
func (c *Coordinator) ID() string {
	return c.id
}

// QuoteBidPrice returns the executable sell price:
// oraclePrice * (10000 - bidFee) / 10000, with a zero-trade-size fee query.
func (c *Coordinator) QuoteBidPrice() (sdkmath.Int, error) {
	price, _, err := c.sidePrice(bid)
	return price, err
}

// QuoteAskPrice returns the executable buy price:
// oraclePrice * (10000 + askFee) / 10000, with a zero-trade-size fee query.
func (c *Coordinator) QuoteAskPrice() (sdkmath.Int, error) {
	price, _, err := c.sidePrice(ask)
	return price, err
}

// Spread returns (askPrice - bidPrice) * 10000 / bidPrice in basis points.
func (c *Coordinator) Spread() (uint64, error) {
	bidPrice, err := c.QuoteBidPrice()
	if err != nil {
		return 0, err
	}
	askPrice, err := c.QuoteAskPrice()
	if err != nil {
		return 0, err
	}
	return spreadBps(bidPrice, askPrice), nil
}

// Quote returns a full point-in-time view of both sides of the book.
func (c *Coordinator) Quote() (types.FeeQuote, error) {
	bidPrice, bidFee, err := c.sidePrice(bid)
	if err != nil {
		return types.FeeQuote{}, err
	}
	askPrice, askFee, err := c.sidePrice(ask)
	if err != nil {
		return types.FeeQuote{}, err
	}
	return types.FeeQuote{
		Instrument: c.instrument,
		BidFeeBps:  bidFee,
		AskFeeBps:  askFee,
		BidPrice:   bidPrice,
		AskPrice:   askPrice,
		SpreadBps:  spreadBps(bidPrice, askPrice),
		Timestamp:  time.Now(),
	}, nil
}

type quoteSide int

const (
	bid quoteSide = iota
	ask
)

func (c *Coordinator) sidePrice(s quoteSide) (sdkmath.Int, uint64, error) {
	oraclePrice, err := c.oracle.GetPrice(c.instrument)
	if err != nil {
		return sdkmath.ZeroInt(), 0, fmt.Errorf("quote unavailable: %w", err)
	}

	var fee uint64
	if s == bid {
		fee, err = c.engine.QuoteBidFee(c.instrument, sdkmath.ZeroInt())
	} else {
		fee, err = c.engine.QuoteAskFee(c.instrument, sdkmath.ZeroInt())
	}
	if err != nil {
		return sdkmath.ZeroInt(), 0, fmt.Errorf("quote unavailable: %w", err)
	}

	return applyFeeToPrice(oraclePrice, fee, s), fee, nil
}

func applyFeeToPrice(oraclePrice sdkmath.Int, feeBps uint64, s quoteSide) sdkmath.Int {
	fee := sdkmath.NewIntFromUint64(feeBps)
	if s == bid {
		return oraclePrice.Mul(tenThousand.Sub(fee)).Quo(tenThousand)
	}
	return oraclePrice.Mul(tenThousand.Add(fee)).Quo(tenThousand)
}

func spreadBps(bidPrice, askPrice sdkmath.Int) uint64 {
	if !bidPrice.IsPositive() {
		return 0
	}
	return askPrice.Sub(bidPrice).Mul(tenThousand).Quo(bidPrice).Uint64()
}

// AddLiquidity pulls amount of quote-token value from the provider and
// credits pool shares: 1:1 for the first deposit, proportional afterwards.
func (c *Coordinator) AddLiquidity(provider string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var shares sdkmath.Int
	switch {
	case c.totalShares.IsZero():
		shares = amount
	case c.totalLiquidity.IsZero():
		// Shares outstanding over a fully drained pool: there is no
		// meaningful exchange rate to issue against.
		return sdkmath.ZeroInt(), types.ErrInsufficientLiquidity
	default:
		shares = amount.Mul(c.totalShares).Quo(c.totalLiquidity)
	}
	if shares.IsZero() {
		// Deposit too small to mint a single share; accepting it would
		// donate the amount to existing providers.
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}

	if err := c.transfers.PullFrom(provider, amount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", types.ErrTransferFailed, err)
	}

	c.shares[provider] = c.providerShares(provider).Add(shares)
	c.totalShares = c.totalShares.Add(shares)
	c.totalLiquidity = c.totalLiquidity.Add(amount)

	c.logger.Info().
		Str("provider", provider).
		Str("amount", amount.String()).
		Str("shares", shares.String()).
		Str("totalLiquidity", c.totalLiquidity.String()).
		Msg("Liquidity added")
	return shares, nil
}

// RemoveLiquidity burns the provider's shares and pushes the proportional
// quote-token amount back. Partial withdrawals may not drag the pool below
// the floor from at-or-above it; a full drain to exactly zero is allowed.
func (c *Coordinator) RemoveLiquidity(provider string, shares sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	balance := c.providerShares(provider)
	if balance.LT(shares) {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}

	amount := shares.Mul(c.totalLiquidity).Quo(c.totalShares)

	remaining := c.totalLiquidity.Sub(amount)
	if remaining.LT(c.minLiquidity) && !remaining.IsZero() && c.totalLiquidity.GTE(c.minLiquidity) {
		return sdkmath.ZeroInt(), types.ErrInsufficientLiquidity
	}

	if err := c.transfers.PushTo(provider, amount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", types.ErrTransferFailed, err)
	}

	newBalance := balance.Sub(shares)
	if newBalance.IsZero() {
		delete(c.shares, provider)
	} else {
		c.shares[provider] = newBalance
	}
	c.totalShares = c.totalShares.Sub(shares)
	c.totalLiquidity = remaining

	c.logger.Info().
		Str("provider", provider).
		Str("shares", shares.String()).
		Str("amount", amount.String()).
		Str("totalLiquidity", c.totalLiquidity.String()).
		Msg("Liquidity removed")
	return amount, nil
}

// Swap settles a quote-token swap against the pool. Buys pull amountIn from
// the trader, sells push amountOut to the trader. On success the signed
// inventory delta is reported to the pricing engine: +amountIn for buys,
// -amountOut for sells.
func (c *Coordinator) Swap(trader string, isBuy bool, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error) {
	side := types.TradeSideSell
	if isBuy {
		side = types.TradeSideBuy
	}

	amountOut, err := c.swap(trader, isBuy, amountIn, minAmountOut, side)
	if err != nil {
		c.recordTrade(types.TradeReceipt{
			ID:        uuid.New().String(),
			Timestamp: time.Now(),
			Trader:    trader,
			Side:      side,
			AmountIn:  safeInt(amountIn),
			AmountOut: sdkmath.ZeroInt(),
			SkewAfter: c.engine.InventorySkew(),
			Success:   false,
			Message:   err.Error(),
		})
		return sdkmath.ZeroInt(), err
	}
	return amountOut, nil
}

func (c *Coordinator) swap(trader string, isBuy bool, amountIn, minAmountOut sdkmath.Int, side types.TradeSide) (sdkmath.Int, error) {
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}
	if minAmountOut.IsNil() {
		minAmountOut = sdkmath.ZeroInt()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.totalLiquidity.LT(c.minLiquidity) {
		return sdkmath.ZeroInt(), types.ErrInsufficientLiquidity
	}

	oraclePrice, err := c.oracle.GetPrice(c.instrument)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("swap aborted: %w", err)
	}

	var (
		fee       uint64
		execPrice sdkmath.Int
		amountOut sdkmath.Int
	)

	if isBuy {
		fee, err = c.engine.QuoteAskFee(c.instrument, amountIn)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("swap aborted: %w", err)
		}
		execPrice = applyFeeToPrice(oraclePrice, fee, ask)
		amountOut = amountIn.
			Mul(tenThousand.Sub(sdkmath.NewIntFromUint64(fee))).
			Quo(tenThousand).
			Mul(priceScale).
			Quo(execPrice)
	} else {
		fee, err = c.engine.QuoteBidFee(c.instrument, amountIn)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("swap aborted: %w", err)
		}
		execPrice = applyFeeToPrice(oraclePrice, fee, bid)
		gross := amountIn.Mul(execPrice).Quo(priceScale)
		amountOut = gross.
			Mul(tenThousand.Sub(sdkmath.NewIntFromUint64(fee))).
			Quo(tenThousand)
	}

	if amountOut.LT(minAmountOut) {
		return sdkmath.ZeroInt(), types.ErrSlippageExceeded
	}
	if !isBuy && amountOut.GT(c.totalLiquidity) {
		return sdkmath.ZeroInt(), types.ErrInsufficientLiquidity
	}

	if isBuy {
		if err := c.transfers.PullFrom(trader, amountIn); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", types.ErrTransferFailed, err)
		}
		c.totalLiquidity = c.totalLiquidity.Add(amountIn)
	} else {
		if err := c.transfers.PushTo(trader, amountOut); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", types.ErrTransferFailed, err)
		}
		c.totalLiquidity = c.totalLiquidity.Sub(amountOut)
	}

	delta := amountIn
	if !isBuy {
		delta = amountOut.Neg()
	}
	// The reporter binding is verified at construction and immutable, so
	// this cannot be rejected.
	if err := c.engine.ReportInventoryDelta(c.id, delta); err != nil {
		c.logger.Error().Err(err).Msg("Inventory delta report rejected after settlement")
	}

	c.recordTrade(types.TradeReceipt{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Trader:    trader,
		Side:      side,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		FeeBps:    fee,
		ExecPrice: execPrice,
		SkewAfter: c.engine.InventorySkew(),
		Success:   true,
	})

	c.logger.Info().
		Str("trader", trader).
		Str("side", string(side)).
		Str("amountIn", amountIn.String()).
		Str("amountOut", amountOut.String()).
		Uint64("feeBps", fee).
		Str("execPrice", execPrice.String()).
		Msg("Swap settled")
	return amountOut, nil
}

// PoolState returns the committed pool totals.
func (c *Coordinator) PoolState() (totalShares, totalLiquidity sdkmath.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalShares, c.totalLiquidity
}

// SharesOf returns the share balance of a provider (zero if none).
func (c *Coordinator) SharesOf(provider string) sdkmath.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providerShares(provider)
}

// Instrument returns the oracle instrument this coordinator trades.
func (c *Coordinator) Instrument() types.InstrumentID {
	return c.instrument
}

func (c *Coordinator) providerShares(provider string) sdkmath.Int {
	if bal, ok := c.shares[provider]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func (c *Coordinator) recordTrade(receipt types.TradeReceipt) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordTrade(receipt)
}

func safeInt(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}
