package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantrafi/dmm/internal/amm"
	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/metrics"
	"github.com/quantrafi/dmm/internal/pricing"
	"github.com/quantrafi/dmm/internal/state"
	"github.com/quantrafi/dmm/internal/types"
	"github.com/quantrafi/dmm/internal/utils"
)

const (
	// Export constants for use in main.go
	DEFAULT_FEE_CONFIG_NAME    = "default_dmm_fees"
	DEFAULT_FEE_CONFIG_VERSION = 1
)

// Daemon drives the periodic market-making cycle: refresh the pricing
// engine's oracle sample, snapshot the pool, and keep metrics current.
type Daemon struct {
	logger      zerolog.Logger
	engine      *pricing.Engine
	coordinator *amm.Coordinator

	cycleCount int
}

// Config holds the configuration for creating a new Daemon instance.
type Config struct {
	Engine      *pricing.Engine
	Coordinator *amm.Coordinator
}

// NewDaemon creates a new daemon instance with dependency injection.
func NewDaemon(cfg Config) (*Daemon, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("daemon requires a pricing engine")
	}
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("daemon requires a settlement coordinator")
	}

	return &Daemon{
		logger:      logger.GetForComponent("dmm_daemon"),
		engine:      cfg.Engine,
		coordinator: cfg.Coordinator,
	}, nil
}

// RunLoop starts the main daemon loop with the specified interval.
func (d *Daemon) RunLoop(ctx context.Context, interval time.Duration) {
	d.logger.Info().
		Dur("interval", interval).
		Msg("Starting daemon main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	d.cycleCount++
	d.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Daemon loop stopped due to context cancellation")
			return
		case <-ticker.C:
			d.cycleCount++
			d.RunCycle(ctx)
		}
	}
}

// RunCycle executes one complete market-making cycle.
func (d *Daemon) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle.
	cycleID := uuid.New().String()
	cycleLogger := d.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting cycle ---")

	cycleNumber, err := state.IncrementCycleNumber()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Persistent cycle counter unavailable, using in-process count")
		cycleNumber = d.cycleCount
	}

	// --- Step 1: refresh the volatility price sample ---
	instrument := d.coordinator.Instrument()
	if err := d.engine.RefreshPriceSample(d.coordinator.ID(), instrument); err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to refresh price sample.")
		return
	}
	sample := d.engine.PriceSample()
	cycleLogger.Info().
		Str("price", sample.LastPrice.String()).
		Msg("Step 1: Price sample refreshed.")

	// --- Step 2: derive the current two-sided quote ---
	quote, err := d.coordinator.Quote()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to derive quote.")
		return
	}
	cycleLogger.Info().
		Uint64("bidFeeBps", quote.BidFeeBps).
		Uint64("askFeeBps", quote.AskFeeBps).
		Uint64("spreadBps", quote.SpreadBps).
		Msg("Step 2: Quote derived.")

	// --- Step 3: snapshot pool and engine state ---
	totalShares, totalLiquidity := d.coordinator.PoolState()
	snapshot := types.PoolSnapshot{
		CycleNumber:    cycleNumber,
		Timestamp:      cycleStartTime,
		Instrument:     instrument,
		OraclePrice:    sample.LastPrice,
		BidPrice:       quote.BidPrice,
		AskPrice:       quote.AskPrice,
		BidFeeBps:      quote.BidFeeBps,
		AskFeeBps:      quote.AskFeeBps,
		SpreadBps:      quote.SpreadBps,
		TotalLiquidity: totalLiquidity,
		TotalShares:    totalShares,
		InventorySkew:  d.engine.InventorySkew(),
	}
	if err := state.SavePoolSnapshot(snapshot); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist pool snapshot")
	}

	metrics.PoolLiquidity.Set(utils.MetricValue(totalLiquidity))
	metrics.InventorySkew.Set(utils.MetricValue(snapshot.InventorySkew))
	metrics.BidFeeBps.Set(float64(quote.BidFeeBps))
	metrics.AskFeeBps.Set(float64(quote.AskFeeBps))

	cycleLogger.Info().
		Int("cycleNumber", cycleNumber).
		Str("totalLiquidity", totalLiquidity.String()).
		Str("inventorySkew", snapshot.InventorySkew.String()).
		Dur("elapsed", time.Since(cycleStartTime)).
		Msg("--- Cycle completed ---")
}
