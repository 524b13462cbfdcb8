// ./internal/state/trade_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/quantrafi/dmm/internal/types"
)

// RecordTradeReceipt persists a single trade receipt.
func RecordTradeReceipt(receipt types.TradeReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
        INSERT INTO trade_receipts (
            receipt_id, trade_timestamp, trader, side,
            amount_in, amount_out, fee_bps, exec_price, skew_after,
            success, message
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err := DB.Exec(stmt,
		receipt.ID, receipt.Timestamp, receipt.Trader, string(receipt.Side),
		numericString(receipt.AmountIn), numericString(receipt.AmountOut),
		receipt.FeeBps, numericString(receipt.ExecPrice), numericString(receipt.SkewAfter),
		receipt.Success, receipt.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade receipt: %w", err)
	}
	return nil
}

// GetRecentTrades returns up to limit receipts, newest first.
func GetRecentTrades(limit int) ([]types.TradeReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
        SELECT receipt_id, trade_timestamp, trader, side,
               amount_in, amount_out, fee_bps, exec_price, skew_after,
               success, COALESCE(message, '')
        FROM trade_receipts
        ORDER BY trade_timestamp DESC
        LIMIT $1;`

	rows, err := DB.Query(stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]types.TradeReceipt, 0, limit)
	for rows.Next() {
		var r types.TradeReceipt
		var side, amountIn, amountOut, execPrice, skewAfter string
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Trader, &side,
			&amountIn, &amountOut, &r.FeeBps, &execPrice, &skewAfter,
			&r.Success, &r.Message,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade receipt: %w", err)
		}
		r.Side = types.TradeSide(side)
		r.AmountIn = parseNumeric(amountIn)
		r.AmountOut = parseNumeric(amountOut)
		r.ExecPrice = parseNumeric(execPrice)
		r.SkewAfter = parseNumeric(skewAfter)
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// SavePoolSnapshot persists a per-cycle pool snapshot.
func SavePoolSnapshot(snapshot types.PoolSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
        INSERT INTO pool_snapshots (
            cycle_number, snapshot_timestamp, instrument,
            oracle_price, bid_price, ask_price,
            bid_fee_bps, ask_fee_bps, spread_bps,
            total_liquidity, total_shares, inventory_skew
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err := DB.Exec(stmt,
		snapshot.CycleNumber, snapshot.Timestamp, uint64(snapshot.Instrument),
		numericString(snapshot.OraclePrice), numericString(snapshot.BidPrice), numericString(snapshot.AskPrice),
		snapshot.BidFeeBps, snapshot.AskFeeBps, snapshot.SpreadBps,
		numericString(snapshot.TotalLiquidity), numericString(snapshot.TotalShares), numericString(snapshot.InventorySkew),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pool snapshot: %w", err)
	}
	return nil
}

// GetRecentSnapshots returns up to limit snapshots, newest first.
func GetRecentSnapshots(limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
        SELECT cycle_number, snapshot_timestamp, instrument,
               oracle_price, bid_price, ask_price,
               bid_fee_bps, ask_fee_bps, spread_bps,
               total_liquidity, total_shares, inventory_skew
        FROM pool_snapshots
        ORDER BY snapshot_timestamp DESC
        LIMIT $1;`

	rows, err := DB.Query(stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]types.PoolSnapshot, 0, limit)
	for rows.Next() {
		var s types.PoolSnapshot
		var instrument uint64
		var oraclePrice, bidPrice, askPrice, totalLiquidity, totalShares, inventorySkew string
		if err := rows.Scan(
			&s.CycleNumber, &s.Timestamp, &instrument,
			&oraclePrice, &bidPrice, &askPrice,
			&s.BidFeeBps, &s.AskFeeBps, &s.SpreadBps,
			&totalLiquidity, &totalShares, &inventorySkew,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot: %w", err)
		}
		s.Instrument = types.InstrumentID(instrument)
		s.OraclePrice = parseNumeric(oraclePrice)
		s.BidPrice = parseNumeric(bidPrice)
		s.AskPrice = parseNumeric(askPrice)
		s.TotalLiquidity = parseNumeric(totalLiquidity)
		s.TotalShares = parseNumeric(totalShares)
		s.InventorySkew = parseNumeric(inventorySkew)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// GetPriceHistory returns chronological oracle price observations taken
// from stored snapshots, for realized volatility analysis.
func GetPriceHistory(limit int) ([]types.PricePoint, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
        SELECT snapshot_timestamp, oracle_price::float8 / 100000000.0
        FROM pool_snapshots
        ORDER BY snapshot_timestamp DESC
        LIMIT $1;`

	rows, err := DB.Query(stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	points := make([]types.PricePoint, 0, limit)
	for rows.Next() {
		var p types.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// TradeSink adapts the persistence layer to the settlement coordinator's
// recorder hook. Persistence failures are logged, never propagated: a
// receipt must not be able to fail a settled swap.
type TradeSink struct{}

// RecordTrade persists the receipt, logging any error.
func (TradeSink) RecordTrade(receipt types.TradeReceipt) {
	if err := RecordTradeReceipt(receipt); err != nil {
		log.Error().Err(err).Str("receipt_id", receipt.ID).Msg("Failed to persist trade receipt")
	}
}

// numericString renders an Int for a NUMERIC column, tolerating nil values.
func numericString(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}

// parseNumeric parses a NUMERIC column value back into an Int. Postgres
// always returns well-formed digits here; a parse failure means schema
// corruption, so it is logged and surfaced as zero.
func parseNumeric(s string) sdkmath.Int {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		log.Error().Str("value", s).Msg("Unparsable NUMERIC value from database")
		return sdkmath.ZeroInt()
	}
	return v
}
