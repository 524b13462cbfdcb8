// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantrafi/dmm/internal/types"
	"github.com/rs/zerolog/log"
)

// SaveFeeParameters saves a new version of the fee configuration. When
// makeActive is set, any previously active version under the same config
// name is deactivated in the same transaction.
func SaveFeeParameters(cfg types.FeeConfig, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE fee_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO fee_parameters (
            version, config_name, is_active, activated_at, created_at,
            base_bid_fee, base_ask_fee, min_fee, max_fee,
            volatility_multiplier, inventory_multiplier,
            volatility_window_seconds
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9,
            $10, $11,
            $12
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		cfg.BaseBidFee, cfg.BaseAskFee, cfg.MinFee, cfg.MaxFee,
		cfg.VolatilityMultiplier, cfg.InventoryMultiplier,
		int64(cfg.VolatilityWindow/time.Second),
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert fee parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved fee parameters")
	return paramsID, nil
}

// LoadActiveFeeParameters loads the currently active fee configuration for
// the given config name.
func LoadActiveFeeParameters(configName string) (*types.FeeConfig, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
        SELECT base_bid_fee, base_ask_fee, min_fee, max_fee,
               volatility_multiplier, inventory_multiplier,
               volatility_window_seconds
        FROM fee_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var cfg types.FeeConfig
	var windowSeconds int64
	err := DB.QueryRow(stmt, configName).Scan(
		&cfg.BaseBidFee, &cfg.BaseAskFee, &cfg.MinFee, &cfg.MaxFee,
		&cfg.VolatilityMultiplier, &cfg.InventoryMultiplier,
		&windowSeconds,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active fee parameters found for config %s", configName)
		}
		return nil, fmt.Errorf("failed to load active fee parameters: %w", err)
	}
	cfg.VolatilityWindow = time.Duration(windowSeconds) * time.Second

	if err := cfg.ValidateBounds(); err != nil {
		return nil, fmt.Errorf("persisted fee parameters violate bounds: %w", err)
	}

	return &cfg, nil
}

// NextFeeParametersVersion returns the next unused version number for the
// given config name.
func NextFeeParametersVersion(configName string) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var maxVersion sql.NullInt64
	err := DB.QueryRow(
		`SELECT MAX(version) FROM fee_parameters WHERE config_name = $1;`, configName,
	).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to query fee parameter versions: %w", err)
	}
	if !maxVersion.Valid {
		return 1, nil
	}
	return int(maxVersion.Int64) + 1, nil
}
