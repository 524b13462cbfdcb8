// ./internal/state/db.go
package state

import (
	"fmt"
	"time"

	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS fee_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			base_bid_fee BIGINT NOT NULL, base_ask_fee BIGINT NOT NULL,
			min_fee BIGINT NOT NULL, max_fee BIGINT NOT NULL,
			volatility_multiplier BIGINT NOT NULL, inventory_multiplier BIGINT NOT NULL,
			volatility_window_seconds BIGINT NOT NULL,
			CONSTRAINT uq_fee_parameters_config_version UNIQUE (config_name, version),
			CONSTRAINT ck_fee_parameters_bounds CHECK (min_fee <= max_fee)
		);
		CREATE INDEX IF NOT EXISTS idx_fee_parameters_config_active_timestamp ON fee_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS trade_receipts (
			receipt_id UUID PRIMARY KEY,
			trade_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			trader VARCHAR(255) NOT NULL,
			side VARCHAR(8) NOT NULL,
			amount_in NUMERIC(78, 0) NOT NULL,
			amount_out NUMERIC(78, 0) NOT NULL,
			fee_bps BIGINT NOT NULL,
			exec_price NUMERIC(78, 0) NOT NULL,
			skew_after NUMERIC(78, 0) NOT NULL,
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_trade_receipts_timestamp ON trade_receipts(trade_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_trade_receipts_trader ON trade_receipts(trader);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			instrument BIGINT NOT NULL,
			oracle_price NUMERIC(78, 0) NOT NULL,
			bid_price NUMERIC(78, 0) NOT NULL,
			ask_price NUMERIC(78, 0) NOT NULL,
			bid_fee_bps BIGINT NOT NULL,
			ask_fee_bps BIGINT NOT NULL,
			spread_bps BIGINT NOT NULL,
			total_liquidity NUMERIC(78, 0) NOT NULL,
			total_shares NUMERIC(78, 0) NOT NULL,
			inventory_skew NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_timestamp ON pool_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_cycle ON pool_snapshots(cycle_number DESC);

		-- Cycle counter table for persistent global cycle tracking
		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}
