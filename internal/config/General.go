package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// InstrumentID is the oracle instrument index of the traded pair.
	InstrumentID uint64

	// OwnerID is the identity of the fee-config owner/strategist. Only this
	// identity may mutate fee parameters.
	OwnerID string

	// AdminToken is the shared secret required on mutating web API calls.
	AdminToken string

	// ReserveAccount is the ledger account holding the pool's quote-token
	// reserve.
	ReserveAccount string

	// MinLiquidity is the pool floor in quote-token units. Partial
	// withdrawals may not leave the pool below it.
	MinLiquidity uint64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	InstrumentID, err = getEnvAsUint64("DMM_INSTRUMENT_ID")
	if err != nil {
		return err
	}

	OwnerID, err = getEnv("DMM_OWNER_ID")
	if err != nil {
		return err
	}

	AdminToken, err = getEnv("DMM_ADMIN_TOKEN")
	if err != nil {
		return err
	}

	ReserveAccount, err = getEnv("DMM_RESERVE_ACCOUNT")
	if err != nil {
		return err
	}

	MinLiquidity, err = getEnvAsUint64("DMM_MIN_LIQUIDITY")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Uint64("InstrumentID", InstrumentID).
		Str("OwnerID", OwnerID).
		Uint64("MinLiquidity", MinLiquidity).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
