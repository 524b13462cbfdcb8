package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/quantrafi/dmm/internal/amm"
	"github.com/quantrafi/dmm/internal/config"
	"github.com/quantrafi/dmm/internal/daemon"
	"github.com/quantrafi/dmm/internal/ledger"
	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/oracle"
	"github.com/quantrafi/dmm/internal/pricing"
	"github.com/quantrafi/dmm/internal/state"
	"github.com/quantrafi/dmm/internal/types"
	"github.com/quantrafi/dmm/internal/web"
)

const (
	LOOP_INTERVAL = 10 * time.Minute

	// COORDINATOR_ID is the identity bound as the pricing engine's reporter.
	COORDINATOR_ID = "settlement-coordinator"
)

// main is the entry point for the dmm daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Dynamic-fee market maker starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Fee Parameters
	feeConfig, err := state.LoadActiveFeeParameters(daemon.DEFAULT_FEE_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active fee parameters, using defaults and saving.")
		defaults := config.DefaultFeeConfig
		if _, err := state.SaveFeeParameters(defaults, daemon.DEFAULT_FEE_CONFIG_NAME, daemon.DEFAULT_FEE_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default fee parameters.")
		}
		feeConfig = &defaults
	}
	log.Info().Msg("Fee parameters loaded successfully.")

	// --- 2. Price Source Initialization (with Safety Switch) ---
	var priceSource oracle.PriceSource
	mode := os.Getenv("DMM_MODE")

	switch mode {
	case "live":
		log.Warn().Msg("Initializing in LIVE mode. Quotes will track the external oracle feed.")
		client, err := oracle.NewClient(config.OracleAPI)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize oracle client")
		}
		priceSource = client
	case "sim":
		log.Warn().Msg("Initializing in SIM mode. Prices are static and the ledger is seeded from env.")
		priceSource = simPriceSource()
	default:
		log.Fatal().Msg("DMM_MODE is not set to 'live' or 'sim'. Halting to prevent accidental execution.")
	}

	// --- 3. Component Wiring with Dependency Injection ---
	engine, err := pricing.NewEngine(pricing.Config{
		Oracle:    priceSource,
		Owner:     config.OwnerID,
		Reporter:  COORDINATOR_ID,
		FeeConfig: *feeConfig,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pricing engine")
	}

	transfers := ledger.NewMemory(config.ReserveAccount)
	if mode == "sim" {
		seedSimLedger(transfers)
	}

	coordinator, err := amm.NewCoordinator(amm.Config{
		ID:           COORDINATOR_ID,
		Engine:       engine,
		Oracle:       priceSource,
		Transfers:    transfers,
		Instrument:   types.InstrumentID(config.InstrumentID),
		MinLiquidity: sdkmath.NewIntFromUint64(config.MinLiquidity),
		Recorder:     state.TradeSink{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create settlement coordinator")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(web.Config{
		Port:        webPort,
		Coordinator: coordinator,
		Engine:      engine,
		OwnerID:     config.OwnerID,
		AdminToken:  config.AdminToken,
		ConfigName:  daemon.DEFAULT_FEE_CONFIG_NAME,
	})
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting dmm web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Daemon Main Loop ---
	dmmDaemon, err := daemon.NewDaemon(daemon.Config{
		Engine:      engine,
		Coordinator: coordinator,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create daemon")
	}

	log.Info().Str("interval", LOOP_INTERVAL.String()).Msg("Starting daemon main loop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dmmDaemon.RunLoop(ctx, LOOP_INTERVAL)
}

// simPriceSource builds a static price source from DMM_STATIC_PRICE
// (1e8-scaled integer).
func simPriceSource() oracle.PriceSource {
	raw := os.Getenv("DMM_STATIC_PRICE")
	price, ok := sdkmath.NewIntFromString(raw)
	if !ok || !price.IsPositive() {
		log.Fatal().Str("DMM_STATIC_PRICE", raw).Msg("SIM mode requires a positive 1e8-scaled DMM_STATIC_PRICE")
	}

	src := oracle.NewStatic()
	src.SetPrice(types.InstrumentID(config.InstrumentID), price)
	return src
}

// seedSimLedger credits accounts listed in DMM_SIM_ACCOUNTS, formatted as
// "alice:1000000,bob:500000".
func seedSimLedger(transfers *ledger.Memory) {
	raw := os.Getenv("DMM_SIM_ACCOUNTS")
	if raw == "" {
		return
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			log.Fatal().Str("entry", entry).Msg("Malformed DMM_SIM_ACCOUNTS entry")
		}
		amount, ok := sdkmath.NewIntFromString(parts[1])
		if !ok || !amount.IsPositive() {
			log.Fatal().Str("entry", entry).Msg("Malformed DMM_SIM_ACCOUNTS amount")
		}
		transfers.Credit(parts[0], amount)
		log.Info().Str("account", parts[0]).Str("amount", amount.String()).Msg("Seeded sim ledger account")
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
