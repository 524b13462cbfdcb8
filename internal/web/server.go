package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantrafi/dmm/internal/amm"
	"github.com/quantrafi/dmm/internal/analyzer"
	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/metrics"
	"github.com/quantrafi/dmm/internal/pricing"
	"github.com/quantrafi/dmm/internal/state"
	"github.com/quantrafi/dmm/internal/types"
	"github.com/quantrafi/dmm/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// Annualization factor for realized volatility at the daemon's ten-minute
// snapshot cadence (6 * 24 * 365 observations per year).
const VOLATILITY_ANNUALIZATION = 52560

// WebServer exposes the market maker over HTTP: quotes, pool state, trade
// history, and admin-gated fee-parameter updates.
type WebServer struct {
	router      *mux.Router
	port        string
	coordinator *amm.Coordinator
	engine      *pricing.Engine
	ownerID     string
	adminToken  string
	configName  string
}

// Config holds the dependencies for creating a WebServer.
type Config struct {
	Port        string
	Coordinator *amm.Coordinator
	Engine      *pricing.Engine
	OwnerID     string
	AdminToken  string
	ConfigName  string // fee parameter config name for persistence
}

// NewWebServer creates a new web server instance.
func NewWebServer(cfg Config) *WebServer {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:      mux.NewRouter(),
		port:        port,
		coordinator: cfg.Coordinator,
		engine:      cfg.Engine,
		ownerID:     cfg.OwnerID,
		adminToken:  cfg.AdminToken,
		configName:  cfg.ConfigName,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes.
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/quote", ws.handleGetQuote).Methods("GET")
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/trades", ws.handleGetTrades).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/volatility", ws.handleGetVolatility).Methods("GET")
	api.HandleFunc("/fee-parameters", ws.handleGetFeeParameters).Methods("GET")
	api.HandleFunc("/fee-parameters", ws.handleUpdateFeeParameters).Methods("POST")
	api.HandleFunc("/liquidity", ws.handleAddLiquidity).Methods("POST")
	api.HandleFunc("/liquidity", ws.handleRemoveLiquidity).Methods("DELETE")
	api.HandleFunc("/swap", ws.handleSwap).Methods("POST")

	// Preflight requests must match a route for the middleware chain to
	// run; the CORS middleware answers them before this handler is reached.
	ws.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	totalShares, totalLiquidity := ws.coordinator.PoolState()

	ws.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"pool": map[string]interface{}{
			"total_shares":    totalShares,
			"total_liquidity": totalLiquidity,
		},
		"inventory_skew": ws.engine.InventorySkew(),
		"runtime": map[string]interface{}{
			"goroutines":      runtime.NumGoroutine(),
			"heap_alloc_mb":   memStats.HeapAlloc / 1024 / 1024,
			"total_alloc_mb":  memStats.TotalAlloc / 1024 / 1024,
			"gc_cycles":       memStats.NumGC,
		},
	})
}

// handleGetQuote returns the current two-sided quote.
func (ws *WebServer) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := ws.coordinator.Quote()
	if err != nil {
		ws.respondError(w, http.StatusBadGateway, err)
		return
	}

	metrics.QuotesServed.Inc()
	metrics.BidFeeBps.Set(float64(quote.BidFeeBps))
	metrics.AskFeeBps.Set(float64(quote.AskFeeBps))

	ws.respondJSON(w, http.StatusOK, map[string]interface{}{
		"instrument":  quote.Instrument,
		"bid_fee_bps": quote.BidFeeBps,
		"ask_fee_bps": quote.AskFeeBps,
		"bid_price":   utils.FormatScaled(quote.BidPrice, 8),
		"ask_price":   utils.FormatScaled(quote.AskPrice, 8),
		"spread_bps":  quote.SpreadBps,
		"timestamp":   quote.Timestamp,
	})
}

// handleGetPool returns pool totals, skew, and the tracked price sample.
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	totalShares, totalLiquidity := ws.coordinator.PoolState()
	sample := ws.engine.PriceSample()

	ws.respondJSON(w, http.StatusOK, map[string]interface{}{
		"instrument":      ws.coordinator.Instrument(),
		"total_shares":    totalShares,
		"total_liquidity": totalLiquidity,
		"inventory_skew":  ws.engine.InventorySkew(),
		"price_sample": map[string]interface{}{
			"last_price": utils.FormatScaled(sample.LastPrice, 8),
			"updated_at": sample.UpdatedAt,
		},
	})
}

// handleGetTrades returns recent trade receipts.
func (ws *WebServer) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	trades, err := state.GetRecentTrades(limit)
	if err != nil {
		ws.respondError(w, http.StatusInternalServerError, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

// handleGetSnapshots returns recent pool snapshots.
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	snapshots, err := state.GetRecentSnapshots(limit)
	if err != nil {
		ws.respondError(w, http.StatusInternalServerError, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snapshots})
}

// handleGetVolatility returns the annualized realized volatility computed
// over stored oracle observations.
func (ws *WebServer) handleGetVolatility(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 1008) // one week of ten-minute observations
	points, err := state.GetPriceHistory(limit)
	if err != nil {
		ws.respondError(w, http.StatusInternalServerError, err)
		return
	}

	vol, err := analyzer.RealizedVolatility(points, VOLATILITY_ANNUALIZATION)
	if err != nil {
		if errors.Is(err, analyzer.ErrInsufficientData) {
			ws.respondError(w, http.StatusConflict, err)
			return
		}
		ws.respondError(w, http.StatusInternalServerError, err)
		return
	}

	ws.respondJSON(w, http.StatusOK, map[string]interface{}{
		"annualized_volatility": vol,
		"observations":          len(points),
	})
}

// handleGetFeeParameters returns the engine's live fee configuration.
func (ws *WebServer) handleGetFeeParameters(w http.ResponseWriter, r *http.Request) {
	cfg := ws.engine.FeeConfig()
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{
		"base_bid_fee":              cfg.BaseBidFee,
		"base_ask_fee":              cfg.BaseAskFee,
		"min_fee":                   cfg.MinFee,
		"max_fee":                   cfg.MaxFee,
		"volatility_multiplier":     cfg.VolatilityMultiplier,
		"inventory_multiplier":      cfg.InventoryMultiplier,
		"volatility_window_seconds": int64(cfg.VolatilityWindow / time.Second),
	})
}

type feeParametersRequest struct {
	BaseBidFee              uint64 `json:"base_bid_fee"`
	BaseAskFee              uint64 `json:"base_ask_fee"`
	MinFee                  uint64 `json:"min_fee"`
	MaxFee                  uint64 `json:"max_fee"`
	VolatilityMultiplier    uint64 `json:"volatility_multiplier"`
	InventoryMultiplier     uint64 `json:"inventory_multiplier"`
	VolatilityWindowSeconds int64  `json:"volatility_window_seconds"`
}

// handleUpdateFeeParameters applies an admin fee-config update to the
// engine and persists it as a new active version.
func (ws *WebServer) handleUpdateFeeParameters(w http.ResponseWriter, r *http.Request) {
	if !ws.authorized(r) {
		ws.respondError(w, http.StatusForbidden, types.ErrUnauthorized)
		return
	}

	var req feeParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondError(w, http.StatusBadRequest, err)
		return
	}

	newCfg := types.FeeConfig{
		BaseBidFee:           req.BaseBidFee,
		BaseAskFee:           req.BaseAskFee,
		MinFee:               req.MinFee,
		MaxFee:               req.MaxFee,
		VolatilityMultiplier: req.VolatilityMultiplier,
		InventoryMultiplier:  req.InventoryMultiplier,
		VolatilityWindow:     time.Duration(req.VolatilityWindowSeconds) * time.Second,
	}

	if err := ws.engine.UpdateFeeConfig(ws.ownerID, newCfg); err != nil {
		ws.respondError(w, statusForError(err), err)
		return
	}
	if err := ws.engine.UpdateMultipliers(ws.ownerID, newCfg.VolatilityMultiplier, newCfg.InventoryMultiplier); err != nil {
		ws.respondError(w, statusForError(err), err)
		return
	}
	if err := ws.engine.UpdateVolatilityWindow(ws.ownerID, newCfg.VolatilityWindow); err != nil {
		ws.respondError(w, statusForError(err), err)
		return
	}

	version, err := state.NextFeeParametersVersion(ws.configName)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to determine next fee parameter version")
	} else if _, err := state.SaveFeeParameters(newCfg, ws.configName, version, true); err != nil {
		webLogger.Error().Err(err).Msg("Failed to persist fee parameters")
	}

	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "updated"})
}

type liquidityRequest struct {
	Provider string `json:"provider"`
	Amount   string `json:"amount"`
	Shares   string `json:"shares"`
}

// handleAddLiquidity deposits quote-token value for pool shares.
func (ws *WebServer) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondError(w, http.StatusBadRequest, err)
		return
	}

	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.respondError(w, http.StatusBadRequest, types.ErrInvalidAmount)
		return
	}

	shares, err := ws.coordinator.AddLiquidity(req.Provider, amount)
	if err != nil {
		ws.respondError(w, statusForError(err), err)
		return
	}

	ws.updatePoolMetrics()
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"shares": shares})
}

// handleRemoveLiquidity burns pool shares for quote-token value.
func (ws *WebServer) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondError(w, http.StatusBadRequest, err)
		return
	}

	shares, ok := sdkmath.NewIntFromString(req.Shares)
	if !ok {
		ws.respondError(w, http.StatusBadRequest, types.ErrInvalidAmount)
		return
	}

	amount, err := ws.coordinator.RemoveLiquidity(req.Provider, shares)
	if err != nil {
		ws.respondError(w, statusForError(err), err)
		return
	}

	ws.updatePoolMetrics()
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"amount": amount})
}

type swapRequest struct {
	Trader       string `json:"trader"`
	Side         string `json:"side"` // "buy" or "sell"
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out"`
}

// handleSwap settles a swap through the coordinator.
func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondError(w, http.StatusBadRequest, err)
		return
	}

	if req.Side != string(types.TradeSideBuy) && req.Side != string(types.TradeSideSell) {
		ws.respondError(w, http.StatusBadRequest, errors.New("side must be \"buy\" or \"sell\""))
		return
	}
	isBuy := req.Side == string(types.TradeSideBuy)

	amountIn, ok := sdkmath.NewIntFromString(req.AmountIn)
	if !ok {
		ws.respondError(w, http.StatusBadRequest, types.ErrInvalidAmount)
		return
	}
	minAmountOut := sdkmath.ZeroInt()
	if req.MinAmountOut != "" {
		minAmountOut, ok = sdkmath.NewIntFromString(req.MinAmountOut)
		if !ok {
			ws.respondError(w, http.StatusBadRequest, types.ErrInvalidAmount)
			return
		}
	}

	amountOut, err := ws.coordinator.Swap(req.Trader, isBuy, amountIn, minAmountOut)
	if err != nil {
		metrics.SwapsTotal.WithLabelValues(req.Side, "rejected").Inc()
		ws.respondError(w, statusForError(err), err)
		return
	}

	metrics.SwapsTotal.WithLabelValues(req.Side, "settled").Inc()
	ws.updatePoolMetrics()
	ws.respondJSON(w, http.StatusOK, map[string]interface{}{"amount_out": amountOut})
}

func (ws *WebServer) updatePoolMetrics() {
	_, totalLiquidity := ws.coordinator.PoolState()
	metrics.PoolLiquidity.Set(utils.MetricValue(totalLiquidity))
	metrics.InventorySkew.Set(utils.MetricValue(ws.engine.InventorySkew()))
}

func (ws *WebServer) authorized(r *http.Request) bool {
	return ws.adminToken != "" && r.Header.Get("X-Admin-Token") == ws.adminToken
}

// statusForError maps the domain failure taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidAmount), errors.Is(err, types.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientLiquidity), errors.Is(err, types.ErrSlippageExceeded):
		return http.StatusConflict
	case errors.Is(err, types.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func (ws *WebServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (ws *WebServer) respondError(w http.ResponseWriter, status int, err error) {
	ws.respondJSON(w, status, map[string]interface{}{"error": err.Error()})
}

// corsMiddleware adds permissive CORS headers for the dashboard.
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with timing information.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
