/*
This file implements the HTTP client for the external price oracle feed.

The feed serves one JSON document per instrument index with a decimal price
string. Every reading is strictly validated before being handed to the
pricing engine: a silently bad price here moves real quotes.
*/

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/quantrafi/dmm/internal/logger"
	"github.com/quantrafi/dmm/internal/types"
)

var oracleLogger = logger.GetForComponent("oracle_client")

var ErrInvalidPriceData = errors.New("invalid price data received")
var ErrOracleUnreachable = errors.New("oracle feed unreachable")

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 10
	RETRY_DELAY     = 2 * time.Second

	// PriceScale is the fixed-point scale of all oracle prices.
	PriceScale = 100_000_000 // 1e8
)

var priceScaleDec = decimal.New(1, 8)

// priceResponse is the oracle feed's JSON document for a single instrument.
type priceResponse struct {
	Instrument uint32 `json:"instrument"`
	Price      string `json:"price"` // decimal string, e.g. "50123.45"
	Timestamp  int64  `json:"timestamp"`
}

// Client reads 1e8-scaled prices from an HTTP oracle feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an oracle client for the given feed base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("oracle base URL is required")
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: TIMEOUT_SECONDS * time.Second,
		},
	}, nil
}

// GetPrice fetches and validates the current price for the instrument,
// retrying transient failures up to MAX_RETRIES times.
func (c *Client) GetPrice(instrument types.InstrumentID) (sdkmath.Int, error) {
	url := fmt.Sprintf("%s/price?instrument=%d", c.baseURL, instrument)

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		price, err := c.fetchOnce(url, instrument)
		if err == nil {
			return price, nil
		}
		lastErr = err
		oracleLogger.Warn().
			Err(err).
			Int("attempt", attempt).
			Uint32("instrument", uint32(instrument)).
			Msg("Oracle price fetch failed")
		if attempt < MAX_RETRIES {
			time.Sleep(RETRY_DELAY)
		}
	}
	return sdkmath.ZeroInt(), errors.Join(ErrOracleUnreachable, lastErr)
}

func (c *Client) fetchOnce(url string, instrument types.InstrumentID) (sdkmath.Int, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sdkmath.ZeroInt(), fmt.Errorf("oracle feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}

	if parsed.Instrument != uint32(instrument) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: instrument mismatch, requested %d got %d",
			ErrInvalidPriceData, instrument, parsed.Instrument)
	}

	return scalePrice(parsed.Price)
}

// scalePrice converts a decimal price string into the 1e8 fixed-point
// representation, rejecting non-positive or non-numeric values.
func scalePrice(raw string) (sdkmath.Int, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: unparsable price %q", ErrInvalidPriceData, raw)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: non-positive price %q", ErrInvalidPriceData, raw)
	}

	scaled := d.Mul(priceScaleDec)
	if !scaled.IsInteger() {
		// More than 8 decimal places; truncate toward zero.
		scaled = scaled.Truncate(0)
	}
	if scaled.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: price %q rounds to zero at 1e8 scale", ErrInvalidPriceData, raw)
	}

	return sdkmath.NewIntFromBigInt(scaled.BigInt()), nil
}
