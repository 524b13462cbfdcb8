package oracle

import (
	"errors"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/quantrafi/dmm/internal/types"
)

// ErrPriceUnavailable indicates the source has no price for the requested
// instrument.
var ErrPriceUnavailable = errors.New("no price available for instrument")

// PriceSource defines the interface for reading spot prices.
// Prices are unsigned integers scaled by 1e8. The source may be queried
// unboundedly often; availability handling is the caller's concern.
type PriceSource interface {
	// GetPrice returns the current 1e8-scaled price for the instrument.
	GetPrice(instrument types.InstrumentID) (sdkmath.Int, error)
}

// Static is a fixed-price source used for deterministic wiring and tests.
type Static struct {
	mu     sync.RWMutex
	prices map[types.InstrumentID]sdkmath.Int
}

// NewStatic creates an empty static price source.
func NewStatic() *Static {
	return &Static{prices: make(map[types.InstrumentID]sdkmath.Int)}
}

// SetPrice installs or replaces the price for an instrument.
func (s *Static) SetPrice(instrument types.InstrumentID, price sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[instrument] = price
}

// GetPrice returns the installed price or ErrPriceUnavailable.
func (s *Static) GetPrice(instrument types.InstrumentID) (sdkmath.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[instrument]
	if !ok {
		return sdkmath.ZeroInt(), ErrPriceUnavailable
	}
	return price, nil
}
