package analyzer

import (
	"errors"
	"math"
	"sort"

	"github.com/quantrafi/dmm/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// RealizedVolatility calculates the annualized historical volatility from a
// series of oracle price observations. It assumes the data is sorted
// chronologically and sorts it first if not. It uses logarithmic returns
// and standard deviation.
//
// The annualizationFactor should match the frequency of the data (e.g.,
// 8760 for hourly observations, 365 for daily). With the daemon's default
// ten-minute cycle the factor is 52560.
func RealizedVolatility(points []types.PricePoint, annualizationFactor float64) (float64, error) {
	n := len(points)

	if n < 2 {
		return 0, ErrInsufficientData // Need at least two points to calculate one return
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	// Logarithmic returns, skipping pairs that would break math.Log.
	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		currentPrice := points[i].Price
		previousPrice := points[i-1].Price

		if previousPrice <= 0 || currentPrice <= 0 {
			continue
		}

		logReturns = append(logReturns, math.Log(currentPrice/previousPrice))
	}

	numReturns := len(logReturns)
	if numReturns == 0 {
		return 0, ErrInsufficientData // Could happen if all previous prices were <= 0
	}

	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(numReturns)

	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}

	// Population standard deviation (N, not N-1).
	variance := sumSqDiff / float64(numReturns)
	stdDev := math.Sqrt(variance)

	annualizedVolatility := stdDev * math.Sqrt(annualizationFactor)

	return annualizedVolatility, nil
}
