package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrafi/dmm/internal/types"
)

func pricePoints(start time.Time, step time.Duration, prices ...float64) []types.PricePoint {
	points := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = types.PricePoint{Timestamp: start.Add(time.Duration(i) * step), Price: p}
	}
	return points
}

func TestRealizedVolatility(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		points  []types.PricePoint
		want    float64
		wantErr error
	}{
		{
			name:    "no points",
			points:  nil,
			wantErr: ErrInsufficientData,
		},
		{
			name:    "single point",
			points:  pricePoints(start, time.Hour, 50_000),
			wantErr: ErrInsufficientData,
		},
		{
			name:    "all non-positive prices",
			points:  pricePoints(start, time.Hour, 0, -1, 0),
			wantErr: ErrInsufficientData,
		},
		{
			name:   "constant series has zero volatility",
			points: pricePoints(start, time.Hour, 50_000, 50_000, 50_000, 50_000),
			want:   0,
		},
		{
			name:   "alternating two percent moves",
			points: pricePoints(start, time.Hour, 100, 102, 100, 102, 100),
			// Each |log return| is log(1.02); the mean is close to zero, so
			// the stddev is close to log(1.02) itself.
			want: math.Abs(math.Log(1.02)) * math.Sqrt(8760),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RealizedVolatility(tt.points, 8760)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.want*0.01+1e-12)
		})
	}
}

func TestRealizedVolatility_UnsortedInput(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	sorted := pricePoints(start, time.Hour, 100, 105, 98, 103)
	shuffled := []types.PricePoint{sorted[2], sorted[0], sorted[3], sorted[1]}

	want, err := RealizedVolatility(sorted, 8760)
	require.NoError(t, err)
	got, err := RealizedVolatility(shuffled, 8760)
	require.NoError(t, err)

	assert.InDelta(t, want, got, 1e-12)
}

func TestRealizedVolatility_SkipsNonPositivePairs(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	// The zero inside the series breaks the returns touching it but does not
	// fail the calculation.
	points := pricePoints(start, time.Hour, 100, 0, 100, 100)
	got, err := RealizedVolatility(points, 8760)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
