package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKIntToFloat64(t *testing.T) {
	tests := []struct {
		name      string
		amount    sdkmath.Int
		precision int
		want      float64
		wantErr   error
	}{
		{name: "zero precision", amount: sdkmath.NewInt(12345), precision: 0, want: 12345},
		{name: "price scale", amount: sdkmath.NewInt(5_000_000_000_000), precision: 8, want: 50_000},
		{name: "fractional result", amount: sdkmath.NewInt(150_000_000), precision: 8, want: 1.5},
		{name: "negative skew", amount: sdkmath.NewInt(-499_000), precision: 0, want: -499_000},
		{name: "nil amount", amount: sdkmath.Int{}, precision: 0, wantErr: ErrAmountNil},
		{name: "negative precision", amount: sdkmath.NewInt(1), precision: -1, wantErr: ErrInvalidPrecision},
		{name: "excessive precision", amount: sdkmath.NewInt(1), precision: 19, wantErr: ErrInvalidPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SDKIntToFloat64(tt.amount, tt.precision)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFormatScaled(t *testing.T) {
	assert.Equal(t, "50000", FormatScaled(sdkmath.NewInt(5_000_000_000_000), 8))
	assert.Equal(t, "50123.45", FormatScaled(sdkmath.NewInt(5_012_345_000_000), 8))
	assert.Equal(t, "0.00000001", FormatScaled(sdkmath.NewInt(1), 8))
	assert.Equal(t, "-1.5", FormatScaled(sdkmath.NewInt(-150_000_000), 8))
	assert.Equal(t, "42", FormatScaled(sdkmath.NewInt(42), 0))
	assert.Equal(t, "0", FormatScaled(sdkmath.Int{}, 8))
}

func TestMetricValue(t *testing.T) {
	assert.Equal(t, 1_000_000.0, MetricValue(sdkmath.NewInt(1_000_000)))
	assert.Equal(t, -42.0, MetricValue(sdkmath.NewInt(-42)))
	assert.Equal(t, 0.0, MetricValue(sdkmath.Int{}))
}
