package oracle

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrafi/dmm/internal/types"
)

func TestScalePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    sdkmath.Int
		wantErr bool
	}{
		{name: "integer price", raw: "50000", want: sdkmath.NewInt(5_000_000_000_000)},
		{name: "decimal price", raw: "50123.45", want: sdkmath.NewInt(5_012_345_000_000)},
		{name: "full precision", raw: "0.00000001", want: sdkmath.NewInt(1)},
		{name: "excess precision truncates", raw: "1.000000019", want: sdkmath.NewInt(100_000_001)},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "negative rejected", raw: "-50000", wantErr: true},
		{name: "rounds to zero rejected", raw: "0.000000001", wantErr: true},
		{name: "garbage rejected", raw: "not-a-price", wantErr: true},
		{name: "empty rejected", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scalePrice(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPriceData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_GetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"instrument": 1, "price": "50000", "timestamp": 1700000000}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	price, err := client.GetPrice(types.InstrumentID(1))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(5_000_000_000_000), price)
}

func TestClient_GetPrice_InstrumentMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"instrument": 2, "price": "50000", "timestamp": 1700000000}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.GetPrice(types.InstrumentID(1))
	assert.ErrorIs(t, err, ErrOracleUnreachable)
	assert.ErrorIs(t, err, ErrInvalidPriceData)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := NewStatic()

	_, err := s.GetPrice(types.InstrumentID(1))
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	s.SetPrice(types.InstrumentID(1), sdkmath.NewInt(42))
	price, err := s.GetPrice(types.InstrumentID(1))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(42), price)
}
