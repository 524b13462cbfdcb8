package pricing

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrafi/dmm/internal/oracle"
	"github.com/quantrafi/dmm/internal/types"
)

const (
	testOwner      = "strategist"
	testReporter   = "settlement"
	testInstrument = types.InstrumentID(1)
)

func price1e8(units int64) sdkmath.Int {
	return sdkmath.NewInt(units).Mul(sdkmath.NewInt(100_000_000))
}

func testFeeConfig() types.FeeConfig {
	return types.FeeConfig{
		BaseBidFee:           30,
		BaseAskFee:           30,
		MinFee:               5,
		MaxFee:               100,
		VolatilityMultiplier: 100,
		InventoryMultiplier:  100,
		VolatilityWindow:     time.Hour,
	}
}

type fixture struct {
	engine *Engine
	oracle *oracle.Static
	now    *time.Time
}

func newFixture(t *testing.T, cfg types.FeeConfig) *fixture {
	t.Helper()

	src := oracle.NewStatic()
	src.SetPrice(testInstrument, price1e8(50_000))

	now := time.Unix(1_700_000_000, 0)
	f := &fixture{oracle: src, now: &now}

	engine, err := NewEngine(Config{
		Oracle:    src,
		Owner:     testOwner,
		Reporter:  testReporter,
		FeeConfig: cfg,
		Clock:     func() time.Time { return *f.now },
	})
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) refresh(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.RefreshPriceSample(testReporter, testInstrument))
}

func TestNewEngine_RejectsInvalidBounds(t *testing.T) {
	cfg := testFeeConfig()
	cfg.MinFee = 200 // above MaxFee

	_, err := NewEngine(Config{
		Oracle:    oracle.NewStatic(),
		Owner:     testOwner,
		FeeConfig: cfg,
	})
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestQuoteFees_BaselineNoSample(t *testing.T) {
	f := newFixture(t, testFeeConfig())

	// No sample yet: volatility contributes nothing.
	bidFee, err := f.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	askFee, err := f.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)

	assert.Equal(t, uint64(30), bidFee)
	assert.Equal(t, uint64(30), askFee)
}

func TestQuoteFees_VolatilityAdjustment(t *testing.T) {
	f := newFixture(t, testFeeConfig())
	f.refresh(t)

	// 2% move against the sample: 200 bps change / 10 = 20 bps adjustment.
	f.oracle.SetPrice(testInstrument, price1e8(51_000))

	bidFee, err := f.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.Equal(t, uint64(50), bidFee)

	askFee, err := f.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.Equal(t, uint64(50), askFee)
}

func TestQuoteFees_StaleSampleIgnored(t *testing.T) {
	f := newFixture(t, testFeeConfig())
	f.refresh(t)
	f.oracle.SetPrice(testInstrument, price1e8(60_000))

	// Age the sample past the volatility window.
	*f.now = f.now.Add(2 * time.Hour)

	bidFee, err := f.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), bidFee)
}

func TestQuoteFees_SkewDiscountAndSurcharge(t *testing.T) {
	f := newFixture(t, testFeeConfig())

	// +1000 skew with multiplier 100: 1000 * 100 / 10000 = 10 bps shift.
	require.NoError(t, f.engine.ReportInventoryDelta(testReporter, sdkmath.NewInt(1000)))

	bidFee, err := f.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	askFee, err := f.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)

	assert.Equal(t, uint64(20), bidFee, "long desk discounts sells")
	assert.Equal(t, uint64(40), askFee, "long desk surcharges buys")
}

func TestQuoteFees_SkewSymmetry(t *testing.T) {
	plus := newFixture(t, testFeeConfig())
	minus := newFixture(t, testFeeConfig())

	k := sdkmath.NewInt(2500)
	require.NoError(t, plus.engine.ReportInventoryDelta(testReporter, k))
	require.NoError(t, minus.engine.ReportInventoryDelta(testReporter, k.Neg()))

	plusBid, err := plus.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	plusAsk, err := plus.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	minusBid, err := minus.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)
	minusAsk, err := minus.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
	require.NoError(t, err)

	// Flipping the skew sign swaps the discount/premium roles exactly.
	assert.Equal(t, plusBid, minusAsk)
	assert.Equal(t, plusAsk, minusBid)
}

func TestQuoteFees_AlwaysWithinBounds(t *testing.T) {
	tests := []struct {
		name string
		skew sdkmath.Int
	}{
		{"zero skew", sdkmath.ZeroInt()},
		{"small positive", sdkmath.NewInt(100)},
		{"small negative", sdkmath.NewInt(-100)},
		{"extreme positive", sdkmath.NewIntWithDecimal(1, 18)},
		{"extreme negative", sdkmath.NewIntWithDecimal(1, 18).Neg()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testFeeConfig())
			require.NoError(t, f.engine.ReportInventoryDelta(testReporter, tt.skew))

			bidFee, err := f.engine.QuoteBidFee(testInstrument, sdkmath.ZeroInt())
			require.NoError(t, err)
			askFee, err := f.engine.QuoteAskFee(testInstrument, sdkmath.ZeroInt())
			require.NoError(t, err)

			cfg := f.engine.FeeConfig()
			assert.GreaterOrEqual(t, bidFee, cfg.MinFee)
			assert.LessOrEqual(t, bidFee, cfg.MaxFee)
			assert.GreaterOrEqual(t, askFee, cfg.MinFee)
			assert.LessOrEqual(t, askFee, cfg.MaxFee)
		})
	}
}

func TestReportInventoryDelta_Accumulates(t *testing.T) {
	f := newFixture(t, testFeeConfig())

	require.NoError(t, f.engine.ReportInventoryDelta(testReporter, sdkmath.NewInt(1000)))
	assert.Equal(t, sdkmath.NewInt(1000), f.engine.InventorySkew())

	require.NoError(t, f.engine.ReportInventoryDelta(testReporter, sdkmath.NewInt(-1500)))
	assert.Equal(t, sdkmath.NewInt(-500), f.engine.InventorySkew())
}

func TestReporterGating(t *testing.T) {
	f := newFixture(t, testFeeConfig())

	err := f.engine.ReportInventoryDelta("stranger", sdkmath.NewInt(1))
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.engine.RefreshPriceSample("stranger", testInstrument)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	// The owner may also drive the open mutators.
	assert.NoError(t, f.engine.ReportInventoryDelta(testOwner, sdkmath.NewInt(1)))
	assert.NoError(t, f.engine.RefreshPriceSample(testOwner, testInstrument))

	assert.False(t, f.engine.AcceptsReporter("stranger"))
	assert.True(t, f.engine.AcceptsReporter(testReporter))
	assert.True(t, f.engine.AcceptsReporter(testOwner))
}

func TestReporterGating_OpenWhenUnbound(t *testing.T) {
	src := oracle.NewStatic()
	src.SetPrice(testInstrument, price1e8(50_000))

	engine, err := NewEngine(Config{
		Oracle:    src,
		Owner:     testOwner,
		FeeConfig: testFeeConfig(),
	})
	require.NoError(t, err)

	assert.NoError(t, engine.ReportInventoryDelta("anyone", sdkmath.NewInt(1)))
	assert.NoError(t, engine.RefreshPriceSample("anyone", testInstrument))
	assert.True(t, engine.AcceptsReporter("anyone"))
}

func TestRefreshPriceSample_RejectsZeroPrice(t *testing.T) {
	f := newFixture(t, testFeeConfig())
	f.oracle.SetPrice(testInstrument, sdkmath.ZeroInt())

	err := f.engine.RefreshPriceSample(testReporter, testInstrument)
	assert.ErrorIs(t, err, ErrInvalidSample)
	assert.True(t, f.engine.PriceSample().IsZero(), "rejected reading must not become the sample")
}

func TestUpdateFeeConfig(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		mutate  func(*types.FeeConfig)
		wantErr error
	}{
		{
			name:   "valid update",
			caller: testOwner,
			mutate: func(c *types.FeeConfig) { c.BaseBidFee = 15 },
		},
		{
			name:    "min above max",
			caller:  testOwner,
			mutate:  func(c *types.FeeConfig) { c.MinFee = c.MaxFee + 1 },
			wantErr: types.ErrInvalidParameter,
		},
		{
			name:    "base bid above max",
			caller:  testOwner,
			mutate:  func(c *types.FeeConfig) { c.BaseBidFee = c.MaxFee + 1 },
			wantErr: types.ErrInvalidParameter,
		},
		{
			name:    "base ask above max",
			caller:  testOwner,
			mutate:  func(c *types.FeeConfig) { c.BaseAskFee = c.MaxFee + 1 },
			wantErr: types.ErrInvalidParameter,
		},
		{
			name:    "unauthorized caller",
			caller:  "stranger",
			mutate:  func(c *types.FeeConfig) { c.BaseBidFee = 15 },
			wantErr: types.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testFeeConfig())
			before := f.engine.FeeConfig()

			newCfg := testFeeConfig()
			tt.mutate(&newCfg)

			err := f.engine.UpdateFeeConfig(tt.caller, newCfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, f.engine.FeeConfig(), "rejected update must leave config unchanged")
				return
			}

			require.NoError(t, err)
			after := f.engine.FeeConfig()
			assert.Equal(t, newCfg.BaseBidFee, after.BaseBidFee)
			assert.Equal(t, newCfg.MaxFee, after.MaxFee)
			// Multipliers and window are not touched by a bounds update.
			assert.Equal(t, before.VolatilityMultiplier, after.VolatilityMultiplier)
			assert.Equal(t, before.VolatilityWindow, after.VolatilityWindow)
		})
	}
}

func TestUpdateMultipliers(t *testing.T) {
	f := newFixture(t, testFeeConfig())

	assert.ErrorIs(t, f.engine.UpdateMultipliers("stranger", 1, 1), types.ErrUnauthorized)

	require.NoError(t, f.engine.UpdateMultipliers(testOwner, 250, 75))
	cfg := f.engine.FeeConfig()
	assert.Equal(t, uint64(250), cfg.VolatilityMultiplier)
	assert.Equal(t, uint64(75), cfg.InventoryMultiplier)
}
