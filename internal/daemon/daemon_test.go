package daemon

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrafi/dmm/internal/amm"
	"github.com/quantrafi/dmm/internal/ledger"
	"github.com/quantrafi/dmm/internal/oracle"
	"github.com/quantrafi/dmm/internal/pricing"
	"github.com/quantrafi/dmm/internal/types"
)

const (
	testCoordID    = "settlement-test"
	testInstrument = types.InstrumentID(1)
)

// newDaemonHarness wires a daemon over a static oracle and an in-memory
// ledger. Persistence is left uninitialized: cycle-counter and snapshot
// failures are tolerated, so cycles run without a database.
func newDaemonHarness(t *testing.T, src *oracle.Static) (*Daemon, *pricing.Engine) {
	t.Helper()

	engine, err := pricing.NewEngine(pricing.Config{
		Oracle:   src,
		Owner:    "strategist",
		Reporter: testCoordID,
		FeeConfig: types.FeeConfig{
			BaseBidFee: 10, BaseAskFee: 10, MaxFee: 200,
			VolatilityMultiplier: 100,
			VolatilityWindow:     time.Hour,
		},
	})
	require.NoError(t, err)

	coordinator, err := amm.NewCoordinator(amm.Config{
		ID:           testCoordID,
		Engine:       engine,
		Oracle:       src,
		Transfers:    ledger.NewMemory("reserve"),
		Instrument:   testInstrument,
		MinLiquidity: sdkmath.ZeroInt(),
	})
	require.NoError(t, err)

	d, err := NewDaemon(Config{Engine: engine, Coordinator: coordinator})
	require.NoError(t, err)
	return d, engine
}

func pricedSource() *oracle.Static {
	src := oracle.NewStatic()
	src.SetPrice(testInstrument, sdkmath.NewInt(50_000).Mul(sdkmath.NewInt(100_000_000)))
	return src
}

func TestNewDaemon_RequiresDependencies(t *testing.T) {
	_, err := NewDaemon(Config{})
	assert.Error(t, err)

	_, engine := newDaemonHarness(t, pricedSource())
	_, err = NewDaemon(Config{Engine: engine})
	assert.Error(t, err)
}

func TestRunCycle_RefreshesPriceSample(t *testing.T) {
	d, engine := newDaemonHarness(t, pricedSource())
	require.True(t, engine.PriceSample().IsZero())

	d.RunCycle(context.Background())

	sample := engine.PriceSample()
	require.False(t, sample.IsZero())
	assert.Equal(t, sdkmath.NewInt(5_000_000_000_000), sample.LastPrice)
}

func TestRunCycle_AbortsWithoutOraclePrice(t *testing.T) {
	d, engine := newDaemonHarness(t, oracle.NewStatic())

	d.RunCycle(context.Background())

	assert.True(t, engine.PriceSample().IsZero(), "no sample without an oracle reading")
}

func TestRunLoop_FirstCycleImmediateAndStopsOnCancel(t *testing.T) {
	d, engine := newDaemonHarness(t, pricedSource())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.RunLoop(ctx, time.Hour)
		close(done)
	}()

	// The first cycle runs before the first tick.
	require.Eventually(t, func() bool {
		return !engine.PriceSample().IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not return after context cancellation")
	}
}
