package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PullFrom(t *testing.T) {
	m := NewMemory("reserve")
	m.Credit("alice", sdkmath.NewInt(1_000))

	require.NoError(t, m.PullFrom("alice", sdkmath.NewInt(400)))
	assert.Equal(t, sdkmath.NewInt(600), m.Balance("alice"))
	assert.Equal(t, sdkmath.NewInt(400), m.Balance("reserve"))
}

func TestMemory_PushTo(t *testing.T) {
	m := NewMemory("reserve")
	m.Credit("reserve", sdkmath.NewInt(1_000))

	require.NoError(t, m.PushTo("bob", sdkmath.NewInt(250)))
	assert.Equal(t, sdkmath.NewInt(250), m.Balance("bob"))
	assert.Equal(t, sdkmath.NewInt(750), m.Balance("reserve"))
}

func TestMemory_InsufficientFunds(t *testing.T) {
	m := NewMemory("reserve")
	m.Credit("alice", sdkmath.NewInt(100))

	err := m.PullFrom("alice", sdkmath.NewInt(101))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moves on failure.
	assert.Equal(t, sdkmath.NewInt(100), m.Balance("alice"))
	assert.True(t, m.Balance("reserve").IsZero())
}

func TestMemory_UnknownAccountHasZeroBalance(t *testing.T) {
	m := NewMemory("reserve")

	assert.True(t, m.Balance("nobody").IsZero())
	assert.ErrorIs(t, m.PullFrom("nobody", sdkmath.NewInt(1)), ErrInsufficientFunds)
}

func TestMemory_RejectsNonPositiveTransfers(t *testing.T) {
	m := NewMemory("reserve")
	m.Credit("alice", sdkmath.NewInt(100))

	assert.ErrorIs(t, m.PullFrom("alice", sdkmath.ZeroInt()), ErrInvalidTransfer)
	assert.ErrorIs(t, m.PushTo("alice", sdkmath.NewInt(-5)), ErrInvalidTransfer)
	assert.Equal(t, sdkmath.NewInt(100), m.Balance("alice"))
}

func TestMemory_CreditAccumulates(t *testing.T) {
	m := NewMemory("reserve")
	m.Credit("alice", sdkmath.NewInt(100))
	m.Credit("alice", sdkmath.NewInt(50))

	assert.Equal(t, sdkmath.NewInt(150), m.Balance("alice"))
}
