/*

This file implements an in-process quote-token ledger. It stands in for the
external value-transfer collaborator: real token custody is out of scope,
but settlement still needs transfers that can fail and must be atomic.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/quantrafi/dmm/internal/logger"
)

var ledgerLogger = logger.GetForComponent("memory_ledger")

var (
	ErrUnknownAccount    = errors.New("account does not exist")
	ErrInsufficientFunds = errors.New("account balance is insufficient")
	ErrInvalidTransfer   = errors.New("transfer amount must be positive")
)

// Memory is a thread-safe in-memory ledger keyed by account identity.
// The pool reserve is an ordinary account fixed at construction.
type Memory struct {
	mu       sync.Mutex
	reserve  string
	balances map[string]sdkmath.Int
}

// NewMemory creates a ledger with the given reserve account, starting at a
// zero reserve balance.
func NewMemory(reserveAccount string) *Memory {
	return &Memory{
		reserve: reserveAccount,
		balances: map[string]sdkmath.Int{
			reserveAccount: sdkmath.ZeroInt(),
		},
	}
}

// Credit mints amount into an account. Used to seed balances; not part of
// the TransferService surface.
func (m *Memory) Credit(account string, amount sdkmath.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = m.balanceLocked(account).Add(amount)
}

// Balance returns the current balance of an account (zero for unknown
// accounts).
func (m *Memory) Balance(account string) sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(account)
}

// PullFrom moves amount from account into the pool reserve.
func (m *Memory) PullFrom(account string, amount sdkmath.Int) error {
	return m.transfer(account, m.reserve, amount)
}

// PushTo moves amount from the pool reserve to account.
func (m *Memory) PushTo(account string, amount sdkmath.Int) error {
	return m.transfer(m.reserve, account, amount)
}

// transfer performs an all-or-nothing balance move.
func (m *Memory) transfer(from, to string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return ErrInvalidTransfer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fromBal := m.balanceLocked(from)
	if fromBal.LT(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s",
			ErrInsufficientFunds, from, fromBal.String(), amount.String())
	}

	m.balances[from] = fromBal.Sub(amount)
	m.balances[to] = m.balanceLocked(to).Add(amount)

	ledgerLogger.Debug().
		Str("from", from).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("Transfer settled")
	return nil
}

func (m *Memory) balanceLocked(account string) sdkmath.Int {
	if bal, ok := m.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}
