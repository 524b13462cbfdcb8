package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// TransferService defines the interface for moving quote-token value
// between accounts. Both operations are atomic and synchronous from the
// caller's perspective: on error no value has moved, and the caller must
// abort its enclosing operation without committing partial state.
//
// The settlement coordinator pulls value in on deposits and buy-side
// swaps, and pushes value out on withdrawals and sell-side swaps.
type TransferService interface {
	// PullFrom debits amount from the account into the pool reserve.
	PullFrom(account string, amount sdkmath.Int) error

	// PushTo credits amount from the pool reserve to the account.
	PushTo(account string, amount sdkmath.Int) error
}
