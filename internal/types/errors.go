package types

import "errors"

// Terminal failure taxonomy shared by the pricing engine and the
// settlement coordinator. Every failure aborts the whole enclosing
// operation with no partial state committed; retry is the caller's
// responsibility.
var (
	// ErrUnauthorized is returned when the caller lacks the required role
	// for a mutating admin operation.
	ErrUnauthorized = errors.New("caller is not authorized for this operation")
	// ErrInvalidParameter is returned when a fee-bound invariant would be
	// violated by a config update.
	ErrInvalidParameter = errors.New("fee parameter violates configured bounds")
	// ErrInvalidAmount is returned for zero or otherwise malformed
	// liquidity/swap amounts, or an insufficient share balance.
	ErrInvalidAmount = errors.New("amount is zero or malformed")
	// ErrInsufficientLiquidity is returned on a pool floor breach or an
	// oversized withdrawal/sell.
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	// ErrSlippageExceeded is returned when the quoted output is below the
	// caller's minimum.
	ErrSlippageExceeded = errors.New("output amount below caller minimum")
	// ErrTransferFailed wraps a value-transfer collaborator failure.
	ErrTransferFailed = errors.New("value transfer failed")
)
