package oracle

import "errors"

var (
	// ErrInsufficientLiquidity indicates a reserve below the minimum-liquidity floor.
	ErrInsufficientLiquidity = errors.New("oracle: insufficient DEX liquidity")

	// ErrInvalidPrice indicates a non-positive price.
	ErrInvalidPrice = errors.New("oracle: invalid price")

	// ErrStalePrice indicates the price is older than the staleness window.
	ErrStalePrice = errors.New("oracle: stale price")

	// ErrInvalidAmount indicates a malformed decimal amount.
	ErrInvalidAmount = errors.New("oracle: invalid amount")
)
