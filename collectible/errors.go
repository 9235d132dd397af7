package collectible

import "errors"

var (
	// ErrNonTransferable indicates a transfer between two non-empty holders.
	ErrNonTransferable = errors.New("collectible: instances are non-transferable")

	// ErrInsufficientBalance indicates a burn larger than the holder's balance.
	ErrInsufficientBalance = errors.New("collectible: insufficient balance")

	// ErrInvalidTier indicates a tier outside the known range.
	ErrInvalidTier = errors.New("collectible: invalid tier")

	// ErrZeroCount indicates a mint or burn of zero instances.
	ErrZeroCount = errors.New("collectible: zero instance count")

	// ErrEmptyHolder indicates a mint or burn without a holder.
	ErrEmptyHolder = errors.New("collectible: empty holder")
)
