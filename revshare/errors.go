package revshare

import "errors"

var (
	// ErrInvalidStateData indicates serialized global state is malformed.
	ErrInvalidStateData = errors.New("revshare: invalid state data")

	// ErrInvalidAccountData indicates a serialized holder account is malformed.
	ErrInvalidAccountData = errors.New("revshare: invalid account data")

	// ErrValueTooLarge indicates a quantity does not fit the 256-bit wire format.
	ErrValueTooLarge = errors.New("revshare: value exceeds 256 bits")

	// ErrNegativeValue indicates a quantity that must be unsigned is negative.
	ErrNegativeValue = errors.New("revshare: negative value")

	// ErrShareUnderflow indicates a share debit larger than the balance it draws on.
	ErrShareUnderflow = errors.New("revshare: share balance underflow")

	// ErrNothingToClaim indicates the holder has no pending payout.
	ErrNothingToClaim = errors.New("revshare: nothing to claim")

	// ErrShareConservationViolation indicates total shares differ from the holder sum.
	ErrShareConservationViolation = errors.New("revshare: share conservation violated")

	// ErrRevenueAccounting indicates claimed > distributed or distributed > received.
	ErrRevenueAccounting = errors.New("revshare: revenue accounting violated")

	// ErrStaleSettlement indicates a holder's snapshot is ahead of the global counter.
	ErrStaleSettlement = errors.New("revshare: holder snapshot ahead of accumulator")
)
