package forge

import (
	"errors"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/token"
)

var (
	// ErrCooldownActive indicates the holder acted again before their cooldown expired.
	ErrCooldownActive = errors.New("forge: cooldown still active")

	// ErrZeroCost indicates the quoted burn amount rounds to zero.
	ErrZeroCost = errors.New("forge: mint cost rounds to zero")

	// ErrNoTrackedShares indicates fusion inputs carry no attributable shares.
	ErrNoTrackedShares = errors.New("forge: no tracked shares for identity")

	// ErrSharesTooSmall indicates a mint would produce zero shares.
	ErrSharesTooSmall = errors.New("forge: resulting shares too small")

	// ErrNothingToClaim indicates the holder has no pending payout.
	ErrNothingToClaim = revshare.ErrNothingToClaim

	// ErrNothingToWithdraw indicates an emergency withdrawal with an empty balance.
	ErrNothingToWithdraw = errors.New("forge: nothing to withdraw")

	// ErrUnknownRequest indicates a fulfillment for a handle that is not pending.
	ErrUnknownRequest = errors.New("forge: unknown or already fulfilled request")

	// ErrDuplicateRequest indicates the randomness provider reissued a pending handle.
	ErrDuplicateRequest = errors.New("forge: duplicate request handle")

	// ErrMaxTier indicates fusion of a tier that has no higher tier.
	ErrMaxTier = errors.New("forge: cannot fuse beyond the top tier")

	// ErrInsufficientInstances indicates fewer instances than a fusion consumes.
	ErrInsufficientInstances = errors.New("forge: not enough instances to fuse")

	// ErrUnknownCategory indicates a category with no configured cost or shares.
	ErrUnknownCategory = errors.New("forge: unknown category")

	// ErrInvalidRandom indicates a missing random value.
	ErrInvalidRandom = errors.New("forge: invalid random value")

	// ErrRandomness indicates the randomness provider refused a request.
	ErrRandomness = errors.New("forge: randomness request failed")

	// ErrReentrant indicates an entry point was called during an outbound call.
	ErrReentrant = errors.New("forge: reentrant call")

	// ErrInvalidHolder indicates a malformed holder address.
	ErrInvalidHolder = errors.New("forge: invalid holder")

	// ErrInvalidParam indicates an admin input outside its allowed range.
	ErrInvalidParam = errors.New("forge: parameter out of range")

	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("forge: amount must be positive")

	// ErrMissingDependency indicates an engine built without a collaborator.
	ErrMissingDependency = errors.New("forge: missing dependency")

	// ErrBurnFailed indicates the irrevocable consumption step failed.
	ErrBurnFailed = errors.New("forge: burn failed")

	// ErrMintFailed indicates the collectible ledger refused to mint.
	ErrMintFailed = errors.New("forge: collectible mint failed")

	// ErrTransferFailed indicates an outbound payment failed.
	ErrTransferFailed = errors.New("forge: outbound transfer failed")

	// ErrInsufficientFunds indicates a payout larger than the held balance.
	ErrInsufficientFunds = errors.New("forge: insufficient held balance")
)

// Class groups rejections by cause.
type Class int

const (
	ClassUnknown Class = iota
	ClassLiquidity
	ClassOracle
	ClassTiming
	ClassEconomic
	ClassProtocol
	ClassParameter
	ClassTransfer
)

func (c Class) String() string {
	switch c {
	case ClassLiquidity:
		return "liquidity"
	case ClassOracle:
		return "oracle"
	case ClassTiming:
		return "timing"
	case ClassEconomic:
		return "economic"
	case ClassProtocol:
		return "protocol"
	case ClassParameter:
		return "parameter"
	case ClassTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

var classes = []struct {
	class Class
	errs  []error
}{
	{ClassLiquidity, []error{oracle.ErrInsufficientLiquidity}},
	{ClassOracle, []error{oracle.ErrInvalidPrice, oracle.ErrStalePrice}},
	{ClassTiming, []error{ErrCooldownActive}},
	{ClassTransfer, []error{ErrTransferFailed, ErrInsufficientFunds, ErrBurnFailed, token.ErrInsufficientBalance}},
	{ClassEconomic, []error{ErrZeroCost, ErrNoTrackedShares, ErrSharesTooSmall, ErrNothingToClaim,
		ErrNothingToWithdraw, revshare.ErrShareUnderflow}},
	{ClassProtocol, []error{ErrUnknownRequest, ErrDuplicateRequest, ErrMaxTier, ErrInsufficientInstances,
		ErrInvalidRandom, ErrRandomness, ErrReentrant, ErrMintFailed, ErrInvalidHolder, ErrUnknownCategory,
		collectible.ErrInsufficientBalance}},
	{ClassParameter, []error{ErrInvalidParam, ErrInvalidAmount, oracle.ErrInvalidAmount}},
}

// ErrorClass returns the rejection class of err.
func ErrorClass(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	for _, c := range classes {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.class
			}
		}
	}
	return ClassUnknown
}
