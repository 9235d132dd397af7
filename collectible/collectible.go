// Package collectible is the ownership ledger for minted relic instances.
//
// Instances of the same Identity (category x tier) are fungible with each
// other. Balances can only be created by Mint and destroyed by Burn: any
// movement between two non-empty holders is rejected.
package collectible

import (
	"context"
	"fmt"
)

// Tier is the quality rank of an instance.
type Tier uint8

const (
	TierCommon Tier = iota
	TierFine
	TierRare
	TierEpic
	TierLegendary
	TierMythic
)

// NumTiers is the number of tiers; TopTier cannot be fused further.
const (
	NumTiers = 6
	TopTier  = TierMythic
)

func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierFine:
		return "fine"
	case TierRare:
		return "rare"
	case TierEpic:
		return "epic"
	case TierLegendary:
		return "legendary"
	case TierMythic:
		return "mythic"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool { return t < NumTiers }

// ParseTier accepts a tier name or its numeric index.
func ParseTier(s string) (Tier, error) {
	for t := TierCommon; t < NumTiers; t++ {
		if s == t.String() || s == fmt.Sprint(uint8(t)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// Identity names a fungible class of instances.
type Identity struct {
	Category uint32 `json:"category"`
	Tier     Tier   `json:"tier"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%d/%s", id.Category, id.Tier)
}

// Ledger is the contract the engine requires of the ownership ledger.
type Ledger interface {
	// Mint creates count instances of id for holder.
	Mint(ctx context.Context, holder string, id Identity, count uint64) error

	// Burn destroys count instances of id held by holder. It fails without
	// side effects when the balance is insufficient.
	Burn(ctx context.Context, holder string, id Identity, count uint64) error

	// BalanceOf returns how many instances of id holder owns.
	BalanceOf(ctx context.Context, holder string, id Identity) (uint64, error)
}
