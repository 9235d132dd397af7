// Package revshare implements the share/dividend accumulator: a global share
// total, a per-share cumulative revenue counter, and per-holder settlement.
//
// Revenue is never pushed to holders. Instead every arriving unit raises
// RevenuePerShare by amount/TotalShares, and each holder banks
// shares * (RevenuePerShare - LastRevenuePerShare) whenever their share
// balance is about to change or they claim.
package revshare

import "math/big"

// Holder identifies a shareholder account.
type Holder string

// GlobalState is the pool-wide accumulator state.
type GlobalState struct {
	TotalShares      *big.Int // Sum of all holder shares
	RevenuePerShare  *big.Int // Cumulative revenue per share, scaled by Scale
	DistributedTotal *big.Int // Revenue folded into RevenuePerShare so far
	ClaimedTotal     *big.Int // Revenue paid out to holders so far
}

// NewGlobalState returns a zeroed state.
func NewGlobalState() GlobalState {
	return GlobalState{
		TotalShares:      new(big.Int),
		RevenuePerShare:  new(big.Int),
		DistributedTotal: new(big.Int),
		ClaimedTotal:     new(big.Int),
	}
}

// Clone returns a deep copy.
func (s GlobalState) Clone() GlobalState {
	return GlobalState{
		TotalShares:      cloneInt(s.TotalShares),
		RevenuePerShare:  cloneInt(s.RevenuePerShare),
		DistributedTotal: cloneInt(s.DistributedTotal),
		ClaimedTotal:     cloneInt(s.ClaimedTotal),
	}
}

// Outstanding returns revenue that has been distributed but not yet claimed.
func (s GlobalState) Outstanding() *big.Int {
	return new(big.Int).Sub(s.DistributedTotal, s.ClaimedTotal)
}

// HolderAccount is one holder's record in the ledger.
type HolderAccount struct {
	Shares              *big.Int
	LastRevenuePerShare *big.Int // Snapshot of RevenuePerShare at last settlement
	PendingPayout       *big.Int // Banked but unclaimed revenue
	CooldownUntil       int64    // Unix seconds; actions are gated until then
}

// NewHolderAccount returns a zeroed account.
func NewHolderAccount() HolderAccount {
	return HolderAccount{
		Shares:              new(big.Int),
		LastRevenuePerShare: new(big.Int),
		PendingPayout:       new(big.Int),
	}
}

// Clone returns a deep copy.
func (a HolderAccount) Clone() HolderAccount {
	return HolderAccount{
		Shares:              cloneInt(a.Shares),
		LastRevenuePerShare: cloneInt(a.LastRevenuePerShare),
		PendingPayout:       cloneInt(a.PendingPayout),
		CooldownUntil:       a.CooldownUntil,
	}
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
