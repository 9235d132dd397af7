package revshare

import (
	"fmt"
	"math/big"
	"sort"
)

// Ledger owns the accumulator state and every holder account. It is not safe
// for concurrent use; the owner serializes access.
type Ledger struct {
	state    GlobalState
	accounts map[Holder]*HolderAccount
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		state:    NewGlobalState(),
		accounts: make(map[Holder]*HolderAccount),
	}
}

// RestoreLedger rebuilds a ledger from a snapshot. Inputs are copied.
func RestoreLedger(state GlobalState, accounts map[Holder]HolderAccount) *Ledger {
	l := &Ledger{
		state:    state.Clone(),
		accounts: make(map[Holder]*HolderAccount, len(accounts)),
	}
	for h, a := range accounts {
		acct := a.Clone()
		l.accounts[h] = &acct
	}
	return l
}

// State returns a copy of the global state.
func (l *Ledger) State() GlobalState { return l.state.Clone() }

// TotalShares returns a copy of the pool's share total.
func (l *Ledger) TotalShares() *big.Int { return new(big.Int).Set(l.state.TotalShares) }

// Account returns a copy of the holder's account, zeroed if unknown.
func (l *Ledger) Account(h Holder) HolderAccount {
	if a, ok := l.accounts[h]; ok {
		return a.Clone()
	}
	return NewHolderAccount()
}

// Accounts returns a copy of every holder account.
func (l *Ledger) Accounts() map[Holder]HolderAccount {
	out := make(map[Holder]HolderAccount, len(l.accounts))
	for h, a := range l.accounts {
		out[h] = a.Clone()
	}
	return out
}

// Holders returns all known holders in sorted order.
func (l *Ledger) Holders() []Holder {
	out := make([]Holder, 0, len(l.accounts))
	for h := range l.accounts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *Ledger) account(h Holder) *HolderAccount {
	a, ok := l.accounts[h]
	if !ok {
		acct := NewHolderAccount()
		a = &acct
		l.accounts[h] = a
	}
	return a
}

// Settle banks the holder's share of revenue accrued since their last
// settlement and snapshots the accumulator. It returns the pending payout.
// Division rounds down; the dust is never distributed.
func (l *Ledger) Settle(h Holder) *big.Int {
	a := l.account(h)
	if a.Shares.Sign() > 0 {
		delta := new(big.Int).Sub(l.state.RevenuePerShare, a.LastRevenuePerShare)
		a.PendingPayout.Add(a.PendingPayout, MulDiv(a.Shares, delta, Scale))
	}
	a.LastRevenuePerShare.Set(l.state.RevenuePerShare)
	return new(big.Int).Set(a.PendingPayout)
}

// AdjustShares settles the holder and then applies a signed share delta to
// both the holder and the pool total. Nothing changes when either balance
// would go negative.
func (l *Ledger) AdjustShares(h Holder, delta *big.Int) error {
	a := l.account(h)
	shares := new(big.Int).Add(a.Shares, delta)
	if shares.Sign() < 0 {
		return fmt.Errorf("%w: holder %s has %s, delta %s", ErrShareUnderflow, h, a.Shares, delta)
	}
	total := new(big.Int).Add(l.state.TotalShares, delta)
	if total.Sign() < 0 {
		return fmt.Errorf("%w: pool has %s, delta %s", ErrShareUnderflow, l.state.TotalShares, delta)
	}
	l.Settle(h)
	a.Shares = shares
	l.state.TotalShares = total
	return nil
}

// Claim settles the holder, zeroes their pending payout and records it as
// claimed. It returns the amount the caller must pay out.
func (l *Ledger) Claim(h Holder) (*big.Int, error) {
	pending := l.Settle(h)
	if pending.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	a := l.accounts[h]
	a.PendingPayout = new(big.Int)
	l.state.ClaimedTotal.Add(l.state.ClaimedTotal, pending)
	return pending, nil
}

// CooldownUntil returns the holder's cooldown marker.
func (l *Ledger) CooldownUntil(h Holder) int64 {
	if a, ok := l.accounts[h]; ok {
		return a.CooldownUntil
	}
	return 0
}

// SetCooldownUntil sets the holder's cooldown marker.
func (l *Ledger) SetCooldownUntil(h Holder, until int64) {
	l.account(h).CooldownUntil = until
}

// Checkpoint captures the global state and the named holders so a failed
// operation can be undone with Rollback.
type Checkpoint struct {
	state    GlobalState
	accounts map[Holder]*HolderAccount // nil entry: holder did not exist
}

// Checkpoint records the current state of the pool and the given holders.
func (l *Ledger) Checkpoint(holders ...Holder) *Checkpoint {
	cp := &Checkpoint{
		state:    l.state.Clone(),
		accounts: make(map[Holder]*HolderAccount, len(holders)),
	}
	for _, h := range holders {
		if a, ok := l.accounts[h]; ok {
			acct := a.Clone()
			cp.accounts[h] = &acct
		} else {
			cp.accounts[h] = nil
		}
	}
	return cp
}

// Rollback restores the state captured by cp. Holders not named in the
// checkpoint must not have been touched since.
func (l *Ledger) Rollback(cp *Checkpoint) {
	l.state = cp.state.Clone()
	for h, a := range cp.accounts {
		if a == nil {
			delete(l.accounts, h)
			continue
		}
		acct := a.Clone()
		l.accounts[h] = &acct
	}
}
