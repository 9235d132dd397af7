package revshare

import "math/big"

// Reconcile folds revenue present in balance but not yet tracked into
// RevenuePerShare and returns the newly distributed amount.
//
// With no shares outstanding nothing happens: the revenue stays untracked in
// the balance and is picked up by the first reconcile after shares exist.
// Callers must reconcile before any share-total mutation so revenue is split
// only among shares that existed when it arrived.
func (l *Ledger) Reconcile(balance *big.Int) *big.Int {
	untracked := l.untracked(balance)
	if untracked.Sign() <= 0 {
		return new(big.Int)
	}
	inc := MulDiv(untracked, Scale, l.state.TotalShares)
	l.state.RevenuePerShare.Add(l.state.RevenuePerShare, inc)
	l.state.DistributedTotal.Add(l.state.DistributedTotal, untracked)
	return untracked
}

// PreviewPayout returns what the holder could claim if the pool were
// reconciled against balance and the holder settled now. State is untouched.
func (l *Ledger) PreviewPayout(h Holder, balance *big.Int) *big.Int {
	a := l.Account(h)
	rps := new(big.Int).Set(l.state.RevenuePerShare)
	if untracked := l.untracked(balance); untracked.Sign() > 0 {
		rps.Add(rps, MulDiv(untracked, Scale, l.state.TotalShares))
	}
	out := new(big.Int).Set(a.PendingPayout)
	if a.Shares.Sign() > 0 {
		delta := rps.Sub(rps, a.LastRevenuePerShare)
		out.Add(out, MulDiv(a.Shares, delta, Scale))
	}
	return out
}

func (l *Ledger) untracked(balance *big.Int) *big.Int {
	if l.state.TotalShares.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(balance, l.state.Outstanding())
}
