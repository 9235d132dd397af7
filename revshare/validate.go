package revshare

import (
	"fmt"
	"math/big"
)

// ValidateShareConservation checks that TotalShares equals the sum of every
// holder's shares.
func (l *Ledger) ValidateShareConservation() error {
	sum := new(big.Int)
	for _, a := range l.accounts {
		sum.Add(sum, a.Shares)
	}
	if sum.Cmp(l.state.TotalShares) != 0 {
		return fmt.Errorf("%w: total=%s holders=%s", ErrShareConservationViolation, l.state.TotalShares, sum)
	}
	return nil
}

// ValidateRevenue checks claimed <= distributed <= received and that no
// holder snapshot is ahead of the accumulator.
func (l *Ledger) ValidateRevenue(received *big.Int) error {
	if l.state.ClaimedTotal.Cmp(l.state.DistributedTotal) > 0 {
		return fmt.Errorf("%w: claimed=%s distributed=%s",
			ErrRevenueAccounting, l.state.ClaimedTotal, l.state.DistributedTotal)
	}
	if l.state.DistributedTotal.Cmp(received) > 0 {
		return fmt.Errorf("%w: distributed=%s received=%s",
			ErrRevenueAccounting, l.state.DistributedTotal, received)
	}
	for h, a := range l.accounts {
		if a.LastRevenuePerShare.Cmp(l.state.RevenuePerShare) > 0 {
			return fmt.Errorf("%w: holder %s", ErrStaleSettlement, h)
		}
	}
	return nil
}
