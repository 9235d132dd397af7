package collectible

import (
	"context"
	"fmt"
	"sort"

	"github.com/sasha-s/go-deadlock"
)

// MemLedger is an in-memory Ledger.
type MemLedger struct {
	mu       deadlock.RWMutex
	balances map[string]map[Identity]uint64
	supply   map[Identity]uint64
}

// Compile-time interface check.
var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances: make(map[string]map[Identity]uint64),
		supply:   make(map[Identity]uint64),
	}
}

// Mint creates count instances of id for holder.
func (m *MemLedger) Mint(_ context.Context, holder string, id Identity, count uint64) error {
	return m.Transfer("", holder, id, count)
}

// Burn destroys count instances of id held by holder.
func (m *MemLedger) Burn(_ context.Context, holder string, id Identity, count uint64) error {
	return m.Transfer(holder, "", id, count)
}

// BalanceOf returns how many instances of id holder owns.
func (m *MemLedger) BalanceOf(_ context.Context, holder string, id Identity) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[holder][id], nil
}

// Supply returns the number of outstanding instances of id.
func (m *MemLedger) Supply(id Identity) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply[id]
}

// Transfer moves count instances of id. An empty from mints, an empty to
// burns; a move between two holders is always rejected.
func (m *MemLedger) Transfer(from, to string, id Identity, count uint64) error {
	switch {
	case from != "" && to != "":
		return ErrNonTransferable
	case from == "" && to == "":
		return ErrEmptyHolder
	case count == 0:
		return ErrZeroCount
	case !id.Tier.Valid():
		return fmt.Errorf("%w: %d", ErrInvalidTier, id.Tier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if to == "" {
		have := m.balances[from][id]
		if have < count {
			return fmt.Errorf("%w: %s holds %d of %s, need %d", ErrInsufficientBalance, from, have, id, count)
		}
		m.balances[from][id] = have - count
		m.supply[id] -= count
		return nil
	}

	held, ok := m.balances[to]
	if !ok {
		held = make(map[Identity]uint64)
		m.balances[to] = held
	}
	held[id] += count
	m.supply[id] += count
	return nil
}

// Holding is one (holder, identity, count) row of a snapshot.
type Holding struct {
	Holder   string
	Identity Identity
	Count    uint64
}

// Snapshot returns every non-zero holding, sorted by holder then identity.
func (m *MemLedger) Snapshot() []Holding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Holding
	for h, ids := range m.balances {
		for id, n := range ids {
			if n > 0 {
				out = append(out, Holding{Holder: h, Identity: id, Count: n})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Holder != b.Holder {
			return a.Holder < b.Holder
		}
		if a.Identity.Category != b.Identity.Category {
			return a.Identity.Category < b.Identity.Category
		}
		return a.Identity.Tier < b.Identity.Tier
	})
	return out
}

// RestoreMemLedger rebuilds a ledger from Snapshot output.
func RestoreMemLedger(holdings []Holding) *MemLedger {
	m := NewMemLedger()
	for _, h := range holdings {
		if h.Count == 0 || h.Holder == "" {
			continue
		}
		_ = m.Transfer("", h.Holder, h.Identity, h.Count)
	}
	return m
}
