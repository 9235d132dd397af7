package forge

import (
	"math/big"
	"sort"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// TrackedShares is one HolderInstanceShares entry.
type TrackedShares struct {
	Holder   revshare.Holder
	Identity collectible.Identity
	Shares   *big.Int
}

// Snapshot is a complete copy of engine state.
type Snapshot struct {
	Params   Params
	State    revshare.GlobalState
	Accounts map[revshare.Holder]revshare.HolderAccount
	Balance  *big.Int
	Received *big.Int
	Latest   map[collectible.Identity]*big.Int
	Tracked  []TrackedShares
	Pending  map[vrf.Handle]Request
}

// Snapshot copies the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Params:   e.params.Clone(),
		State:    e.ledger.State(),
		Accounts: e.ledger.Accounts(),
		Balance:  new(big.Int).Set(e.balance),
		Received: new(big.Int).Set(e.received),
		Latest:   make(map[collectible.Identity]*big.Int, len(e.latest)),
		Tracked:  make([]TrackedShares, 0, len(e.tracked)),
		Pending:  make(map[vrf.Handle]Request, len(e.pending)),
	}
	for id, v := range e.latest {
		s.Latest[id] = new(big.Int).Set(v)
	}
	for k, v := range e.tracked {
		s.Tracked = append(s.Tracked, TrackedShares{Holder: k.holder, Identity: k.id, Shares: new(big.Int).Set(v)})
	}
	sort.Slice(s.Tracked, func(i, j int) bool {
		a, b := s.Tracked[i], s.Tracked[j]
		if a.Holder != b.Holder {
			return a.Holder < b.Holder
		}
		if a.Identity.Category != b.Identity.Category {
			return a.Identity.Category < b.Identity.Category
		}
		return a.Identity.Tier < b.Identity.Tier
	})
	for h, r := range e.pending {
		s.Pending[h] = cloneRequest(r)
	}
	return s
}

// Restore creates an engine from a snapshot. Nil amounts, as left by
// decoders that drop zero values, read as zero.
func Restore(deps Deps, s Snapshot, opts ...Option) (*Engine, error) {
	e, err := New(deps, s.Params.Clone(), opts...)
	if err != nil {
		return nil, err
	}
	e.ledger = revshare.RestoreLedger(s.State, s.Accounts)
	e.balance = copyOrZero(s.Balance)
	e.received = copyOrZero(s.Received)
	for id, v := range s.Latest {
		e.latest[id] = copyOrZero(v)
	}
	for _, t := range s.Tracked {
		e.tracked[trackKey{t.Holder, t.Identity}] = copyOrZero(t.Shares)
	}
	for h, r := range s.Pending {
		e.pending[h] = cloneRequest(r)
	}
	return e, nil
}
