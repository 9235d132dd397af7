package forge

import (
	"math/big"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// txn journals the mutations of one entry point so a rejection anywhere in
// the call leaves no trace. Ledger state is restored from a checkpoint; the
// engine's own maps are restored by replaying undo steps in reverse.
type txn struct {
	e      *Engine
	cp     *revshare.Checkpoint
	undo   []func()
	events []Event
}

func (e *Engine) begin(holders ...revshare.Holder) *txn {
	return &txn{e: e, cp: e.ledger.Checkpoint(holders...)}
}

func (t *txn) setTracked(k trackKey, v *big.Int) {
	prev, had := t.e.tracked[k]
	t.e.tracked[k] = v
	t.undo = append(t.undo, func() {
		if had {
			t.e.tracked[k] = prev
		} else {
			delete(t.e.tracked, k)
		}
	})
}

func (t *txn) setLatest(id collectible.Identity, v *big.Int) {
	prev, had := t.e.latest[id]
	t.e.latest[id] = v
	t.undo = append(t.undo, func() {
		if had {
			t.e.latest[id] = prev
		} else {
			delete(t.e.latest, id)
		}
	})
}

func (t *txn) putPending(h vrf.Handle, r Request) {
	t.e.pending[h] = r
	t.undo = append(t.undo, func() { delete(t.e.pending, h) })
}

func (t *txn) deletePending(h vrf.Handle) {
	prev := t.e.pending[h]
	delete(t.e.pending, h)
	t.undo = append(t.undo, func() { t.e.pending[h] = prev })
}

func (t *txn) setBalance(v *big.Int) {
	prev := t.e.balance
	t.e.balance = v
	t.undo = append(t.undo, func() { t.e.balance = prev })
}

func (t *txn) setReceived(v *big.Int) {
	prev := t.e.received
	t.e.received = v
	t.undo = append(t.undo, func() { t.e.received = prev })
}

func (t *txn) setParams(p Params) {
	prev := t.e.params
	t.e.params = p
	t.undo = append(t.undo, func() { t.e.params = prev })
}

func (t *txn) emit(ev Event) { t.events = append(t.events, ev) }

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.e.ledger.Rollback(t.cp)
	t.undo = nil
	t.events = nil
}
