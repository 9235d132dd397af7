package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/revshare"
)

// Claim settles holder and pays out their whole pending payout. If the
// payment fails nothing is recorded.
func (e *Engine) Claim(ctx context.Context, holder revshare.Holder) (*big.Int, error) {
	if err := checkHolder(holder); err != nil {
		return nil, err
	}
	if err := e.enter(ctx); err != nil {
		return nil, err
	}
	tx := e.begin(holder)
	amount, err := e.claim(ctx, tx, holder)
	e.finish(tx, "claim", err)
	return amount, err
}

func (e *Engine) claim(ctx context.Context, tx *txn, holder revshare.Holder) (*big.Int, error) {
	if err := e.checkCooldown(holder); err != nil {
		return nil, err
	}
	e.reconcile()
	amount, err := e.ledger.Claim(holder)
	if err != nil {
		return nil, err
	}
	if err := e.payOut(ctx, tx, string(holder), amount); err != nil {
		return nil, err
	}

	ev := newEvent(EventClaimed, e.now())
	ev.Holder = holder
	ev.Amount = new(big.Int).Set(amount)
	tx.emit(ev)
	return amount, nil
}

// payOut debits the held balance and sends amount to the recipient. It must
// be the last step of its transaction.
func (e *Engine) payOut(ctx context.Context, tx *txn, to string, amount *big.Int) error {
	if amount.Cmp(e.balance) > 0 {
		return fmt.Errorf("%w: need %s, hold %s", ErrInsufficientFunds, amount, e.balance)
	}
	tx.setBalance(new(big.Int).Sub(e.balance, amount))

	err := e.deps.Payout.Pay(context.WithValue(ctx, payoutKey{}, e), to, new(big.Int).Set(amount))
	if err != nil {
		e.log.Error("payout of %s to %s failed: %v", amount, to, err)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
