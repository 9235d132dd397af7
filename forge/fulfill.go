package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/vrf"
)

var normalization = big.NewInt(Normalization)

// Fulfill delivers the random value for a pending request and resolves it.
// Each handle resolves at most once; unknown or spent handles are rejected
// with ErrUnknownRequest. A rejected fulfillment changes nothing and leaves
// the request pending.
func (e *Engine) Fulfill(ctx context.Context, h vrf.Handle, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRandom, value)
	}
	if err := e.enter(ctx); err != nil {
		return err
	}
	req, ok := e.pending[h]
	if !ok {
		e.mu.Unlock()
		e.log.Warn("fulfill rejected: %s", h)
		return fmt.Errorf("%w: %s", ErrUnknownRequest, h)
	}
	tx := e.begin(req.Requester())
	err := e.fulfill(ctx, tx, h, req, value)
	e.finish(tx, "fulfill", err)
	return err
}

func (e *Engine) fulfill(ctx context.Context, tx *txn, h vrf.Handle, req Request, value *big.Int) error {
	e.reconcile()
	roll := new(big.Int).Mod(value, normalization).Uint64()

	var err error
	switch r := req.(type) {
	case MintRequest:
		err = e.resolveMint(ctx, tx, h, r, roll)
	case FusionRequest:
		err = e.resolveFusion(ctx, tx, h, r, roll)
	default:
		err = fmt.Errorf("%w: unexpected request %T", ErrUnknownRequest, req)
	}
	if err != nil {
		return err
	}
	tx.deletePending(h)
	return nil
}

// FulfillOutput checks out with verify, when given, and fulfills its handle
// with its value.
func (e *Engine) FulfillOutput(ctx context.Context, out *vrf.Output, verify func(*vrf.Output) error) error {
	if out == nil {
		return fmt.Errorf("%w: no output", ErrInvalidRandom)
	}
	if verify != nil {
		if err := verify(out); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRandom, err)
		}
	}
	return e.Fulfill(ctx, out.Handle, out.Value)
}
