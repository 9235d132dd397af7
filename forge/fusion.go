package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// SubmitFusion destroys FusionInputs instances of source and registers a
// fusion request. The shares backing the destroyed instances are detached
// from source immediately; success or failure is decided on fulfillment.
func (e *Engine) SubmitFusion(ctx context.Context, holder revshare.Holder, source collectible.Identity) (vrf.Handle, error) {
	if err := checkHolder(holder); err != nil {
		return vrf.Handle{}, err
	}
	if source.Tier >= collectible.TopTier {
		return vrf.Handle{}, fmt.Errorf("%w: %s", ErrMaxTier, source)
	}
	if err := e.enter(ctx); err != nil {
		return vrf.Handle{}, err
	}
	tx := e.begin(holder)
	h, err := e.submitFusion(ctx, tx, holder, source)
	e.finish(tx, "submit fusion", err)
	return h, err
}

func (e *Engine) submitFusion(ctx context.Context, tx *txn, holder revshare.Holder, source collectible.Identity) (vrf.Handle, error) {
	if err := e.checkCooldown(holder); err != nil {
		return vrf.Handle{}, err
	}
	owned, err := e.deps.Collectibles.BalanceOf(ctx, string(holder), source)
	if err != nil {
		return vrf.Handle{}, fmt.Errorf("read balance: %w", err)
	}
	if owned < FusionInputs {
		return vrf.Handle{}, fmt.Errorf("%w: %s holds %d of %s", ErrInsufficientInstances, holder, owned, source)
	}

	e.reconcile()
	e.ledger.Settle(holder)

	k := trackKey{holder, source}
	tracked := copyOrZero(e.tracked[k])
	if tracked.Sign() == 0 {
		return vrf.Handle{}, fmt.Errorf("%w: %s %s", ErrNoTrackedShares, holder, source)
	}
	// Average shares per owned instance, times the inputs consumed.
	consumed := new(big.Int).Quo(tracked, new(big.Int).SetUint64(owned))
	consumed.Mul(consumed, big.NewInt(FusionInputs))
	if consumed.Sign() == 0 {
		return vrf.Handle{}, fmt.Errorf("%w: %s %s rounds to zero", ErrNoTrackedShares, holder, source)
	}

	h, err := e.request(ctx, holder, KindFusion)
	if err != nil {
		return vrf.Handle{}, err
	}
	tx.setTracked(k, new(big.Int).Sub(tracked, consumed))
	if err := e.deps.Collectibles.Burn(ctx, string(holder), source, FusionInputs); err != nil {
		return vrf.Handle{}, fmt.Errorf("%w: %w", ErrBurnFailed, err)
	}
	tx.putPending(h, FusionRequest{Holder: holder, Source: source, ConsumedShares: consumed})

	ev := newEvent(EventFusionRequested, e.now())
	ev.Holder = holder
	ev.Handle = h.String()
	ev.Identity = &source
	ev.Shares = new(big.Int).Set(consumed)
	tx.emit(ev)
	return h, nil
}

func (e *Engine) resolveFusion(ctx context.Context, tx *txn, h vrf.Handle, req FusionRequest, roll uint64) error {
	if req.Source.Tier >= collectible.TopTier {
		return fmt.Errorf("%w: %s", ErrMaxTier, req.Source)
	}
	consumed := req.ConsumedShares

	if roll >= e.params.SuccessRates[req.Source.Tier] {
		returned := new(big.Int).Mul(consumed, new(big.Int).SetUint64(e.params.FailReturnRate))
		returned.Quo(returned, normalization)
		lost := new(big.Int).Sub(consumed, returned)
		if err := e.ledger.AdjustShares(req.Holder, new(big.Int).Neg(lost)); err != nil {
			return err
		}
		e.startCooldown(req.Holder)

		ev := newEvent(EventFusionFailed, e.now())
		ev.Holder = req.Holder
		ev.Handle = h.String()
		ev.Identity = &req.Source
		ev.Roll = &roll
		ev.Shares = lost
		ev.Returned = returned
		tx.emit(ev)
		return nil
	}

	target := collectible.Identity{Category: req.Source.Category, Tier: req.Source.Tier + 1}
	minted := new(big.Int).Mul(consumed, new(big.Int).SetUint64(e.params.FusionMultiplier))
	minted.Quo(minted, normalization)

	k := trackKey{req.Holder, target}
	tx.setLatest(target, new(big.Int).Set(minted))
	tx.setTracked(k, new(big.Int).Add(copyOrZero(e.tracked[k]), minted))
	if err := e.ledger.AdjustShares(req.Holder, new(big.Int).Sub(minted, consumed)); err != nil {
		return err
	}
	e.startCooldown(req.Holder)

	if err := e.deps.Collectibles.Mint(ctx, string(req.Holder), target, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrMintFailed, err)
	}

	ev := newEvent(EventFusionSucceeded, e.now())
	ev.Holder = req.Holder
	ev.Handle = h.String()
	ev.Identity = &target
	ev.Roll = &roll
	ev.Shares = minted
	tx.emit(ev)
	return nil
}
