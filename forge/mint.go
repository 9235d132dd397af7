package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// SubmitMint burns the quoted asset amount from holder and registers a mint
// request. The tier and shares are decided when the handle is fulfilled.
func (e *Engine) SubmitMint(ctx context.Context, holder revshare.Holder, category uint32) (vrf.Handle, error) {
	if err := checkHolder(holder); err != nil {
		return vrf.Handle{}, err
	}
	if err := e.enter(ctx); err != nil {
		return vrf.Handle{}, err
	}
	tx := e.begin(holder)
	h, err := e.submitMint(ctx, tx, holder, category)
	e.finish(tx, "submit mint", err)
	return h, err
}

func (e *Engine) submitMint(ctx context.Context, tx *txn, holder revshare.Holder, category uint32) (vrf.Handle, error) {
	if err := e.checkCooldown(holder); err != nil {
		return vrf.Handle{}, err
	}
	e.reconcile()
	e.ledger.Settle(holder)

	in, err := e.costInputs(category)
	if err != nil {
		return vrf.Handle{}, err
	}
	cost, err := e.mintCost(ctx, in)
	if err != nil {
		return vrf.Handle{}, err
	}

	h, err := e.request(ctx, holder, KindMint)
	if err != nil {
		return vrf.Handle{}, err
	}
	if err := e.deps.Asset.TransferToSink(ctx, string(holder), cost); err != nil {
		return vrf.Handle{}, fmt.Errorf("%w: %w", ErrBurnFailed, err)
	}
	tx.putPending(h, MintRequest{Holder: holder, Category: category, Burned: cost})

	ev := newEvent(EventMintRequested, e.now())
	ev.Holder = holder
	ev.Handle = h.String()
	ev.Amount = new(big.Int).Set(cost)
	ev.Detail = fmt.Sprintf("category %d", category)
	tx.emit(ev)
	return h, nil
}

// request obtains a fresh handle from the randomness provider.
func (e *Engine) request(ctx context.Context, holder revshare.Holder, kind RequestKind) (vrf.Handle, error) {
	h, err := e.deps.Random.RequestRandom(ctx, vrf.RequestConfig{Requester: string(holder), Purpose: kind.String()})
	if err != nil {
		return vrf.Handle{}, fmt.Errorf("%w: %w", ErrRandomness, err)
	}
	if _, dup := e.pending[h]; dup {
		return vrf.Handle{}, fmt.Errorf("%w: %s", ErrDuplicateRequest, h)
	}
	return h, nil
}

// mintShares returns baseShares * tierMultiplier * decay(total) / Normalization.
func (e *Engine) mintShares(c CategoryParams, tier collectible.Tier) *big.Int {
	decay := revshare.Decay(e.ledger.TotalShares())
	shares := new(big.Int).Mul(c.BaseShares, new(big.Int).SetUint64(e.params.TierMultipliers[tier]))
	shares.Mul(shares, decay)
	return shares.Quo(shares, new(big.Int).Mul(big.NewInt(Normalization), revshare.Scale))
}

func (e *Engine) resolveMint(ctx context.Context, tx *txn, h vrf.Handle, req MintRequest, roll uint64) error {
	c, ok := e.params.Categories[req.Category]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, req.Category)
	}
	tier := e.params.RollTier(roll)
	shares := e.mintShares(c, tier)
	if shares.Sign() == 0 {
		return fmt.Errorf("%w: category %d tier %s", ErrSharesTooSmall, req.Category, tier)
	}

	id := collectible.Identity{Category: req.Category, Tier: tier}
	k := trackKey{req.Holder, id}
	tx.setLatest(id, new(big.Int).Set(shares))
	tx.setTracked(k, new(big.Int).Add(copyOrZero(e.tracked[k]), shares))
	if err := e.ledger.AdjustShares(req.Holder, shares); err != nil {
		return err
	}
	e.startCooldown(req.Holder)

	if err := e.deps.Collectibles.Mint(ctx, string(req.Holder), id, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrMintFailed, err)
	}

	ev := newEvent(EventMinted, e.now())
	ev.Holder = req.Holder
	ev.Handle = h.String()
	ev.Identity = &id
	ev.Roll = &roll
	ev.Amount = new(big.Int).Set(req.Burned)
	ev.Shares = shares
	tx.emit(ev)
	return nil
}
