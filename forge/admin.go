package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/collectible"
)

// The setters below are the admin surface. Each validates its input against
// the same bounds as Params.Validate and changes nothing on rejection.
// Authorizing the caller is left to the host.

// SetCategory sets or replaces one category's base cost and shares.
func (e *Engine) SetCategory(ctx context.Context, id uint32, baseUSDCost, baseShares *big.Int) error {
	c := CategoryParams{BaseUSDCost: copyInt(baseUSDCost), BaseShares: copyInt(baseShares)}
	if err := validateCategory(c); err != nil {
		return err
	}
	return e.updateParams(ctx, fmt.Sprintf("category %d", id), func(p *Params) { p.Categories[id] = c })
}

// SetCooldownPeriod sets the cooldown window in seconds.
func (e *Engine) SetCooldownPeriod(ctx context.Context, period int64) error {
	if err := validateCooldown(period); err != nil {
		return err
	}
	return e.updateParams(ctx, "cooldown", func(p *Params) { p.CooldownPeriod = period })
}

// SetFusionMultiplier sets the fusion success multiplier in basis points.
func (e *Engine) SetFusionMultiplier(ctx context.Context, m uint64) error {
	if err := validateFusionMultiplier(m); err != nil {
		return err
	}
	return e.updateParams(ctx, "fusion multiplier", func(p *Params) { p.FusionMultiplier = m })
}

// SetFailReturnRate sets the share fraction kept on a failed fusion.
func (e *Engine) SetFailReturnRate(ctx context.Context, r uint64) error {
	if err := validateFailReturnRate(r); err != nil {
		return err
	}
	return e.updateParams(ctx, "fail return rate", func(p *Params) { p.FailReturnRate = r })
}

// SetTierThresholds sets the cumulative tier roll table.
func (e *Engine) SetTierThresholds(ctx context.Context, t [collectible.NumTiers]uint64) error {
	if err := validateThresholds(t); err != nil {
		return err
	}
	return e.updateParams(ctx, "tier thresholds", func(p *Params) { p.TierThresholds = t })
}

// SetTierMultipliers sets the per-tier share multipliers.
func (e *Engine) SetTierMultipliers(ctx context.Context, m [collectible.NumTiers]uint64) error {
	if err := validateMultipliers(m); err != nil {
		return err
	}
	return e.updateParams(ctx, "tier multipliers", func(p *Params) { p.TierMultipliers = m })
}

// SetSuccessRates sets the per-tier fusion success chances.
func (e *Engine) SetSuccessRates(ctx context.Context, r [collectible.NumTiers - 1]uint64) error {
	if err := validateSuccessRates(r); err != nil {
		return err
	}
	return e.updateParams(ctx, "success rates", func(p *Params) { p.SuccessRates = r })
}

// SetMinLiquidity sets the per-side reserve floor.
func (e *Engine) SetMinLiquidity(ctx context.Context, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("%w: min liquidity %v", ErrInvalidParam, v)
	}
	floor := new(big.Int).Set(v)
	return e.updateParams(ctx, "min liquidity", func(p *Params) { p.MinLiquidity = floor })
}

func (e *Engine) updateParams(ctx context.Context, what string, apply func(*Params)) error {
	if err := e.enter(ctx); err != nil {
		return err
	}
	tx := e.begin()
	next := e.params.Clone()
	apply(&next)
	tx.setParams(next)

	ev := newEvent(EventParamsUpdated, e.now())
	ev.Detail = what
	tx.emit(ev)
	e.finish(tx, "set "+what, nil)
	return nil
}

// EmergencyWithdraw sends the entire held balance to to. Pending payouts
// stay recorded; claims fail with ErrInsufficientFunds until the balance is
// refilled.
func (e *Engine) EmergencyWithdraw(ctx context.Context, to string) (*big.Int, error) {
	if to == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrInvalidHolder)
	}
	if err := e.enter(ctx); err != nil {
		return nil, err
	}
	tx := e.begin()
	amount, err := e.emergencyWithdraw(ctx, tx, to)
	e.finish(tx, "emergency withdraw", err)
	return amount, err
}

func (e *Engine) emergencyWithdraw(ctx context.Context, tx *txn, to string) (*big.Int, error) {
	amount := new(big.Int).Set(e.balance)
	if amount.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	if err := e.payOut(ctx, tx, to, amount); err != nil {
		return nil, err
	}
	ev := newEvent(EventEmergencyWithdrawal, e.now())
	ev.Detail = to
	ev.Amount = amount
	tx.emit(ev)
	return amount, nil
}
