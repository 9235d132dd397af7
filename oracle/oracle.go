// Package oracle defines the price inputs used to quote mint costs and the
// guards applied to them before use.
//
// Two feeds are combined: a DEX reserve pair (asset vs native currency) gives
// the asset's price in native units, and a native/USD feed with 8 decimals
// converts that to USD. All USD amounts leaving this package carry 18
// decimals.
package oracle

import (
	"context"
	"fmt"
	"math/big"
)

const (
	// PriceDecimals is the precision of the native/USD feed.
	PriceDecimals = 8

	// DefaultMaxAge is the staleness window for the native/USD feed, in seconds.
	DefaultMaxAge int64 = 3600
)

var (
	usdScale     = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	feedToUSD18  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18-PriceDecimals), nil)
	defaultFloor = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// DefaultMinLiquidity is the default per-side reserve floor (1 whole unit).
func DefaultMinLiquidity() *big.Int { return new(big.Int).Set(defaultFloor) }

// Reserves is a DEX pool's asset and native-currency reserves, in base units.
type Reserves struct {
	Asset  *big.Int
	Native *big.Int
}

// ReserveReader reads the current pool reserves.
type ReserveReader interface {
	GetReserves(ctx context.Context) (Reserves, error)
}

// Price is one native/USD observation.
type Price struct {
	Value     *big.Int // USD per native unit, PriceDecimals decimals
	UpdatedAt int64    // Unix seconds
}

// PriceFeed reads the latest native/USD price.
type PriceFeed interface {
	LatestPrice(ctx context.Context) (Price, error)
}

// CheckReserves rejects pools where either side is below minLiquidity.
func CheckReserves(r Reserves, minLiquidity *big.Int) error {
	if r.Asset == nil || r.Native == nil {
		return fmt.Errorf("%w: missing reserve", ErrInsufficientLiquidity)
	}
	if r.Asset.Cmp(minLiquidity) < 0 || r.Native.Cmp(minLiquidity) < 0 {
		return fmt.Errorf("%w: asset=%s native=%s floor=%s", ErrInsufficientLiquidity, r.Asset, r.Native, minLiquidity)
	}
	return nil
}

// CheckPrice rejects non-positive prices and observations older than maxAge.
func CheckPrice(p Price, now, maxAge int64) error {
	if p.Value == nil || p.Value.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, p.Value)
	}
	if now-p.UpdatedAt > maxAge {
		return fmt.Errorf("%w: updated %ds ago, limit %ds", ErrStalePrice, now-p.UpdatedAt, maxAge)
	}
	return nil
}

// NativeUSD converts a feed price to 18-decimal USD per native unit.
func NativeUSD(p Price) *big.Int {
	return new(big.Int).Mul(p.Value, feedToUSD18)
}

// AssetUSD returns the USD value (18 decimals) of one whole asset unit
// implied by the reserves and the native price.
func AssetUSD(r Reserves, p Price) (*big.Int, error) {
	if r.Asset == nil || r.Asset.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty asset reserve", ErrInsufficientLiquidity)
	}
	v := new(big.Int).Mul(r.Native, NativeUSD(p))
	v.Quo(v, r.Asset)
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: asset price rounds to zero", ErrInvalidPrice)
	}
	return v, nil
}

// USD parses a decimal USD amount like "10" or "12.5" into 18 decimals.
func USD(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(usdScale))
	return new(big.Int).Quo(r.Num(), r.Denom()), nil
}
