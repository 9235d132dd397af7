package revshare

import "math/big"

var (
	// Scale is the fixed-point unit (1e18) for shares, RevenuePerShare and decay.
	Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// InitialPool is the virtual share pool that sets the decay half-point.
	InitialPool = new(big.Int).Mul(big.NewInt(1_000_000), Scale)
)

// Decay returns InitialPool / (InitialPool + totalShares), scaled by Scale.
// Decay(0) == Scale; the result falls strictly as totalShares grows and
// approaches zero without reaching it.
func Decay(totalShares *big.Int) *big.Int {
	denom := new(big.Int).Add(InitialPool, totalShares)
	return MulDiv(InitialPool, Scale, denom)
}

// MulDiv returns floor(a * b / c) without intermediate overflow.
func MulDiv(a, b, c *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, c)
}
