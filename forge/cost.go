package forge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
)

// costInputs is the ledger side of a mint quote.
type costInputs struct {
	category     CategoryParams
	balance      *big.Int
	totalShares  *big.Int
	minLiquidity *big.Int
	maxAge       int64
}

func (e *Engine) costInputs(category uint32) (costInputs, error) {
	c, ok := e.params.Categories[category]
	if !ok {
		return costInputs{}, fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	return costInputs{
		category:     c,
		balance:      new(big.Int).Set(e.balance),
		totalShares:  e.ledger.TotalShares(),
		minLiquidity: e.params.MinLiquidity,
		maxAge:       e.params.PriceMaxAge,
	}, nil
}

// mintCost returns the asset amount a mint burns:
//
//	max(baseUSD, navPerShare * baseShares) / assetUSD
//
// where navPerShare is the USD value of the held revenue divided by the share
// total, and only applies once shares exist.
func (e *Engine) mintCost(ctx context.Context, in costInputs) (*big.Int, error) {
	reserves, err := e.deps.Reserves.GetReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reserves: %w", err)
	}
	if err := oracle.CheckReserves(reserves, in.minLiquidity); err != nil {
		return nil, err
	}
	price, err := e.deps.Prices.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("read price: %w", err)
	}
	if err := oracle.CheckPrice(price, e.now(), in.maxAge); err != nil {
		return nil, err
	}
	assetUSD, err := oracle.AssetUSD(reserves, price)
	if err != nil {
		return nil, err
	}

	usd := new(big.Int).Set(in.category.BaseUSDCost)
	if in.totalShares.Sign() > 0 {
		poolUSD := revshare.MulDiv(in.balance, oracle.NativeUSD(price), revshare.Scale)
		navPerShare := revshare.MulDiv(poolUSD, revshare.Scale, in.totalShares)
		if nav := revshare.MulDiv(navPerShare, in.category.BaseShares, revshare.Scale); nav.Cmp(usd) > 0 {
			usd = nav
		}
	}

	cost := revshare.MulDiv(usd, revshare.Scale, assetUSD)
	if cost.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s USD at %s USD per asset", ErrZeroCost, usd, assetUSD)
	}
	return cost, nil
}

// QuoteMint returns the current burn cost of minting in category.
func (e *Engine) QuoteMint(ctx context.Context, category uint32) (*big.Int, error) {
	e.mu.Lock()
	in, err := e.costInputs(category)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.mintCost(ctx, in)
}
