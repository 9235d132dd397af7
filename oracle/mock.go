package oracle

import (
	"context"
	"math/big"
)

// MockReserveReader is a test double for ReserveReader.
type MockReserveReader struct {
	GetReservesFn func(ctx context.Context) (Reserves, error)
}

func (m *MockReserveReader) GetReserves(ctx context.Context) (Reserves, error) {
	return m.GetReservesFn(ctx)
}

// MockPriceFeed is a test double for PriceFeed.
type MockPriceFeed struct {
	LatestPriceFn func(ctx context.Context) (Price, error)
}

func (m *MockPriceFeed) LatestPrice(ctx context.Context) (Price, error) {
	return m.LatestPriceFn(ctx)
}

// StaticReserves always reports the same reserves.
type StaticReserves Reserves

func (s StaticReserves) GetReserves(context.Context) (Reserves, error) {
	return Reserves{Asset: new(big.Int).Set(s.Asset), Native: new(big.Int).Set(s.Native)}, nil
}

// StaticPrice reports a fixed price stamped with the current time from Now.
type StaticPrice struct {
	Value *big.Int
	Now   func() int64
}

func (s StaticPrice) LatestPrice(context.Context) (Price, error) {
	return Price{Value: new(big.Int).Set(s.Value), UpdatedAt: s.Now()}, nil
}
