package oracle

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whole(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), usdScale)
}

func TestCheckReserves(t *testing.T) {
	floor := DefaultMinLiquidity()
	tests := []struct {
		name    string
		r       Reserves
		wantErr error
	}{
		{"healthy", Reserves{Asset: whole(1000), Native: whole(10)}, nil},
		{"exactly floor", Reserves{Asset: whole(1), Native: whole(1)}, nil},
		{"thin asset", Reserves{Asset: big.NewInt(5), Native: whole(10)}, ErrInsufficientLiquidity},
		{"thin native", Reserves{Asset: whole(10), Native: big.NewInt(5)}, ErrInsufficientLiquidity},
		{"missing", Reserves{}, ErrInsufficientLiquidity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReserves(tt.r, floor)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckPrice(t *testing.T) {
	const now = 1_700_000_000
	tests := []struct {
		name    string
		p       Price
		wantErr error
	}{
		{"fresh", Price{Value: big.NewInt(2000_00000000), UpdatedAt: now - 10}, nil},
		{"exactly one hour", Price{Value: big.NewInt(1), UpdatedAt: now - 3600}, nil},
		{"stale", Price{Value: big.NewInt(1), UpdatedAt: now - 3601}, ErrStalePrice},
		{"zero", Price{Value: big.NewInt(0), UpdatedAt: now}, ErrInvalidPrice},
		{"negative", Price{Value: big.NewInt(-5), UpdatedAt: now}, ErrInvalidPrice},
		{"nil", Price{UpdatedAt: now}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrice(tt.p, now, DefaultMaxAge)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssetUSD(t *testing.T) {
	// 1000 asset against 10 native at $2000: one asset is worth $20.
	r := Reserves{Asset: whole(1000), Native: whole(10)}
	p := Price{Value: big.NewInt(2000_00000000)}
	got, err := AssetUSD(r, p)
	require.NoError(t, err)
	assert.Equal(t, whole(20), got)

	_, err = AssetUSD(Reserves{Asset: new(big.Int), Native: whole(1)}, p)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = AssetUSD(Reserves{Asset: whole(1_000_000_000_000), Native: big.NewInt(1)}, Price{Value: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestUSD(t *testing.T) {
	v, err := USD("12.5")
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Div(whole(25), big.NewInt(2)), v)

	_, err = USD("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = USD("ten")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestStaticFeeds(t *testing.T) {
	ctx := context.Background()
	r := StaticReserves{Asset: whole(5), Native: whole(6)}
	got, err := r.GetReserves(ctx)
	require.NoError(t, err)
	got.Asset.SetInt64(0)
	again, _ := r.GetReserves(ctx)
	assert.Equal(t, whole(5), again.Asset, "callers must not alias the static reserves")

	p := StaticPrice{Value: big.NewInt(7), Now: func() int64 { return 42 }}
	price, err := p.LatestPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), price.UpdatedAt)
}
