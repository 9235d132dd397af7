package forge

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/token"
)

func TestDefaultParams_Valid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, []uint32{0, 1, 2}, p.CategoryIDs())
}

func TestRollTier(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		roll uint64
		want collectible.Tier
	}{
		{0, collectible.TierCommon},
		{4999, collectible.TierCommon},
		{5000, collectible.TierFine},
		{7999, collectible.TierFine},
		{8000, collectible.TierRare},
		{9799, collectible.TierEpic},
		{9800, collectible.TierLegendary},
		{9970, collectible.TierMythic},
		{9999, collectible.TierMythic},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.roll), func(t *testing.T) {
			assert.Equal(t, tt.want, p.RollTier(tt.roll))
		})
	}

	// A table that never exceeds the roll falls through to the top tier.
	p.TierThresholds = [collectible.NumTiers]uint64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, collectible.TopTier, p.RollTier(9000))
}

func TestParams_Clone(t *testing.T) {
	p := DefaultParams()
	c := p.Clone()
	c.Categories[0].BaseShares.SetInt64(1)
	c.Categories[9] = CategoryParams{BaseUSDCost: big.NewInt(1), BaseShares: big.NewInt(1)}
	c.MinLiquidity.SetInt64(0)

	assertInt(t, whole(100), p.Categories[0].BaseShares)
	assert.NotContains(t, p.Categories, uint32(9))
	assertInt(t, oracle.DefaultMinLiquidity(), p.MinLiquidity)
}

func TestLoadParams(t *testing.T) {
	const doc = `
categories:
  - id: 4
    base_usd: "12.5"
    base_shares: "40"
cooldown: 300
fusion_multiplier: 20000
fail_return_rate: 0
tier_thresholds: [6000, 8500, 9500, 9900, 9990, 10000]
min_liquidity: "0.5"
`
	p, err := LoadParams(strings.NewReader(doc))
	require.NoError(t, err)

	require.Equal(t, []uint32{4}, p.CategoryIDs())
	assertInt(t, new(big.Int).Div(whole(25), big.NewInt(2)), p.Categories[4].BaseUSDCost)
	assertInt(t, whole(40), p.Categories[4].BaseShares)
	assert.Equal(t, int64(300), p.CooldownPeriod)
	assert.Equal(t, uint64(20000), p.FusionMultiplier)
	assert.Equal(t, uint64(0), p.FailReturnRate)
	assert.Equal(t, uint64(6000), p.TierThresholds[0])
	assertInt(t, new(big.Int).Div(revshare.Scale, big.NewInt(2)), p.MinLiquidity)

	// Untouched keys keep their defaults.
	def := DefaultParams()
	assert.Equal(t, def.TierMultipliers, p.TierMultipliers)
	assert.Equal(t, def.SuccessRates, p.SuccessRates)
	assert.Equal(t, def.PriceMaxAge, p.PriceMaxAge)
}

func TestLoadParams_Empty(t *testing.T) {
	p, err := LoadParams(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultParams().CategoryIDs(), p.CategoryIDs())
	assert.Equal(t, DefaultParams().TierThresholds, p.TierThresholds)
}

func TestLoadParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"cooldown out of range", "cooldown: 5\n", ErrInvalidParam},
		{"multiplier out of range", "fusion_multiplier: 40000\n", ErrInvalidParam},
		{"wrong table length", "success_rates: [1, 2]\n", ErrInvalidParam},
		{"last threshold", "tier_thresholds: [1, 2, 3, 4, 5, 6]\n", ErrInvalidParam},
		{"bad shares", "categories:\n  - id: 1\n    base_usd: \"1\"\n    base_shares: \"abc\"\n", ErrInvalidAmount},
		{"bad cost", "categories:\n  - id: 1\n    base_usd: \"-1\"\n    base_shares: \"1\"\n", oracle.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadParams(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadParams(strings.NewReader("cooldown: [oops"))
	assert.Error(t, err)
}

func TestUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"12.5", "12.5"},
		{"0.000000000000000001", "0.000000000000000001"},
		{"1000000", "1000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseUnits(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatUnits(v))
		})
	}
	_, err := ParseUnits("-3")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "0", FormatUnits(nil))
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassUnknown},
		{errors.New("other"), ClassUnknown},
		{fmt.Errorf("read: %w", oracle.ErrInsufficientLiquidity), ClassLiquidity},
		{oracle.ErrStalePrice, ClassOracle},
		{ErrCooldownActive, ClassTiming},
		{ErrNothingToClaim, ClassEconomic},
		{revshare.ErrNothingToClaim, ClassEconomic},
		{ErrMaxTier, ClassProtocol},
		{ErrUnknownRequest, ClassProtocol},
		{ErrInvalidParam, ClassParameter},
		{ErrTransferFailed, ClassTransfer},
		{fmt.Errorf("%w: %w", ErrBurnFailed, token.ErrInsufficientBalance), ClassTransfer},
		{fmt.Errorf("%w: %w", ErrBurnFailed, collectible.ErrInsufficientBalance), ClassTransfer},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorClass(tt.err))
		})
	}
	assert.Equal(t, "liquidity", ClassLiquidity.String())
	assert.Equal(t, "unknown", Class(99).String())
}
