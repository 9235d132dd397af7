package forge

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
)

const (
	// Normalization is the basis-point denominator of every rate and multiplier.
	Normalization = 10000

	// FusionInputs is the number of same-identity instances one fusion consumes.
	FusionInputs = 3

	MinCooldown         = 10
	MaxCooldown         = 1200
	MinFusionMultiplier = 10000
	MaxFusionMultiplier = 30000
	MaxFailReturnRate   = 8000
)

// CategoryParams prices and weights one category. BaseUSDCost carries 18
// decimals; BaseShares is scaled by revshare.Scale.
type CategoryParams struct {
	BaseUSDCost *big.Int
	BaseShares  *big.Int
}

// Params holds every tunable of the engine.
type Params struct {
	Categories       map[uint32]CategoryParams
	CooldownPeriod   int64 // seconds
	FusionMultiplier uint64
	FailReturnRate   uint64

	// TierThresholds is the cumulative roll table: a roll lands in the first
	// tier whose threshold exceeds it.
	TierThresholds  [collectible.NumTiers]uint64
	TierMultipliers [collectible.NumTiers]uint64

	// SuccessRates is the fusion success chance of each upgradeable tier.
	SuccessRates [collectible.NumTiers - 1]uint64

	MinLiquidity *big.Int
	PriceMaxAge  int64
}

func whole(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), revshare.Scale) }

// DefaultParams returns the launch parameter set.
func DefaultParams() Params {
	return Params{
		Categories: map[uint32]CategoryParams{
			0: {BaseUSDCost: whole(10), BaseShares: whole(100)},
			1: {BaseUSDCost: whole(25), BaseShares: whole(250)},
			2: {BaseUSDCost: whole(50), BaseShares: whole(500)},
		},
		CooldownPeriod:   60,
		FusionMultiplier: 15000,
		FailReturnRate:   4000,
		TierThresholds:   [collectible.NumTiers]uint64{5000, 8000, 9300, 9800, 9970, 10000},
		TierMultipliers:  [collectible.NumTiers]uint64{7000, 10000, 15000, 25000, 50000, 100000},
		SuccessRates:     [collectible.NumTiers - 1]uint64{8500, 7000, 5000, 3000, 1500},
		MinLiquidity:     oracle.DefaultMinLiquidity(),
		PriceMaxAge:      oracle.DefaultMaxAge,
	}
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := p
	out.Categories = make(map[uint32]CategoryParams, len(p.Categories))
	for id, c := range p.Categories {
		out.Categories[id] = CategoryParams{BaseUSDCost: copyInt(c.BaseUSDCost), BaseShares: copyInt(c.BaseShares)}
	}
	out.MinLiquidity = copyOrZero(p.MinLiquidity)
	return out
}

// Validate checks every bound the admin setters enforce.
func (p Params) Validate() error {
	for id, c := range p.Categories {
		if err := validateCategory(c); err != nil {
			return fmt.Errorf("category %d: %w", id, err)
		}
	}
	if err := validateCooldown(p.CooldownPeriod); err != nil {
		return err
	}
	if err := validateFusionMultiplier(p.FusionMultiplier); err != nil {
		return err
	}
	if err := validateFailReturnRate(p.FailReturnRate); err != nil {
		return err
	}
	if err := validateThresholds(p.TierThresholds); err != nil {
		return err
	}
	if err := validateMultipliers(p.TierMultipliers); err != nil {
		return err
	}
	if err := validateSuccessRates(p.SuccessRates); err != nil {
		return err
	}
	if p.MinLiquidity == nil || p.MinLiquidity.Sign() < 0 {
		return fmt.Errorf("%w: min liquidity %v", ErrInvalidParam, p.MinLiquidity)
	}
	if p.PriceMaxAge <= 0 {
		return fmt.Errorf("%w: price max age %d", ErrInvalidParam, p.PriceMaxAge)
	}
	return nil
}

// CategoryIDs returns the configured categories in ascending order.
func (p Params) CategoryIDs() []uint32 {
	ids := make([]uint32, 0, len(p.Categories))
	for id := range p.Categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RollTier maps a roll in [0, Normalization) to a tier. A malformed table
// that never exceeds the roll yields the top tier.
func (p Params) RollTier(roll uint64) collectible.Tier {
	for i, threshold := range p.TierThresholds {
		if roll < threshold {
			return collectible.Tier(i)
		}
	}
	return collectible.TopTier
}

func validateCategory(c CategoryParams) error {
	if c.BaseUSDCost == nil || c.BaseUSDCost.Sign() <= 0 {
		return fmt.Errorf("%w: base cost must be positive", ErrInvalidParam)
	}
	if c.BaseShares == nil || c.BaseShares.Sign() <= 0 {
		return fmt.Errorf("%w: base shares must be positive", ErrInvalidParam)
	}
	return nil
}

func validateCooldown(period int64) error {
	if period < MinCooldown || period > MaxCooldown {
		return fmt.Errorf("%w: cooldown %d outside [%d, %d]", ErrInvalidParam, period, MinCooldown, MaxCooldown)
	}
	return nil
}

func validateFusionMultiplier(m uint64) error {
	if m < MinFusionMultiplier || m > MaxFusionMultiplier {
		return fmt.Errorf("%w: fusion multiplier %d outside [%d, %d]", ErrInvalidParam, m, MinFusionMultiplier, MaxFusionMultiplier)
	}
	return nil
}

func validateFailReturnRate(r uint64) error {
	if r > MaxFailReturnRate {
		return fmt.Errorf("%w: fail return rate %d above %d", ErrInvalidParam, r, MaxFailReturnRate)
	}
	return nil
}

func validateThresholds(t [collectible.NumTiers]uint64) error {
	for i := 1; i < len(t); i++ {
		if t[i] < t[i-1] {
			return fmt.Errorf("%w: tier thresholds must not decrease (index %d)", ErrInvalidParam, i)
		}
	}
	if t[len(t)-1] != Normalization {
		return fmt.Errorf("%w: last tier threshold must be %d", ErrInvalidParam, Normalization)
	}
	return nil
}

func validateMultipliers(m [collectible.NumTiers]uint64) error {
	for i, v := range m {
		if v == 0 {
			return fmt.Errorf("%w: tier %d multiplier is zero", ErrInvalidParam, i)
		}
	}
	return nil
}

func validateSuccessRates(r [collectible.NumTiers - 1]uint64) error {
	for i, v := range r {
		if v > Normalization {
			return fmt.Errorf("%w: tier %d success rate %d above %d", ErrInvalidParam, i, v, Normalization)
		}
	}
	return nil
}

// paramsFile is the YAML shape of Params. Big amounts are decimal strings in
// whole units: "12.5" USD, "100" shares.
type paramsFile struct {
	Categories       []categoryFile `yaml:"categories"`
	CooldownPeriod   int64          `yaml:"cooldown"`
	FusionMultiplier uint64         `yaml:"fusion_multiplier"`
	FailReturnRate   *uint64        `yaml:"fail_return_rate"`
	TierThresholds   []uint64       `yaml:"tier_thresholds"`
	TierMultipliers  []uint64       `yaml:"tier_multipliers"`
	SuccessRates     []uint64       `yaml:"success_rates"`
	MinLiquidity     string         `yaml:"min_liquidity"`
	PriceMaxAge      int64          `yaml:"price_max_age"`
}

type categoryFile struct {
	ID         uint32 `yaml:"id"`
	BaseUSD    string `yaml:"base_usd"`
	BaseShares string `yaml:"base_shares"`
}

// LoadParams reads a YAML parameter file. Omitted keys keep their
// DefaultParams value. The result is validated.
func LoadParams(r io.Reader) (Params, error) {
	p := DefaultParams()
	var f paramsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return Params{}, fmt.Errorf("forge: decode params: %w", err)
	}

	if len(f.Categories) > 0 {
		p.Categories = make(map[uint32]CategoryParams, len(f.Categories))
		for _, c := range f.Categories {
			cost, err := oracle.USD(c.BaseUSD)
			if err != nil {
				return Params{}, fmt.Errorf("category %d base_usd: %w", c.ID, err)
			}
			shares, err := ParseUnits(c.BaseShares)
			if err != nil {
				return Params{}, fmt.Errorf("category %d base_shares: %w", c.ID, err)
			}
			p.Categories[c.ID] = CategoryParams{BaseUSDCost: cost, BaseShares: shares}
		}
	}
	if f.CooldownPeriod != 0 {
		p.CooldownPeriod = f.CooldownPeriod
	}
	if f.FusionMultiplier != 0 {
		p.FusionMultiplier = f.FusionMultiplier
	}
	if f.FailReturnRate != nil {
		p.FailReturnRate = *f.FailReturnRate
	}
	if err := fillTable(p.TierThresholds[:], f.TierThresholds, "tier_thresholds"); err != nil {
		return Params{}, err
	}
	if err := fillTable(p.TierMultipliers[:], f.TierMultipliers, "tier_multipliers"); err != nil {
		return Params{}, err
	}
	if err := fillTable(p.SuccessRates[:], f.SuccessRates, "success_rates"); err != nil {
		return Params{}, err
	}
	if f.MinLiquidity != "" {
		v, err := ParseUnits(f.MinLiquidity)
		if err != nil {
			return Params{}, fmt.Errorf("min_liquidity: %w", err)
		}
		p.MinLiquidity = v
	}
	if f.PriceMaxAge != 0 {
		p.PriceMaxAge = f.PriceMaxAge
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func fillTable(dst, src []uint64, name string) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("%w: %s needs %d entries, got %d", ErrInvalidParam, name, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// ParseUnits parses a non-negative decimal string into 18-decimal base units.
func ParseUnits(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(revshare.Scale))
	return new(big.Int).Quo(r.Num(), r.Denom()), nil
}

// FormatUnits renders 18-decimal base units as a decimal string with
// trailing zeros trimmed.
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(v, revshare.Scale).FloatString(18)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
