package forge

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/token"
	"github.com/bitfsorg/relicpool-go/vrf"
)

const (
	testStart  = int64(1_700_000_000)
	testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

	alice revshare.Holder = "alice"
	bob   revshare.Holder = "bob"
)

var (
	common0 = collectible.Identity{Category: 0, Tier: collectible.TierCommon}
	fine0   = collectible.Identity{Category: 0, Tier: collectible.TierFine}
)

// --- Fixture ---

// items wraps the in-memory ledger so tests can make Mint fail.
type items struct {
	*collectible.MemLedger
	failMint bool
}

func (i *items) Mint(ctx context.Context, holder string, id collectible.Identity, count uint64) error {
	if i.failMint {
		return errors.New("ledger offline")
	}
	return i.MemLedger.Mint(ctx, holder, id, count)
}

// payout forwards to the native token after fn, when set, succeeds.
type payout struct {
	native *token.MemToken
	fn     func(ctx context.Context, to string, amount *big.Int) error
}

func (p *payout) Pay(ctx context.Context, to string, amount *big.Int) error {
	if p.fn != nil {
		if err := p.fn(ctx, to, amount); err != nil {
			return err
		}
	}
	return p.native.Pay(ctx, to, amount)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	clock    *ManualClock
	items    *items
	asset    *token.MemToken
	native   *token.MemToken
	payout   *payout
	random   *vrf.LocalProvider
	reserves *oracle.MockReserveReader
	prices   *oracle.MockPriceFeed
	events   *Recorder
	engine   *Engine
}

// newFixture builds an engine with an asset priced at $2 (1,000,000 asset
// against 1,000 native at $2,000) and funds alice and bob with asset.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		clock:  NewManualClock(testStart),
		items:  &items{MemLedger: collectible.NewMemLedger()},
		asset:  token.NewMemToken(),
		native: token.NewMemToken(),
		events: &Recorder{},
	}
	f.payout = &payout{native: f.native}
	f.reserves = &oracle.MockReserveReader{GetReservesFn: func(context.Context) (oracle.Reserves, error) {
		return oracle.Reserves{Asset: whole(1_000_000), Native: whole(1_000)}, nil
	}}
	f.prices = &oracle.MockPriceFeed{LatestPriceFn: func(context.Context) (oracle.Price, error) {
		return oracle.Price{Value: big.NewInt(2000_00000000), UpdatedAt: f.clock.Now()}, nil
	}}
	var err error
	f.random, err = vrf.NewLocalProviderFromHex(testKeyHex)
	require.NoError(t, err)

	f.engine, err = New(f.deps(), DefaultParams(), WithEventSink(f.events))
	require.NoError(t, err)

	require.NoError(t, f.asset.Credit(string(alice), whole(1_000_000)))
	require.NoError(t, f.asset.Credit(string(bob), whole(1_000_000)))
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Collectibles: f.items,
		Asset:        f.asset,
		Reserves:     f.reserves,
		Prices:       f.prices,
		Random:       f.random,
		Payout:       f.payout,
		Clock:        f.clock,
	}
}

// restore replaces the engine with one rebuilt from s.
func (f *fixture) restore(s Snapshot) {
	f.t.Helper()
	e, err := Restore(f.deps(), s, WithEventSink(f.events))
	require.NoError(f.t, err)
	f.engine = e
}

// mint submits and fulfills a mint with the given roll, then waits out the
// cooldown.
func (f *fixture) mint(h revshare.Holder, category uint32, roll int64) {
	f.t.Helper()
	handle, err := f.engine.SubmitMint(f.ctx, h, category)
	require.NoError(f.t, err)
	require.NoError(f.t, f.engine.Fulfill(f.ctx, handle, big.NewInt(roll)))
	f.clock.Advance(f.engine.Params().CooldownPeriod)
}

// seedCommons gives h three Common category-0 instances backed by total
// shares, as if minted earlier.
func (f *fixture) seedCommons(h revshare.Holder, total *big.Int) {
	f.t.Helper()
	state := revshare.NewGlobalState()
	state.TotalShares = new(big.Int).Set(total)
	acct := revshare.NewHolderAccount()
	acct.Shares = new(big.Int).Set(total)

	s := f.engine.Snapshot()
	s.State = state
	s.Accounts = map[revshare.Holder]revshare.HolderAccount{h: acct}
	s.Tracked = []TrackedShares{{Holder: h, Identity: common0, Shares: new(big.Int).Set(total)}}
	f.restore(s)
	require.NoError(f.t, f.items.MemLedger.Mint(f.ctx, string(h), common0, 3))
}

func (f *fixture) balance(h revshare.Holder, id collectible.Identity) uint64 {
	f.t.Helper()
	n, err := f.items.BalanceOf(f.ctx, string(h), id)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) invariants() {
	f.t.Helper()
	require.NoError(f.t, f.engine.CheckInvariants())
}

func assertInt(t *testing.T, want, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	assert.Equal(t, want.String(), got.String(), msgAndArgs...)
}

// --- Construction ---

func TestNew_RequiresDependencies(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Random = nil
	_, err := New(deps, DefaultParams())
	assert.ErrorIs(t, err, ErrMissingDependency)

	deps = f.deps()
	deps.Clock = nil
	e, err := New(deps, DefaultParams())
	require.NoError(t, err)
	assert.NotZero(t, e.now())
}

func TestNew_RejectsInvalidParams(t *testing.T) {
	f := newFixture(t)
	p := DefaultParams()
	p.CooldownPeriod = 5
	_, err := New(f.deps(), p)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

// --- Mint ---

func TestMint_CommonRollOnEmptyPool(t *testing.T) {
	f := newFixture(t)

	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)

	// $10 at $2 per asset.
	assertInt(t, whole(5), f.asset.Sunk())
	pending := f.engine.PendingRequests()
	require.Len(t, pending, 1)
	req, ok := pending[0].Request.(MintRequest)
	require.True(t, ok)
	assertInt(t, whole(5), req.Burned)
	assert.Equal(t, alice, req.Holder)

	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(4999)))

	assertInt(t, whole(70), f.engine.Holder(alice).Shares)
	assertInt(t, whole(70), f.engine.State().TotalShares)
	assertInt(t, whole(70), f.engine.HolderInstanceShares(alice, common0))
	assertInt(t, whole(70), f.engine.LatestMintedShares(common0))
	assert.Equal(t, uint64(1), f.balance(alice, common0))
	assert.Empty(t, f.engine.PendingRequests())
	assert.Equal(t, testStart+60, f.engine.Holder(alice).CooldownUntil)
	f.invariants()
}

func TestMint_TierFromRoll(t *testing.T) {
	tests := []struct {
		name   string
		value  int64
		tier   collectible.Tier
		shares *big.Int
	}{
		{"common", 0, collectible.TierCommon, whole(70)},
		{"fine", 5000, collectible.TierFine, whole(100)},
		{"rare", 9299, collectible.TierRare, whole(150)},
		{"epic", 9300, collectible.TierEpic, whole(250)},
		{"legendary", 9969, collectible.TierLegendary, whole(500)},
		{"mythic", 9999, collectible.TierMythic, whole(1000)},
		{"reduced mod 10000", 1_000_009_999, collectible.TierMythic, whole(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mint(alice, 0, tt.value)
			id := collectible.Identity{Category: 0, Tier: tt.tier}
			assert.Equal(t, uint64(1), f.balance(alice, id))
			assertInt(t, tt.shares, f.engine.HolderInstanceShares(alice, id))
		})
	}
}

func TestMint_SharesDecayWithPoolSize(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	f.mint(bob, 0, 0)

	// 100 * 0.7 * 1e6/(1e6+70), rounded down.
	want := new(big.Int).Mul(whole(70), revshare.Decay(whole(70)))
	want.Quo(want, revshare.Scale)
	assertInt(t, want, f.engine.Holder(bob).Shares)
	assert.Equal(t, -1, f.engine.Holder(bob).Shares.Cmp(whole(70)))
	f.invariants()
}

func TestMint_UnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SubmitMint(f.ctx, alice, 99)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, ClassProtocol, ErrorClass(err))
	assert.Zero(t, f.asset.Sunk().Sign())
}

func TestMint_BurnFailureLeavesNoRequest(t *testing.T) {
	f := newFixture(t)
	const carol revshare.Holder = "carol"

	_, err := f.engine.SubmitMint(f.ctx, carol, 0)
	require.ErrorIs(t, err, ErrBurnFailed)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, ClassTransfer, ErrorClass(err))
	assert.Empty(t, f.engine.PendingRequests())
	assert.Empty(t, f.engine.Holders())

	// The handle issued before the burn failed is never accepted.
	orphans := f.random.Outstanding()
	require.Len(t, orphans, 1)
	err = f.engine.Fulfill(f.ctx, orphans[0], big.NewInt(1))
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestMint_OracleGuards(t *testing.T) {
	tests := []struct {
		name     string
		reserves oracle.Reserves
		price    oracle.Price
		want     error
		class    Class
	}{
		{
			name:     "thin asset reserve",
			reserves: oracle.Reserves{Asset: big.NewInt(1), Native: whole(1_000)},
			price:    oracle.Price{Value: big.NewInt(2000_00000000), UpdatedAt: testStart},
			want:     oracle.ErrInsufficientLiquidity,
			class:    ClassLiquidity,
		},
		{
			name:     "zero price",
			reserves: oracle.Reserves{Asset: whole(1_000_000), Native: whole(1_000)},
			price:    oracle.Price{Value: big.NewInt(0), UpdatedAt: testStart},
			want:     oracle.ErrInvalidPrice,
			class:    ClassOracle,
		},
		{
			name:     "stale price",
			reserves: oracle.Reserves{Asset: whole(1_000_000), Native: whole(1_000)},
			price:    oracle.Price{Value: big.NewInt(2000_00000000), UpdatedAt: testStart - 3601},
			want:     oracle.ErrStalePrice,
			class:    ClassOracle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reserves.GetReservesFn = func(context.Context) (oracle.Reserves, error) { return tt.reserves, nil }
			f.prices.LatestPriceFn = func(context.Context) (oracle.Price, error) { return tt.price, nil }

			_, err := f.engine.SubmitMint(f.ctx, alice, 0)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, ErrorClass(err))
			assert.Zero(t, f.asset.Sunk().Sign())
			assert.Empty(t, f.engine.PendingRequests())
		})
	}
}

func TestMint_NAVFloorRaisesCost(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0) // 70 shares

	// 7 native at $2,000 over 70 shares is $200 per share, so 100 base
	// shares cost $20,000 instead of $10: 10,000 asset at $2.
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))
	cost, err := f.engine.QuoteMint(f.ctx, 0)
	require.NoError(t, err)
	assertInt(t, whole(10_000), cost)

	sunk := f.asset.Sunk()
	_, err = f.engine.SubmitMint(f.ctx, bob, 0)
	require.NoError(t, err)
	assertInt(t, whole(10_000), new(big.Int).Sub(f.asset.Sunk(), sunk))
}

func TestMint_ZeroCost(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetCategory(f.ctx, 7, big.NewInt(1), whole(1)))
	_, err := f.engine.SubmitMint(f.ctx, alice, 7)
	assert.ErrorIs(t, err, ErrZeroCost)
	assert.Equal(t, ClassEconomic, ErrorClass(err))
}

func TestMint_SharesTooSmall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetCategory(f.ctx, 7, whole(1), big.NewInt(1)))
	h, err := f.engine.SubmitMint(f.ctx, alice, 7)
	require.NoError(t, err)

	err = f.engine.Fulfill(f.ctx, h, big.NewInt(0))
	assert.ErrorIs(t, err, ErrSharesTooSmall)
	assert.Equal(t, ClassEconomic, ErrorClass(err))
	assert.Len(t, f.engine.PendingRequests(), 1)
}

func TestMint_CollectibleFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)

	f.items.failMint = true
	err = f.engine.Fulfill(f.ctx, h, big.NewInt(0))
	require.ErrorIs(t, err, ErrMintFailed)
	assert.Zero(t, f.engine.Holder(alice).Shares.Sign())
	assert.Zero(t, f.engine.State().TotalShares.Sign())
	assert.Zero(t, f.engine.HolderInstanceShares(alice, common0).Sign())
	assert.Zero(t, f.engine.LatestMintedShares(common0).Sign())
	assert.Zero(t, f.engine.Holder(alice).CooldownUntil)
	assert.Len(t, f.engine.PendingRequests(), 1)

	f.items.failMint = false
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))
	assertInt(t, whole(70), f.engine.Holder(alice).Shares)
	f.invariants()
}

// --- Fulfillment ---

func TestFulfill_ExactlyOnce(t *testing.T) {
	f := newFixture(t)
	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))

	err = f.engine.Fulfill(f.ctx, h, big.NewInt(0))
	assert.ErrorIs(t, err, ErrUnknownRequest)
	assert.Equal(t, ClassProtocol, ErrorClass(err))

	assertInt(t, whole(70), f.engine.State().TotalShares)
	assert.Equal(t, uint64(1), f.items.Supply(common0))
	assertInt(t, whole(5), f.asset.Sunk())
}

func TestFulfill_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.engine.Fulfill(f.ctx, vrf.Handle{}, big.NewInt(1)), ErrUnknownRequest)
	assert.ErrorIs(t, f.engine.Fulfill(f.ctx, vrf.Handle{}, nil), ErrInvalidRandom)
	assert.ErrorIs(t, f.engine.Fulfill(f.ctx, vrf.Handle{}, big.NewInt(-1)), ErrInvalidRandom)
}

func TestFulfill_OutOfOrder(t *testing.T) {
	f := newFixture(t)
	ha, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	hb, err := f.engine.SubmitMint(f.ctx, bob, 0)
	require.NoError(t, err)

	require.NoError(t, f.engine.Fulfill(f.ctx, hb, big.NewInt(0)))
	require.NoError(t, f.engine.Fulfill(f.ctx, ha, big.NewInt(0)))

	// Bob resolved first against an empty pool.
	assertInt(t, whole(70), f.engine.Holder(bob).Shares)
	assert.Equal(t, -1, f.engine.Holder(alice).Shares.Cmp(whole(70)))
	f.invariants()
}

func TestFulfillOutput_VerifiesProof(t *testing.T) {
	f := newFixture(t)
	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	out, err := f.random.Reveal(h)
	require.NoError(t, err)

	forged := *out
	forged.Value = new(big.Int).Add(out.Value, big.NewInt(1))
	verify := func(o *vrf.Output) error { return vrf.Verify(f.random.PublicKey(), o) }
	assert.ErrorIs(t, f.engine.FulfillOutput(f.ctx, &forged, verify), ErrInvalidRandom)
	assert.Len(t, f.engine.PendingRequests(), 1)

	require.NoError(t, f.engine.FulfillOutput(f.ctx, out, verify))
	assert.Empty(t, f.engine.PendingRequests())
	assert.Equal(t, 1, f.engine.Holder(alice).Shares.Sign())
}

func TestFulfillNeverArrives_StrandsConsumedResources(t *testing.T) {
	f := newFixture(t)

	// A mint whose randomness never arrives: the asset is gone, no shares
	// exist, and the request stays pending indefinitely.
	_, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)

	// A fusion whose randomness never arrives: three instances destroyed and
	// their tracked shares detached, holder shares untouched.
	f.seedCommons(bob, whole(210))
	_, err = f.engine.SubmitFusion(f.ctx, bob, common0)
	require.NoError(t, err)

	f.clock.Advance(365 * 24 * 3600)

	pending := f.engine.PendingRequests()
	require.Len(t, pending, 2)
	kinds := map[RequestKind]int{}
	for _, p := range pending {
		kinds[p.Request.Kind()]++
	}
	assert.Equal(t, map[RequestKind]int{KindMint: 1, KindFusion: 1}, kinds)

	assertInt(t, whole(5), f.asset.Sunk())
	assert.Zero(t, f.engine.Holder(alice).Shares.Sign())
	assert.Zero(t, f.balance(bob, common0))
	assert.Zero(t, f.engine.HolderInstanceShares(bob, common0).Sign())
	assertInt(t, whole(210), f.engine.Holder(bob).Shares)
	f.invariants()

	// No cooldown was started, so both can act again.
	_, err = f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	assert.Len(t, f.engine.PendingRequests(), 3)
}

// --- Fusion ---

func TestFusion_Success(t *testing.T) {
	f := newFixture(t)
	f.seedCommons(alice, whole(210))

	h, err := f.engine.SubmitFusion(f.ctx, alice, common0)
	require.NoError(t, err)
	pending := f.engine.PendingRequests()
	require.Len(t, pending, 1)
	req, ok := pending[0].Request.(FusionRequest)
	require.True(t, ok)
	assertInt(t, whole(210), req.ConsumedShares)
	assert.Zero(t, f.engine.HolderInstanceShares(alice, common0).Sign())
	assert.Zero(t, f.balance(alice, common0))

	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(8499)))

	assertInt(t, whole(315), f.engine.Holder(alice).Shares)
	assertInt(t, whole(315), f.engine.State().TotalShares)
	assertInt(t, whole(315), f.engine.HolderInstanceShares(alice, fine0))
	assert.Equal(t, uint64(1), f.balance(alice, fine0))
	assert.Equal(t, testStart+60, f.engine.Holder(alice).CooldownUntil)
	f.invariants()
}

func TestFusion_Failure(t *testing.T) {
	f := newFixture(t)
	f.seedCommons(alice, whole(210))

	h, err := f.engine.SubmitFusion(f.ctx, alice, common0)
	require.NoError(t, err)
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(8500)))

	// 40% of 210 returned, 126 lost.
	assertInt(t, whole(84), f.engine.Holder(alice).Shares)
	assertInt(t, whole(84), f.engine.State().TotalShares)
	assert.Zero(t, f.balance(alice, fine0))
	assert.Zero(t, f.engine.HolderInstanceShares(alice, fine0).Sign())
	assert.Equal(t, testStart+60, f.engine.Holder(alice).CooldownUntil)

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventFusionFailed, last.Kind)
	assertInt(t, whole(84), last.Returned)
	assertInt(t, whole(126), last.Shares)
	f.invariants()
}

func TestFusion_ConsumesAverageShares(t *testing.T) {
	f := newFixture(t)
	f.seedCommons(alice, whole(400))
	require.NoError(t, f.items.MemLedger.Mint(f.ctx, string(alice), common0, 1))

	// 400 over 4 instances, 3 consumed.
	_, err := f.engine.SubmitFusion(f.ctx, alice, common0)
	require.NoError(t, err)
	assertInt(t, whole(100), f.engine.HolderInstanceShares(alice, common0))
	assert.Equal(t, uint64(1), f.balance(alice, common0))
}

func TestFusion_Rejections(t *testing.T) {
	mythic := collectible.Identity{Category: 0, Tier: collectible.TierMythic}

	t.Run("top tier", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.SubmitFusion(f.ctx, alice, mythic)
		assert.ErrorIs(t, err, ErrMaxTier)
		assert.Equal(t, ClassProtocol, ErrorClass(err))
	})

	t.Run("too few instances", func(t *testing.T) {
		f := newFixture(t)
		f.mint(alice, 0, 0)
		f.mint(alice, 0, 0)
		_, err := f.engine.SubmitFusion(f.ctx, alice, common0)
		assert.ErrorIs(t, err, ErrInsufficientInstances)
		assert.Equal(t, uint64(2), f.balance(alice, common0))
	})

	t.Run("no tracked shares", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.items.MemLedger.Mint(f.ctx, string(alice), common0, 3))
		_, err := f.engine.SubmitFusion(f.ctx, alice, common0)
		assert.ErrorIs(t, err, ErrNoTrackedShares)
		assert.Equal(t, ClassEconomic, ErrorClass(err))
		assert.Equal(t, uint64(3), f.balance(alice, common0))
	})

	t.Run("cooldown", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 3; i++ {
			f.mint(alice, 0, 0)
		}
		f.clock.Advance(-1)
		_, err := f.engine.SubmitFusion(f.ctx, alice, common0)
		assert.ErrorIs(t, err, ErrCooldownActive)
		f.clock.Advance(1)
		_, err = f.engine.SubmitFusion(f.ctx, alice, common0)
		assert.NoError(t, err)
	})
}

func TestFusion_ChainedUpgradeKeepsConservation(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.mint(alice, 0, 0)
	}
	f.mint(bob, 0, 5000)
	require.NoError(t, f.engine.Receive(f.ctx, whole(3)))

	h, err := f.engine.SubmitFusion(f.ctx, alice, common0)
	require.NoError(t, err)
	require.NoError(t, f.engine.Receive(f.ctx, whole(2)))
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))

	assert.Equal(t, uint64(1), f.balance(alice, fine0))
	f.invariants()
}

// --- Revenue and claims ---

func TestRevenue_ArrivesBeforeAnyShares(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Receive(f.ctx, whole(1)))
	assert.Zero(t, f.engine.State().DistributedTotal.Sign())

	f.mint(alice, 0, 0)
	// Nothing was attributed while the pool was empty.
	assert.Zero(t, f.engine.State().DistributedTotal.Sign())

	amount, err := f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)
	assertInt(t, whole(1), f.engine.State().DistributedTotal)
	// 1e18 over 70e18 shares leaves 50 units of rounding dust.
	assertInt(t, big.NewInt(999_999_999_999_999_950), amount)
	assertInt(t, amount, f.native.BalanceOf(string(alice)))
	assertInt(t, big.NewInt(50), f.engine.Balance())
	f.invariants()
}

func TestRevenue_LateMinterExcluded(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))

	f.mint(bob, 0, 0)
	assert.Zero(t, f.engine.PreviewPayout(bob).Sign())
	assertInt(t, whole(7), f.engine.PreviewPayout(alice))

	amount, err := f.engine.Claim(f.ctx, bob)
	assert.ErrorIs(t, err, ErrNothingToClaim)
	assert.Nil(t, amount)
	assert.Equal(t, ClassEconomic, ErrorClass(err))

	amount, err = f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)
	assertInt(t, whole(7), amount)
	f.invariants()
}

func TestRevenue_ArrivesWhileMintPending(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	h, err := f.engine.SubmitMint(f.ctx, bob, 0)
	require.NoError(t, err)

	// Revenue that lands between request and fulfillment belongs to the
	// shares that existed when it landed.
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))

	assert.Equal(t, 1, f.engine.Holder(bob).Shares.Sign())
	assert.Zero(t, f.engine.PreviewPayout(bob).Sign())
	assertInt(t, whole(7), f.engine.PreviewPayout(alice))
	f.invariants()
}

func TestRevenue_SplitsProRata(t *testing.T) {
	f := newFixture(t)
	f.seedCommons(alice, whole(30))
	s := f.engine.Snapshot()
	s.State.TotalShares = whole(100)
	bobAcct := revshare.NewHolderAccount()
	bobAcct.Shares = whole(70)
	s.Accounts[bob] = bobAcct
	f.restore(s)

	require.NoError(t, f.engine.Receive(f.ctx, whole(10)))
	a, err := f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)
	b, err := f.engine.Claim(f.ctx, bob)
	require.NoError(t, err)
	assertInt(t, whole(3), a)
	assertInt(t, whole(7), b)
	assert.Zero(t, f.engine.Balance().Sign())
	f.invariants()
}

func TestClaim_PayoutFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))
	before := f.engine.State()

	f.payout.fn = func(context.Context, string, *big.Int) error { return errors.New("node unreachable") }
	_, err := f.engine.Claim(f.ctx, alice)
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, ClassTransfer, ErrorClass(err))

	after := f.engine.State()
	assertInt(t, before.ClaimedTotal, after.ClaimedTotal)
	assertInt(t, before.DistributedTotal, after.DistributedTotal)
	assertInt(t, before.RevenuePerShare, after.RevenuePerShare)
	assertInt(t, whole(7), f.engine.Balance())
	assertInt(t, whole(7), f.engine.PreviewPayout(alice))

	f.payout.fn = nil
	amount, err := f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)
	assertInt(t, whole(7), amount)
}

func TestClaim_ReentryRejected(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	f.mint(bob, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))

	var inner []error
	f.payout.fn = func(ctx context.Context, to string, _ *big.Int) error {
		_, err := f.engine.Claim(ctx, revshare.Holder(to))
		inner = append(inner, err)
		_, err = f.engine.SubmitMint(ctx, bob, 0)
		inner = append(inner, err)
		inner = append(inner, f.engine.Receive(ctx, whole(1)))
		return nil
	}
	amount, err := f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, inner, 3)
	for _, e := range inner {
		assert.ErrorIs(t, e, ErrReentrant)
	}
	assertInt(t, amount, f.native.BalanceOf(string(alice)))
	f.invariants()
}

func TestClaim_ConcurrentCallersWaitForPayout(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(7)))
	hb, err := f.engine.SubmitMint(f.ctx, bob, 0)
	require.NoError(t, err)

	paying := make(chan struct{})
	release := make(chan struct{})
	f.payout.fn = func(context.Context, string, *big.Int) error {
		close(paying)
		<-release
		return nil
	}

	claimed := make(chan error, 1)
	go func() {
		_, err := f.engine.Claim(f.ctx, alice)
		claimed <- err
	}()
	<-paying

	others := make(chan error, 2)
	go func() { others <- f.engine.Receive(f.ctx, whole(1)) }()
	go func() { others <- f.engine.Fulfill(f.ctx, hb, big.NewInt(0)) }()

	select {
	case err := <-others:
		t.Fatalf("call returned during payout: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	require.NoError(t, <-claimed)
	require.NoError(t, <-others)
	require.NoError(t, <-others)
	assertInt(t, whole(7), f.native.BalanceOf(string(alice)))
	assertInt(t, whole(1), f.engine.Balance())
	assert.Equal(t, 1, f.engine.Holder(bob).Shares.Sign())
	assert.Empty(t, f.engine.PendingRequests())
	f.invariants()
}

func TestClaim_Cooldown(t *testing.T) {
	f := newFixture(t)
	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))
	require.NoError(t, f.engine.Receive(f.ctx, whole(1)))

	_, err = f.engine.Claim(f.ctx, alice)
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, ClassTiming, ErrorClass(err))

	f.clock.Advance(60)
	_, err = f.engine.Claim(f.ctx, alice)
	require.NoError(t, err)

	// Claiming does not restart the cooldown.
	_, err = f.engine.SubmitMint(f.ctx, alice, 0)
	assert.NoError(t, err)
}

// --- Admin ---

func TestEmergencyWithdraw(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(5)))

	amount, err := f.engine.EmergencyWithdraw(f.ctx, "treasury")
	require.NoError(t, err)
	assertInt(t, whole(5), amount)
	assertInt(t, whole(5), f.native.BalanceOf("treasury"))
	assert.Zero(t, f.engine.Balance().Sign())

	_, err = f.engine.EmergencyWithdraw(f.ctx, "treasury")
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	// The drained revenue was never distributed, so there is nothing owed.
	_, err = f.engine.Claim(f.ctx, alice)
	assert.ErrorIs(t, err, ErrNothingToClaim)
	f.invariants()
}

func TestEmergencyWithdraw_OwedPayoutsUnfunded(t *testing.T) {
	f := newFixture(t)
	f.mint(alice, 0, 0)
	f.mint(bob, 0, 0)
	require.NoError(t, f.engine.Receive(f.ctx, whole(5)))
	// Bob's claim distributes the deposit; alice's part stays owed.
	_, err := f.engine.Claim(f.ctx, bob)
	require.NoError(t, err)

	_, err = f.engine.EmergencyWithdraw(f.ctx, "treasury")
	require.NoError(t, err)

	_, err = f.engine.Claim(f.ctx, alice)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, ClassTransfer, ErrorClass(err))
	f.invariants()
}

func TestAdminSetters_Bounds(t *testing.T) {
	f := newFixture(t)
	e := f.engine

	tests := []struct {
		name string
		set  func() error
		ok   bool
	}{
		{"cooldown min", func() error { return e.SetCooldownPeriod(f.ctx, 10) }, true},
		{"cooldown max", func() error { return e.SetCooldownPeriod(f.ctx, 1200) }, true},
		{"cooldown below", func() error { return e.SetCooldownPeriod(f.ctx, 9) }, false},
		{"cooldown above", func() error { return e.SetCooldownPeriod(f.ctx, 1201) }, false},
		{"multiplier 1x", func() error { return e.SetFusionMultiplier(f.ctx, 10000) }, true},
		{"multiplier 3x", func() error { return e.SetFusionMultiplier(f.ctx, 30000) }, true},
		{"multiplier below 1x", func() error { return e.SetFusionMultiplier(f.ctx, 9999) }, false},
		{"multiplier above 3x", func() error { return e.SetFusionMultiplier(f.ctx, 30001) }, false},
		{"fail return zero", func() error { return e.SetFailReturnRate(f.ctx, 0) }, true},
		{"fail return 80%", func() error { return e.SetFailReturnRate(f.ctx, 8000) }, true},
		{"fail return above", func() error { return e.SetFailReturnRate(f.ctx, 8001) }, false},
		{"thresholds ok", func() error {
			return e.SetTierThresholds(f.ctx, [collectible.NumTiers]uint64{1000, 2000, 3000, 4000, 5000, 10000})
		}, true},
		{"thresholds decreasing", func() error {
			return e.SetTierThresholds(f.ctx, [collectible.NumTiers]uint64{5000, 4000, 6000, 7000, 8000, 10000})
		}, false},
		{"thresholds short", func() error {
			return e.SetTierThresholds(f.ctx, [collectible.NumTiers]uint64{5000, 6000, 7000, 8000, 9000, 9999})
		}, false},
		{"multipliers ok", func() error {
			return e.SetTierMultipliers(f.ctx, [collectible.NumTiers]uint64{1, 2, 3, 4, 5, 6})
		}, true},
		{"multiplier zero", func() error {
			return e.SetTierMultipliers(f.ctx, [collectible.NumTiers]uint64{0, 2, 3, 4, 5, 6})
		}, false},
		{"success rates ok", func() error {
			return e.SetSuccessRates(f.ctx, [collectible.NumTiers - 1]uint64{10000, 0, 1, 2, 3})
		}, true},
		{"success rate above", func() error {
			return e.SetSuccessRates(f.ctx, [collectible.NumTiers - 1]uint64{10001, 0, 1, 2, 3})
		}, false},
		{"category ok", func() error { return e.SetCategory(f.ctx, 5, whole(1), whole(1)) }, true},
		{"category zero shares", func() error { return e.SetCategory(f.ctx, 5, whole(1), big.NewInt(0)) }, false},
		{"category nil cost", func() error { return e.SetCategory(f.ctx, 5, nil, whole(1)) }, false},
		{"min liquidity", func() error { return e.SetMinLiquidity(f.ctx, big.NewInt(0)) }, true},
		{"min liquidity negative", func() error { return e.SetMinLiquidity(f.ctx, big.NewInt(-1)) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.Params()
			err := tt.set()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidParam)
			assert.Equal(t, ClassParameter, ErrorClass(err))
			assert.Equal(t, before, e.Params())
		})
	}
	require.NoError(t, e.Params().Validate())
}

func TestAdminSetters_TakeEffect(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetCooldownPeriod(f.ctx, 600))
	require.NoError(t, f.engine.SetTierMultipliers(f.ctx, [collectible.NumTiers]uint64{20000, 10000, 15000, 25000, 50000, 100000}))

	h, err := f.engine.SubmitMint(f.ctx, alice, 0)
	require.NoError(t, err)
	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))
	assertInt(t, whole(200), f.engine.Holder(alice).Shares)
	assert.Equal(t, testStart+600, f.engine.Holder(alice).CooldownUntil)

	kinds := 0
	for _, ev := range f.events.Events() {
		if ev.Kind == EventParamsUpdated {
			kinds++
		}
	}
	assert.Equal(t, 2, kinds)
}

// --- Snapshot ---

func TestSnapshotRestore_ContinuesState(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.mint(alice, 0, 0)
	}
	require.NoError(t, f.engine.Receive(f.ctx, whole(4)))
	h, err := f.engine.SubmitFusion(f.ctx, alice, common0)
	require.NoError(t, err)

	before := f.engine.Snapshot()
	f.restore(before)
	after := f.engine.Snapshot()

	assertInt(t, before.State.TotalShares, after.State.TotalShares)
	assertInt(t, before.Balance, after.Balance)
	assertInt(t, before.Received, after.Received)
	assert.Equal(t, len(before.Tracked), len(after.Tracked))
	assert.Equal(t, before.Params, after.Params)
	require.Len(t, after.Pending, 1)
	assert.Contains(t, after.Pending, h)

	require.NoError(t, f.engine.Fulfill(f.ctx, h, big.NewInt(0)))
	assert.Equal(t, uint64(1), f.balance(alice, fine0))
	f.invariants()
}

// --- Holders ---

func TestParseHolder(t *testing.T) {
	f := newFixture(t)
	h, err := HolderFromPublicKey(f.random.PublicKey(), true)
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	parsed, err := ParseHolder(string(h))
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHolder("not-an-address")
	assert.ErrorIs(t, err, ErrInvalidHolder)
	_, err = HolderFromPublicKey(nil, true)
	assert.ErrorIs(t, err, ErrInvalidHolder)

	_, err = f.engine.SubmitMint(f.ctx, "", 0)
	assert.ErrorIs(t, err, ErrInvalidHolder)
}
