// Package forge is the mint/fusion engine: it prices and records asset burns
// and instance fusions, resolves them when the random value arrives, and
// keeps every holder's share of the revenue pool up to date.
//
// Every exported entry point is one serialized, all-or-nothing transaction.
// Outcomes are published to an EventSink after the transaction commits.
package forge

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/token"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// Payout sends native currency out of the engine.
//
// Pay is called while the engine is mid-transaction. Engine entry points
// invoked from inside Pay with the context Pay was given are rejected with
// ErrReentrant; views must not be called from inside Pay. Callers on other
// goroutines wait for the payout's transaction to finish.
type Payout interface {
	Pay(ctx context.Context, to string, amount *big.Int) error
}

// Deps are the engine's external collaborators. Clock defaults to the
// system clock; every other field is required.
//
// The engine lock is held across calls into Collectibles, Reserves, Prices
// and Payout. Under go-deadlock a caller waiting longer than
// deadlock.Opts.DeadlockTimeout on that lock is reported as a deadlock, so
// hosts with slow collaborators should raise or disable the timeout.
type Deps struct {
	Collectibles collectible.Ledger
	Asset        token.Sink
	Reserves     oracle.ReserveReader
	Prices       oracle.PriceFeed
	Random       vrf.Provider
	Payout       Payout
	Clock        Clock
}

func (d *Deps) check() error {
	switch {
	case d.Collectibles == nil:
		return fmt.Errorf("%w: collectible ledger", ErrMissingDependency)
	case d.Asset == nil:
		return fmt.Errorf("%w: asset sink", ErrMissingDependency)
	case d.Reserves == nil:
		return fmt.Errorf("%w: reserve reader", ErrMissingDependency)
	case d.Prices == nil:
		return fmt.Errorf("%w: price feed", ErrMissingDependency)
	case d.Random == nil:
		return fmt.Errorf("%w: randomness provider", ErrMissingDependency)
	case d.Payout == nil:
		return fmt.Errorf("%w: payout", ErrMissingDependency)
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	return nil
}

// trackKey indexes HolderInstanceShares.
type trackKey struct {
	holder revshare.Holder
	id     collectible.Identity
}

// Engine is the forge state machine.
type Engine struct {
	mu deadlock.Mutex

	deps   Deps
	log    Logger
	sink   EventSink
	params Params

	ledger   *revshare.Ledger
	balance  *big.Int // native currency held
	received *big.Int // native currency ever received

	latest  map[collectible.Identity]*big.Int
	tracked map[trackKey]*big.Int
	pending map[vrf.Handle]Request
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithEventSink sets where committed events go.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// New creates an engine with empty state.
func New(deps Deps, params Params, opts ...Option) (*Engine, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		deps:     deps,
		log:      nopLogger{},
		sink:     nopSink{},
		params:   params.Clone(),
		ledger:   revshare.NewLedger(),
		balance:  new(big.Int),
		received: new(big.Int),
		latest:   make(map[collectible.Identity]*big.Int),
		tracked:  make(map[trackKey]*big.Int),
		pending:  make(map[vrf.Handle]Request),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// payoutKey tags the context handed to Payout.Pay with the paying engine.
type payoutKey struct{}

// enter takes the engine lock for an entry point. A ctx that came from this
// engine's own Pay call means the lock is already held by the caller.
func (e *Engine) enter(ctx context.Context) error {
	if owner, _ := ctx.Value(payoutKey{}).(*Engine); owner == e {
		return ErrReentrant
	}
	e.mu.Lock()
	return nil
}

// finish commits or rolls back tx, releases the lock, then publishes the
// committed events.
func (e *Engine) finish(tx *txn, op string, err error) {
	if err != nil {
		tx.rollback()
		e.mu.Unlock()
		e.log.Warn("%s rejected: %v", op, err)
		return
	}
	events := tx.events
	e.mu.Unlock()
	e.log.Debug("%s committed", op)
	for _, ev := range events {
		e.sink.Emit(ev)
	}
}

func (e *Engine) now() int64 { return e.deps.Clock.Now() }

// reconcile folds newly arrived revenue into the accumulator.
func (e *Engine) reconcile() {
	if d := e.ledger.Reconcile(e.balance); d.Sign() > 0 {
		e.log.Debug("reconciled %s into %s shares", d, e.ledger.TotalShares())
	}
}

func (e *Engine) checkCooldown(h revshare.Holder) error {
	now := e.now()
	if until := e.ledger.CooldownUntil(h); now < until {
		return fmt.Errorf("%w: %s until %d (now %d)", ErrCooldownActive, h, until, now)
	}
	return nil
}

func (e *Engine) startCooldown(h revshare.Holder) {
	e.ledger.SetCooldownUntil(h, e.now()+e.params.CooldownPeriod)
}

func checkHolder(h revshare.Holder) error {
	if h == "" {
		return fmt.Errorf("%w: empty", ErrInvalidHolder)
	}
	return nil
}

// Receive credits incoming revenue. It is not attributed until the next
// reconciliation.
func (e *Engine) Receive(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if err := e.enter(ctx); err != nil {
		return err
	}
	tx := e.begin()
	tx.setBalance(new(big.Int).Add(e.balance, amount))
	tx.setReceived(new(big.Int).Add(e.received, amount))
	ev := newEvent(EventRevenueReceived, e.now())
	ev.Amount = new(big.Int).Set(amount)
	tx.emit(ev)
	e.finish(tx, "receive", nil)
	return nil
}

// State returns a copy of the accumulator state.
func (e *Engine) State() revshare.GlobalState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.State()
}

// Holder returns a copy of the holder's account.
func (e *Engine) Holder(h revshare.Holder) revshare.HolderAccount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Account(h)
}

// Holders returns every holder with an account, sorted.
func (e *Engine) Holders() []revshare.Holder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Holders()
}

// Balance returns the native currency currently held.
func (e *Engine) Balance() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.balance)
}

// Received returns the native currency ever received.
func (e *Engine) Received() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.received)
}

// Params returns a copy of the current parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Clone()
}

// PendingRequests returns every unfulfilled request ordered by handle.
func (e *Engine) PendingRequests() []Pending {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Pending, 0, len(e.pending))
	for h, r := range e.pending {
		out = append(out, Pending{Handle: h, Request: cloneRequest(r)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle.String() < out[j].Handle.String() })
	return out
}

// HolderInstanceShares returns the shares attributed to the holder's
// outstanding instances of id.
func (e *Engine) HolderInstanceShares(h revshare.Holder, id collectible.Identity) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyOrZero(e.tracked[trackKey{h, id}])
}

// LatestMintedShares returns the share weight most recently minted for id.
func (e *Engine) LatestMintedShares(id collectible.Identity) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyOrZero(e.latest[id])
}

// PreviewPayout returns what the holder could claim right now, including
// revenue not yet reconciled.
func (e *Engine) PreviewPayout(h revshare.Holder) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.PreviewPayout(h, e.balance)
}

// CheckInvariants verifies share conservation and revenue accounting.
func (e *Engine) CheckInvariants() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ledger.ValidateShareConservation(); err != nil {
		return err
	}
	return e.ledger.ValidateRevenue(e.received)
}

func copyOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
