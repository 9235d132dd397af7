package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mborders/logmatic"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/config"
	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/logging"
	"github.com/bitfsorg/relicpool-go/oracle"
	"github.com/bitfsorg/relicpool-go/storage"
	"github.com/bitfsorg/relicpool-go/token"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// node is a pool loaded from a data directory. The collectible and token
// ledgers are the in-memory implementations, persisted with the engine.
type node struct {
	opts   *RootOptions
	cfg    config.Config
	log    *logmatic.Logger
	store  *storage.BoltStore
	items  *collectible.MemLedger
	asset  *token.MemToken
	native *token.MemToken
	random *vrf.LocalProvider
	events *forge.Recorder
	engine *forge.Engine
}

func (o *RootOptions) clock() forge.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return forge.SystemClock{}
}

// loadConfig reads and validates the configuration in the data directory.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.LoadConfig(config.ConfigPath(opts.DataDir))
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.Config{}, WrapExitError(ExitCommandError, "no configuration (run relicpool init)", err)
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load configuration", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newNode prepares an empty node for cfg and opens its database.
func newNode(opts *RootOptions, cfg config.Config) (*node, error) {
	if cfg.VRFKey == "" {
		return nil, NewExitError(ExitCommandError, "no vrf key configured (run relicpool init)")
	}
	level := cfg.LogLevel
	switch {
	case opts.Verbose:
		level = "debug"
	case opts.Format == "json":
		// Logs share stdout with the JSON response.
		level = "error"
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	random, err := vrf.NewLocalProviderFromHex(cfg.VRFKey)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	store, err := storage.OpenBoltStore(config.DBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	return &node{
		opts:   opts,
		cfg:    cfg,
		log:    log,
		store:  store,
		items:  collectible.NewMemLedger(),
		asset:  token.NewMemToken(),
		native: token.NewMemToken(),
		random: random,
		events: &forge.Recorder{},
	}, nil
}

// openNode loads the configuration and the stored pool.
func openNode(opts *RootOptions) (*node, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	n, err := newNode(opts, cfg)
	if err != nil {
		return nil, err
	}
	w, err := n.store.Load()
	if err != nil {
		n.close()
		if errors.Is(err, storage.ErrNotFound) {
			return nil, WrapExitError(ExitCommandError, "pool not initialized (run relicpool init)", err)
		}
		return nil, fmt.Errorf("load pool: %w", err)
	}
	if err := n.restore(w); err != nil {
		n.close()
		return nil, err
	}
	return n, nil
}

func (n *node) deps() (forge.Deps, error) {
	reserves, err := n.cfg.Reserves()
	if err != nil {
		return forge.Deps{}, err
	}
	price, err := n.cfg.NativePrice()
	if err != nil {
		return forge.Deps{}, err
	}
	clock := n.opts.clock()
	return forge.Deps{
		Collectibles: n.items,
		Asset:        n.asset,
		Reserves:     oracle.StaticReserves(reserves),
		Prices:       oracle.StaticPrice{Value: price, Now: clock.Now},
		Random:       n.random,
		Payout:       n.native,
		Clock:        clock,
	}, nil
}

func (n *node) engineOptions() []forge.Option {
	return []forge.Option{
		forge.WithLogger(n.log),
		forge.WithEventSink(forge.MultiSink(n.events, forge.LogSink(n.log))),
	}
}

// create starts a fresh pool with params.
func (n *node) create(params forge.Params) error {
	deps, err := n.deps()
	if err != nil {
		return err
	}
	n.engine, err = forge.New(deps, params, n.engineOptions()...)
	return err
}

// restore rebuilds the ledgers and the engine from a stored world.
func (n *node) restore(w *storage.World) error {
	n.items = collectible.RestoreMemLedger(w.Items)
	n.asset = token.RestoreMemToken(w.Asset)
	n.native = token.RestoreMemToken(w.Native)
	n.random.Restore(w.Random)
	deps, err := n.deps()
	if err != nil {
		return err
	}
	n.engine, err = forge.Restore(deps, w.Engine, n.engineOptions()...)
	if err != nil {
		return fmt.Errorf("restore pool: %w", err)
	}
	return nil
}

func (n *node) world() *storage.World {
	return &storage.World{
		Engine: n.engine.Snapshot(),
		Items:  n.items.Snapshot(),
		Asset:  n.asset.Snapshot(),
		Native: n.native.Snapshot(),
		Random: n.random.Snapshot(),
	}
}

func (n *node) save() error {
	if err := n.store.Save(n.world()); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

func (n *node) close() {
	if err := n.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "relicpool: close database: %v\n", err)
	}
}

// withNode opens the pool, runs fn and saves the pool only if fn succeeds.
func withNode(opts *RootOptions, fn func(n *node) error) error {
	n, err := openNode(opts)
	if err != nil {
		return err
	}
	defer n.close()
	if err := fn(n); err != nil {
		return err
	}
	return n.save()
}
