package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/config"
	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/storage"
)

// KeyResult is the output of keygen.
type KeyResult struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Address    string `json:"address"`
}

func (r KeyResult) Text() string {
	return fmt.Sprintf("private key: %s\npublic key:  %s\naddress:     %s\n", r.PrivateKey, r.PublicKey, r.Address)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var testnet bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key and its holder address",
		Long: `Generate a secp256k1 key pair. The address identifies a holder; the
private key can serve as the randomness provider key (vrfkey).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := ec.NewPrivateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			r, err := keyResult(priv, !testnet)
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(r)
		},
	}

	cmd.Flags().BoolVar(&testnet, "testnet", false, "derive a testnet address")

	return cmd
}

func keyResult(priv *ec.PrivateKey, mainnet bool) (KeyResult, error) {
	holder, err := forge.HolderFromPublicKey(priv.PubKey(), mainnet)
	if err != nil {
		return KeyResult{}, err
	}
	return KeyResult{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PublicKey:  hex.EncodeToString(priv.PubKey().Compressed()),
		Address:    string(holder),
	}, nil
}

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Network string
	Params  string
	Force   bool
}

// InitResult is the output of init.
type InitResult struct {
	DataDir      string   `json:"datadir"`
	Network      string   `json:"network"`
	VRFPublicKey string   `json:"vrf_public_key"`
	Categories   []uint32 `json:"categories"`
}

func (r InitResult) Text() string {
	return fmt.Sprintf("initialized %s (%s)\nvrf public key: %s\ncategories: %v\n", r.DataDir, r.Network, r.VRFPublicKey, r.Categories)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and an empty pool",
		Long: `Create the configuration and an empty pool in the data directory.

An existing configuration is kept; a randomness key is generated when none is
set. Economic parameters come from --params (YAML) or the built-in defaults.

Example:
  relicpool init --network testnet --params params.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "network for holder addresses (mainnet|testnet)")
	cmd.Flags().StringVar(&opts.Params, "params", "", "economic parameters file (YAML)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replace an existing pool")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	path := config.ConfigPath(opts.DataDir)
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
		cfg.DataDir = opts.DataDir
	} else if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if opts.Network != "" {
		cfg.Network = opts.Network
	}
	if opts.Params != "" {
		abs, err := filepath.Abs(opts.Params)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid params path", err)
		}
		cfg.ParamsFile = abs
	}
	if cfg.VRFKey == "" {
		priv, err := ec.NewPrivateKey()
		if err != nil {
			return fmt.Errorf("generate vrf key: %w", err)
		}
		cfg.VRFKey = hex.EncodeToString(priv.Serialize())
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	params, err := loadParams(cfg.ParamsFile)
	if err != nil {
		return err
	}

	n, err := newNode(opts.RootOptions, cfg)
	if err != nil {
		return err
	}
	defer n.close()

	if _, err := n.store.Load(); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("pool already initialized in %s (use --force to replace it)", cfg.DataDir))
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) && !opts.Force {
		return fmt.Errorf("load pool: %w", err)
	}

	if err := n.create(params); err != nil {
		return WrapExitError(ExitCommandError, "create pool", err)
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	if err := n.save(); err != nil {
		return err
	}

	return output(cmd, opts.RootOptions).Success(InitResult{
		DataDir:      cfg.DataDir,
		Network:      cfg.Network,
		VRFPublicKey: hex.EncodeToString(n.random.PublicKey().Compressed()),
		Categories:   params.CategoryIDs(),
	})
}

func loadParams(path string) (forge.Params, error) {
	if strings.TrimSpace(path) == "" {
		return forge.DefaultParams(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return forge.Params{}, WrapExitError(ExitCommandError, "open params file", err)
	}
	defer f.Close()
	p, err := forge.LoadParams(f)
	if err != nil {
		return forge.Params{}, WrapExitError(ExitCommandError, "invalid params file", err)
	}
	return p, nil
}
