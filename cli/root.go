// Package cli implements the relicpool command line.
package cli

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/config"
	"github.com/bitfsorg/relicpool-go/forge"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir string
	Verbose bool
	Format  string // "json" | "text"

	// Clock overrides the wall clock. Tests set it; the binary leaves it nil.
	Clock forge.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DisableLockTimeout turns off go-deadlock's lock wait timeout. Engine
// transactions hold their lock across oracle and ledger calls, which may be
// slow; lock order checking stays on.
func DisableLockTimeout() {
	deadlock.Opts.DeadlockTimeout = 0
}

// NewRootCommand creates the root command for the relicpool CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relicpool",
		Short: "Relicpool - collectible forge with revenue sharing",
		Long: `Relicpool runs a share-accumulator pool backed by tiered collectibles.

Holders burn the pool asset to mint collectibles, fuse three instances into
the next tier, and claim their pro-rata share of native revenue. Mint and
fusion outcomes resolve when the randomness provider fulfills the request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.DataDir, "datadir", "d", config.DefaultDataDir(), "data directory")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewFaucetCommand(opts))
	cmd.AddCommand(NewDepositCommand(opts))
	cmd.AddCommand(NewQuoteCommand(opts))
	cmd.AddCommand(NewMintCommand(opts))
	cmd.AddCommand(NewFuseCommand(opts))
	cmd.AddCommand(NewFulfillCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDrainCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
