package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// QuoteResult is the output of quote.
type QuoteResult struct {
	Category uint32 `json:"category"`
	Cost     string `json:"cost"`
}

func (r QuoteResult) Text() string {
	return fmt.Sprintf("category %d costs %s asset\n", r.Category, r.Cost)
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <category>",
		Short: "Show the current mint cost of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := argCategory(args[0])
			if err != nil {
				return err
			}
			n, err := openNode(rootOpts)
			if err != nil {
				return err
			}
			defer n.close()
			cost, err := n.engine.QuoteMint(cmd.Context(), category)
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(QuoteResult{Category: category, Cost: forge.FormatUnits(cost)})
		},
	}
}

// ActionOptions holds flags shared by mint and fuse.
type ActionOptions struct {
	*RootOptions
	Fulfill bool
}

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mint <holder> <category>",
		Short: "Burn asset to request a collectible",
		Long: `Burn the category's current cost in asset and request a random tier.
The collectible and its shares arrive when the request is fulfilled.

Example:
  relicpool mint 1BoatSLRHtKNngkdXEeobR76b53LETtpyT 0 --fulfill`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := argHolder(args[0])
			if err != nil {
				return err
			}
			category, err := argCategory(args[1])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, func(ctx context.Context, n *node) (vrf.Handle, error) {
				return n.engine.SubmitMint(ctx, holder, category)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Fulfill, "fulfill", false, "fulfill the request immediately")

	return cmd
}

// NewFuseCommand creates the fuse command.
func NewFuseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fuse <holder> <category> <tier>",
		Short: "Destroy three instances to attempt the next tier",
		Long: `Destroy three instances of one identity and request the upgrade roll.
The tier is a name (common, fine, rare, epic, legendary) or its index.

Example:
  relicpool fuse 1BoatSLRHtKNngkdXEeobR76b53LETtpyT 0 common --fulfill`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := argHolder(args[0])
			if err != nil {
				return err
			}
			id, err := argIdentity(args[1], args[2])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, func(ctx context.Context, n *node) (vrf.Handle, error) {
				return n.engine.SubmitFusion(ctx, holder, id)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Fulfill, "fulfill", false, "fulfill the request immediately")

	return cmd
}

func runAction(cmd *cobra.Command, opts *ActionOptions, submit func(context.Context, *node) (vrf.Handle, error)) error {
	var events EventsResult
	err := withNode(opts.RootOptions, func(n *node) error {
		h, err := submit(cmd.Context(), n)
		if err != nil {
			return err
		}
		if opts.Fulfill {
			if err := n.fulfill(cmd.Context(), h); err != nil {
				return err
			}
		}
		events = eventsResult(n.events)
		return nil
	})
	if err != nil {
		return err
	}
	return output(cmd, opts.RootOptions).Success(events)
}

// fulfill reveals h from the local provider and delivers the verified value.
func (n *node) fulfill(ctx context.Context, h vrf.Handle) error {
	out, err := n.random.Reveal(h)
	if err != nil {
		return fmt.Errorf("%w: %w", forge.ErrUnknownRequest, err)
	}
	pub := n.random.PublicKey()
	return n.engine.FulfillOutput(ctx, out, func(o *vrf.Output) error {
		return vrf.Verify(pub, o)
	})
}

// FulfillOptions holds flags for the fulfill command.
type FulfillOptions struct {
	*RootOptions
	Value string
}

// NewFulfillCommand creates the fulfill command.
func NewFulfillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FulfillOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fulfill [handle...]",
		Short: "Deliver randomness to pending requests",
		Long: `Deliver randomness to the given pending requests, or to all of them.

Values come from the local provider and are verified against its key before
delivery. --value overrides the provider for a single handle, for replaying
an externally produced value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFulfill(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Value, "value", "", "raw random value (decimal) for a single handle")

	return cmd
}

func runFulfill(opts *FulfillOptions, args []string, cmd *cobra.Command) error {
	handles := make([]vrf.Handle, 0, len(args))
	for _, a := range args {
		h, err := argHandle(a)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	var value *big.Int
	if opts.Value != "" {
		if len(handles) != 1 {
			return NewExitError(ExitCommandError, "--value needs exactly one handle")
		}
		v, ok := new(big.Int).SetString(opts.Value, 10)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid value %q", opts.Value))
		}
		value = v
	}

	var events EventsResult
	err := withNode(opts.RootOptions, func(n *node) error {
		ctx := cmd.Context()
		if value != nil {
			if err := n.engine.Fulfill(ctx, handles[0], value); err != nil {
				return err
			}
			n.random.Retire(handles[0])
			events = eventsResult(n.events)
			return nil
		}
		if len(handles) == 0 {
			for _, p := range n.engine.PendingRequests() {
				handles = append(handles, p.Handle)
			}
		}
		for _, h := range handles {
			if err := n.fulfill(ctx, h); err != nil {
				return fmt.Errorf("fulfill %s: %w", h, err)
			}
		}
		events = eventsResult(n.events)
		return nil
	})
	if err != nil {
		return err
	}
	return output(cmd, opts.RootOptions).Success(events)
}
