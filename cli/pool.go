package cli

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/forge"
)

// AmountResult reports an amount moved by a command.
type AmountResult struct {
	Action string `json:"action"`
	Holder string `json:"holder,omitempty"`
	Amount string `json:"amount"`
}

func (r AmountResult) Text() string {
	if r.Holder == "" {
		return fmt.Sprintf("%s %s\n", r.Action, r.Amount)
	}
	return fmt.Sprintf("%s %s: %s\n", r.Action, r.Holder, r.Amount)
}

// NewFaucetCommand creates the faucet command.
func NewFaucetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "faucet <holder> <amount>",
		Short: "Credit pool asset to a holder",
		Long: `Credit whole units of the pool asset to a holder so it can pay for mints.

Example:
  relicpool faucet 1BoatSLRHtKNngkdXEeobR76b53LETtpyT 100`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := argHolder(args[0])
			if err != nil {
				return err
			}
			amount, err := argAmount(args[1])
			if err != nil {
				return err
			}
			err = withNode(rootOpts, func(n *node) error {
				return n.asset.Credit(string(holder), amount)
			})
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(AmountResult{Action: "credited", Holder: string(holder), Amount: forge.FormatUnits(amount)})
		},
	}
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Pay native revenue into the pool",
		Long: `Pay native revenue into the pool. Revenue is distributed to share holders
pro rata on their next interaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := argAmount(args[0])
			if err != nil {
				return err
			}
			err = withNode(rootOpts, func(n *node) error {
				return n.engine.Receive(cmd.Context(), amount)
			})
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(AmountResult{Action: "received", Amount: forge.FormatUnits(amount)})
		},
	}
}

// NewDrainCommand creates the drain command.
func NewDrainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drain <recipient>",
		Short: "Withdraw the whole native balance",
		Long: `Withdraw the whole native balance to recipient. Owed payouts stay recorded
but cannot be paid until revenue arrives again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := argHolder(args[0])
			if err != nil {
				return err
			}
			var amount *big.Int
			err = withNode(rootOpts, func(n *node) error {
				amount, err = n.engine.EmergencyWithdraw(cmd.Context(), string(to))
				return err
			})
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(AmountResult{Action: "withdrew", Holder: string(to), Amount: forge.FormatUnits(amount)})
		},
	}
}
