package cli

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/revshare"
)

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <holder>",
		Short: "Pay out a holder's accumulated revenue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := argHolder(args[0])
			if err != nil {
				return err
			}
			var paid *big.Int
			err = withNode(rootOpts, func(n *node) error {
				paid, err = n.engine.Claim(cmd.Context(), holder)
				return err
			})
			if err != nil {
				return err
			}
			return output(cmd, rootOpts).Success(AmountResult{Action: "paid", Holder: string(holder), Amount: forge.FormatUnits(paid)})
		},
	}
}

// PendingView is one unfulfilled request.
type PendingView struct {
	Handle string `json:"handle"`
	Kind   string `json:"kind"`
	Holder string `json:"holder"`
}

// PoolStatus is the pool-wide view.
type PoolStatus struct {
	TotalShares     string        `json:"total_shares"`
	RevenuePerShare string        `json:"revenue_per_share"`
	Balance         string        `json:"balance"`
	Received        string        `json:"received"`
	Pending         []PendingView `json:"pending"`
}

func (s PoolStatus) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total shares:      %s\n", s.TotalShares)
	fmt.Fprintf(&b, "revenue per share: %s\n", s.RevenuePerShare)
	fmt.Fprintf(&b, "balance:           %s\n", s.Balance)
	fmt.Fprintf(&b, "received:          %s\n", s.Received)
	fmt.Fprintf(&b, "pending requests:  %d\n", len(s.Pending))
	for _, p := range s.Pending {
		fmt.Fprintf(&b, "  %s %s %s\n", p.Handle, p.Kind, p.Holder)
	}
	return b.String()
}

// ItemView is one identity a holder owns.
type ItemView struct {
	Identity string `json:"identity"`
	Count    uint64 `json:"count"`
	Shares   string `json:"shares"`
}

// HolderStatus is the view of one holder.
type HolderStatus struct {
	Holder        string     `json:"holder"`
	Shares        string     `json:"shares"`
	Payout        string     `json:"payout"`
	CooldownUntil int64      `json:"cooldown_until"`
	Asset         string     `json:"asset"`
	Native        string     `json:"native"`
	Items         []ItemView `json:"items"`
}

func (s HolderStatus) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "holder:         %s\n", s.Holder)
	fmt.Fprintf(&b, "shares:         %s\n", s.Shares)
	fmt.Fprintf(&b, "payout:         %s\n", s.Payout)
	fmt.Fprintf(&b, "cooldown until: %d\n", s.CooldownUntil)
	fmt.Fprintf(&b, "asset:          %s\n", s.Asset)
	fmt.Fprintf(&b, "native:         %s\n", s.Native)
	for _, it := range s.Items {
		fmt.Fprintf(&b, "  %s x%d (%s shares)\n", it.Identity, it.Count, it.Shares)
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [holder]",
		Short: "Show the pool or one holder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var holder revshare.Holder
			if len(args) == 1 {
				h, err := argHolder(args[0])
				if err != nil {
					return err
				}
				holder = h
			}
			n, err := openNode(rootOpts)
			if err != nil {
				return err
			}
			defer n.close()
			if holder == "" {
				return output(cmd, rootOpts).Success(n.poolStatus())
			}
			return output(cmd, rootOpts).Success(n.holderStatus(holder))
		},
	}
}

func (n *node) poolStatus() PoolStatus {
	st := n.engine.State()
	s := PoolStatus{
		TotalShares:     forge.FormatUnits(st.TotalShares),
		RevenuePerShare: forge.FormatUnits(st.RevenuePerShare),
		Balance:         forge.FormatUnits(n.engine.Balance()),
		Received:        forge.FormatUnits(n.engine.Received()),
		Pending:         []PendingView{},
	}
	for _, p := range n.engine.PendingRequests() {
		s.Pending = append(s.Pending, PendingView{
			Handle: p.Handle.String(),
			Kind:   p.Request.Kind().String(),
			Holder: string(p.Request.Requester()),
		})
	}
	return s
}

func (n *node) holderStatus(h revshare.Holder) HolderStatus {
	acct := n.engine.Holder(h)
	s := HolderStatus{
		Holder:        string(h),
		Shares:        forge.FormatUnits(acct.Shares),
		Payout:        forge.FormatUnits(n.engine.PreviewPayout(h)),
		CooldownUntil: acct.CooldownUntil,
		Asset:         forge.FormatUnits(n.asset.BalanceOf(string(h))),
		Native:        forge.FormatUnits(n.native.BalanceOf(string(h))),
		Items:         []ItemView{},
	}
	for _, it := range n.items.Snapshot() {
		if it.Holder != string(h) {
			continue
		}
		s.Items = append(s.Items, ItemView{
			Identity: it.Identity.String(),
			Count:    it.Count,
			Shares:   forge.FormatUnits(n.engine.HolderInstanceShares(h, it.Identity)),
		})
	}
	return s
}
