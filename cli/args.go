package cli

import (
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

func argHolder(s string) (revshare.Holder, error) {
	h, err := forge.ParseHolder(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid holder", err)
	}
	return h, nil
}

func argAmount(s string) (*big.Int, error) {
	v, err := forge.ParseUnits(s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid amount", err)
	}
	return v, nil
}

func argCategory(s string) (uint32, error) {
	c, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid category", err)
	}
	return uint32(c), nil
}

func argIdentity(category, tier string) (collectible.Identity, error) {
	c, err := argCategory(category)
	if err != nil {
		return collectible.Identity{}, err
	}
	t, err := collectible.ParseTier(tier)
	if err != nil {
		return collectible.Identity{}, WrapExitError(ExitCommandError, "invalid tier", err)
	}
	return collectible.Identity{Category: c, Tier: t}, nil
}

func argHandle(s string) (vrf.Handle, error) {
	h, err := vrf.ParseHandle(s)
	if err != nil {
		return vrf.Handle{}, WrapExitError(ExitCommandError, "invalid handle", err)
	}
	return h, nil
}

func output(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
