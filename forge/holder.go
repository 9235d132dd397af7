package forge

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/relicpool-go/revshare"
)

// ParseHolder validates a P2PKH address and returns it as a holder.
func ParseHolder(s string) (revshare.Holder, error) {
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidHolder, s, err)
	}
	return revshare.Holder(addr.AddressString), nil
}

// HolderFromPublicKey derives the P2PKH holder address of pub.
func HolderFromPublicKey(pub *ec.PublicKey, mainnet bool) (revshare.Holder, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", ErrInvalidHolder)
	}
	addr, err := script.NewAddressFromPublicKey(pub, mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHolder, err)
	}
	return revshare.Holder(addr.AddressString), nil
}
