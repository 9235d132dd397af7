package forge

import (
	"math/big"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

// RequestKind distinguishes pending request variants.
type RequestKind uint8

const (
	KindMint RequestKind = iota + 1
	KindFusion
)

func (k RequestKind) String() string {
	switch k {
	case KindMint:
		return "mint"
	case KindFusion:
		return "fusion"
	default:
		return "unknown"
	}
}

// Request is a submitted action waiting for its random value. The only
// implementations are MintRequest and FusionRequest.
type Request interface {
	Kind() RequestKind
	Requester() revshare.Holder
	isRequest()
}

// MintRequest records an asset burn awaiting its tier roll.
type MintRequest struct {
	Holder   revshare.Holder
	Category uint32
	Burned   *big.Int
}

func (MintRequest) Kind() RequestKind            { return KindMint }
func (r MintRequest) Requester() revshare.Holder { return r.Holder }
func (MintRequest) isRequest()                   {}

// FusionRequest records three destroyed instances awaiting the upgrade roll.
type FusionRequest struct {
	Holder         revshare.Holder
	Source         collectible.Identity
	ConsumedShares *big.Int
}

func (FusionRequest) Kind() RequestKind            { return KindFusion }
func (r FusionRequest) Requester() revshare.Holder { return r.Holder }
func (FusionRequest) isRequest()                   {}

// Pending pairs a request with its handle.
type Pending struct {
	Handle  vrf.Handle
	Request Request
}

func cloneRequest(r Request) Request {
	switch v := r.(type) {
	case MintRequest:
		v.Burned = copyOrZero(v.Burned)
		return v
	case FusionRequest:
		v.ConsumedShares = copyOrZero(v.ConsumedShares)
		return v
	default:
		return r
	}
}
