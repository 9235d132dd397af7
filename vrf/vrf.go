// Package vrf is the randomness provider side of the two-phase mint/fusion
// protocol: RequestRandom issues an opaque handle now, and the random value
// for that handle is delivered later, exactly once.
//
// LocalProvider derives each value from a deterministic secp256k1 signature
// over the handle:
//
//	handle = SHA256d(P || requester || nonce)
//	proof  = Sign(d, handle)            (RFC 6979, so unique per handle)
//	value  = keccak256(DER(proof))
//
// Anyone holding P can check a delivered value with Verify.
package vrf

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
)

// HandleSize is the byte length of a request handle.
const HandleSize = 32

// Handle is an opaque request identifier issued by a Provider.
type Handle [HandleSize]byte

func (h Handle) String() string { return hex.EncodeToString(h[:]) }

// ParseHandle decodes a hex handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %w", ErrInvalidHandle, err)
	}
	if len(b) != HandleSize {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHandle, HandleSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// RequestConfig describes one randomness request.
type RequestConfig struct {
	Requester string // account the value is for
	Purpose   string // free-form tag, e.g. "mint" or "fusion"
}

// Provider issues request handles. Delivery of the value happens out of band
// through the consumer's fulfillment entry point.
type Provider interface {
	RequestRandom(ctx context.Context, cfg RequestConfig) (Handle, error)
}

// Output is a delivered random value and its proof.
type Output struct {
	Handle Handle
	Value  *big.Int
	Proof  []byte // DER signature over the handle
}
