package vrf

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/crypto/sha3"
)

// LocalProvider is a signature-based Provider holding its own key.
// Handles stay outstanding until revealed; each is revealed at most once.
type LocalProvider struct {
	mu          deadlock.Mutex
	key         *ec.PrivateKey
	nonce       uint64
	outstanding map[Handle]RequestConfig
}

// Compile-time interface check.
var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider signing with key.
func NewLocalProvider(key *ec.PrivateKey) *LocalProvider {
	return &LocalProvider{
		key:         key,
		outstanding: make(map[Handle]RequestConfig),
	}
}

// NewLocalProviderFromHex creates a provider from a hex-encoded private key.
func NewLocalProviderFromHex(keyHex string) (*LocalProvider, error) {
	b, err := hex.DecodeString(keyHex)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32-byte hex key", ErrInvalidKey)
	}
	priv, _ := ec.PrivateKeyFromBytes(b)
	return NewLocalProvider(priv), nil
}

// PublicKey returns the verification key.
func (p *LocalProvider) PublicKey() *ec.PublicKey { return p.key.PubKey() }

// RequestRandom issues a fresh handle for cfg.
func (p *LocalProvider) RequestRandom(_ context.Context, cfg RequestConfig) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nonce++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], p.nonce)

	var buf bytes.Buffer
	buf.Write(p.key.PubKey().Compressed())
	buf.WriteString(cfg.Requester)
	buf.Write(nonce[:])

	var h Handle
	copy(h[:], bsvhash.Sha256d(buf.Bytes()))
	p.outstanding[h] = cfg
	return h, nil
}

// Reveal produces the value for an outstanding handle and retires it.
func (p *LocalProvider) Reveal(h Handle) (*Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.outstanding[h]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	sig, err := p.key.Sign(h[:])
	if err != nil {
		return nil, fmt.Errorf("vrf: sign handle: %w", err)
	}
	delete(p.outstanding, h)

	proof := sig.Serialize()
	return &Output{Handle: h, Value: valueFromProof(proof), Proof: proof}, nil
}

// Retire forgets an outstanding handle without revealing it, for requests
// resolved with a value from elsewhere. It reports whether h was outstanding.
func (p *LocalProvider) Retire(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.outstanding[h]
	delete(p.outstanding, h)
	return ok
}

// Outstanding returns the handles issued but not yet revealed, sorted.
func (p *LocalProvider) Outstanding() []Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Handle, 0, len(p.outstanding))
	for h := range p.outstanding {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// Verify checks that out was produced by the holder of pub.
func Verify(pub *ec.PublicKey, out *Output) error {
	if out == nil || out.Value == nil {
		return fmt.Errorf("%w: empty output", ErrInvalidProof)
	}
	sig, err := ec.ParseDERSignature(out.Proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	if !sig.Verify(out.Handle[:], pub) {
		return fmt.Errorf("%w: signature does not match handle", ErrInvalidProof)
	}
	if valueFromProof(out.Proof).Cmp(out.Value) != 0 {
		return fmt.Errorf("%w: value does not match proof", ErrInvalidProof)
	}
	return nil
}

func valueFromProof(proof []byte) *big.Int {
	k := sha3.NewLegacyKeccak256()
	k.Write(proof)
	return new(big.Int).SetBytes(k.Sum(nil))
}

// Snapshot is the persisted form of a LocalProvider, minus its key.
type Snapshot struct {
	Nonce       uint64
	Outstanding map[Handle]RequestConfig
}

// Snapshot copies the provider state.
func (p *LocalProvider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{Nonce: p.nonce, Outstanding: make(map[Handle]RequestConfig, len(p.outstanding))}
	for h, c := range p.outstanding {
		s.Outstanding[h] = c
	}
	return s
}

// Restore replaces the provider state with s.
func (p *LocalProvider) Restore(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonce = s.Nonce
	p.outstanding = make(map[Handle]RequestConfig, len(s.Outstanding))
	for h, c := range s.Outstanding {
		p.outstanding[h] = c
	}
}
