// Package token models the fungible balances the engine touches: the asset
// holders burn to mint, and the native currency paid out on claims.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/sasha-s/go-deadlock"
)

var (
	// ErrInsufficientBalance indicates the holder cannot cover the amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("token: amount must be positive")

	// ErrEmptyHolder indicates an operation without a holder.
	ErrEmptyHolder = errors.New("token: empty holder")
)

// Sink moves a holder's asset to an irrecoverable sink.
type Sink interface {
	// TransferToSink burns amount from holder. It fails without side effects
	// when the holder's balance is insufficient.
	TransferToSink(ctx context.Context, holder string, amount *big.Int) error
}

// MemToken is an in-memory fungible balance sheet.
type MemToken struct {
	mu       deadlock.RWMutex
	balances map[string]*big.Int
	sunk     *big.Int
}

// Compile-time interface check.
var _ Sink = (*MemToken)(nil)

// NewMemToken creates an empty token.
func NewMemToken() *MemToken {
	return &MemToken{
		balances: make(map[string]*big.Int),
		sunk:     new(big.Int),
	}
}

// Credit adds amount to holder's balance.
func (m *MemToken) Credit(holder string, amount *big.Int) error {
	if holder == "" {
		return ErrEmptyHolder
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[holder]
	if !ok {
		bal = new(big.Int)
		m.balances[holder] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Pay credits amount to the recipient. It is the outbound leg of claims.
func (m *MemToken) Pay(_ context.Context, to string, amount *big.Int) error {
	return m.Credit(to, amount)
}

// TransferToSink burns amount from holder.
func (m *MemToken) TransferToSink(_ context.Context, holder string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balances[holder]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, holder, balanceString(bal), amount)
	}
	bal.Sub(bal, amount)
	m.sunk.Add(m.sunk, amount)
	return nil
}

// BalanceOf returns holder's balance.
func (m *MemToken) BalanceOf(holder string) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if bal, ok := m.balances[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Sunk returns the total amount ever sent to the sink.
func (m *MemToken) Sunk() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.sunk)
}

// Snapshot is the persisted form of a MemToken.
type Snapshot struct {
	Balances map[string]*big.Int
	Sunk     *big.Int
}

// Snapshot copies the token state.
func (m *MemToken) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Snapshot{Balances: make(map[string]*big.Int, len(m.balances)), Sunk: new(big.Int).Set(m.sunk)}
	for h, b := range m.balances {
		out.Balances[h] = new(big.Int).Set(b)
	}
	return out
}

// Holders returns every holder with a recorded balance, sorted.
func (m *MemToken) Holders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.balances))
	for h := range m.balances {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// RestoreMemToken rebuilds a token from a snapshot.
func RestoreMemToken(s Snapshot) *MemToken {
	m := NewMemToken()
	for h, b := range s.Balances {
		if b != nil {
			m.balances[h] = new(big.Int).Set(b)
		}
	}
	if s.Sunk != nil {
		m.sunk.Set(s.Sunk)
	}
	return m
}

func balanceString(b *big.Int) string {
	if b == nil {
		return "0"
	}
	return b.String()
}
