package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemToken_TransferToSink(t *testing.T) {
	ctx := context.Background()
	m := NewMemToken()
	require.NoError(t, m.Credit("alice", big.NewInt(100)))

	require.NoError(t, m.TransferToSink(ctx, "alice", big.NewInt(40)))
	assert.Equal(t, big.NewInt(60), m.BalanceOf("alice"))
	assert.Equal(t, big.NewInt(40), m.Sunk())

	// Insufficient balance leaves everything untouched.
	err := m.TransferToSink(ctx, "alice", big.NewInt(61))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(60), m.BalanceOf("alice"))
	assert.Equal(t, big.NewInt(40), m.Sunk())

	assert.ErrorIs(t, m.TransferToSink(ctx, "bob", big.NewInt(1)), ErrInsufficientBalance)
	assert.ErrorIs(t, m.TransferToSink(ctx, "alice", big.NewInt(0)), ErrInvalidAmount)
}

func TestMemToken_Credit(t *testing.T) {
	m := NewMemToken()
	assert.ErrorIs(t, m.Credit("", big.NewInt(1)), ErrEmptyHolder)
	assert.ErrorIs(t, m.Credit("a", big.NewInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, m.Credit("a", nil), ErrInvalidAmount)

	require.NoError(t, m.Pay(context.Background(), "a", big.NewInt(5)))
	assert.Equal(t, big.NewInt(5), m.BalanceOf("a"))
	assert.Zero(t, m.BalanceOf("b").Sign())
}

func TestMemToken_SnapshotRoundTrip(t *testing.T) {
	m := NewMemToken()
	require.NoError(t, m.Credit("b", big.NewInt(7)))
	require.NoError(t, m.Credit("a", big.NewInt(9)))
	require.NoError(t, m.TransferToSink(context.Background(), "a", big.NewInt(4)))

	restored := RestoreMemToken(m.Snapshot())
	assert.Equal(t, []string{"a", "b"}, restored.Holders())
	assert.Equal(t, big.NewInt(5), restored.BalanceOf("a"))
	assert.Equal(t, big.NewInt(7), restored.BalanceOf("b"))
	assert.Equal(t, big.NewInt(4), restored.Sunk())
}
