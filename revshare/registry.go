package revshare

import (
	"fmt"
	"math/big"
)

const (
	wordSize  = 32           // uint256, big-endian
	stateSize = 4 * wordSize // total(32) + rps(32) + distributed(32) + claimed(32)
)

// SerializeState encodes a GlobalState to its fixed 128-byte form.
func SerializeState(state GlobalState) ([]byte, error) {
	buf := make([]byte, stateSize)
	fields := []*big.Int{state.TotalShares, state.RevenuePerShare, state.DistributedTotal, state.ClaimedTotal}
	for i, v := range fields {
		if err := putWord(buf[i*wordSize:(i+1)*wordSize], v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DeserializeState decodes a GlobalState.
func DeserializeState(data []byte) (GlobalState, error) {
	if len(data) != stateSize {
		return GlobalState{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidStateData, stateSize, len(data))
	}
	return GlobalState{
		TotalShares:      word(data[0:32]),
		RevenuePerShare:  word(data[32:64]),
		DistributedTotal: word(data[64:96]),
		ClaimedTotal:     word(data[96:128]),
	}, nil
}

func putWord(dst []byte, v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeValue, v)
	}
	if v.BitLen() > 8*wordSize {
		return fmt.Errorf("%w: %s", ErrValueTooLarge, v)
	}
	v.FillBytes(dst)
	return nil
}

func word(src []byte) *big.Int {
	return new(big.Int).SetBytes(src)
}
