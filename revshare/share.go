package revshare

import (
	"encoding/binary"
	"fmt"
)

const accountSize = 3*wordSize + 8 // shares(32) + last_rps(32) + pending(32) + cooldown(8)

// SerializeAccount encodes a HolderAccount to its fixed 104-byte form.
func SerializeAccount(a HolderAccount) ([]byte, error) {
	buf := make([]byte, accountSize)
	if err := putWord(buf[0:32], a.Shares); err != nil {
		return nil, err
	}
	if err := putWord(buf[32:64], a.LastRevenuePerShare); err != nil {
		return nil, err
	}
	if err := putWord(buf[64:96], a.PendingPayout); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint64(buf[96:104], uint64(a.CooldownUntil))
	return buf, nil
}

// DeserializeAccount decodes a HolderAccount.
func DeserializeAccount(data []byte) (HolderAccount, error) {
	if len(data) != accountSize {
		return HolderAccount{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAccountData, accountSize, len(data))
	}
	return HolderAccount{
		Shares:              word(data[0:32]),
		LastRevenuePerShare: word(data[32:64]),
		PendingPayout:       word(data[64:96]),
		CooldownUntil:       int64(binary.BigEndian.Uint64(data[96:104])),
	}, nil
}
