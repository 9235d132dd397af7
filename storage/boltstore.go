package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/revshare"
	"github.com/bitfsorg/relicpool-go/vrf"
)

var (
	bucketEngine   = []byte("engine")
	bucketAccounts = []byte("accounts")
	bucketLedgers  = []byte("ledgers")

	keyMeta   = []byte("meta")
	keyState  = []byte("state")
	keyItems  = []byte("collectibles")
	keyAsset  = []byte("asset")
	keyNative = []byte("native")
	keyRandom = []byte("randomness")
)

// engineMeta is the part of forge.Snapshot not covered by the revshare codecs.
type engineMeta struct {
	Params   forge.Params
	Balance  *big.Int
	Received *big.Int
	Latest   map[collectible.Identity]*big.Int
	Tracked  []forge.TrackedShares
	Pending  map[vrf.Handle]forge.Request
}

// BoltStore persists a World in a bbolt database. The accumulator state and
// each holder account are stored with the fixed-width revshare codecs, one
// account per key; everything else is gob-encoded.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEngine, bucketAccounts, bucketLedgers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Save replaces the stored world in one transaction.
func (s *BoltStore) Save(w *World) error {
	if w == nil {
		return ErrNilParam
	}
	meta, err := encodeGob(newEngineMeta(w.Engine))
	if err != nil {
		return fmt.Errorf("encode engine: %w", err)
	}
	state, err := revshare.SerializeState(w.Engine.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	ledgers := map[string]interface{}{
		string(keyItems):  w.Items,
		string(keyAsset):  w.Asset,
		string(keyNative): w.Native,
		string(keyRandom): w.Random,
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		eb := tx.Bucket(bucketEngine)
		if err := eb.Put(keyMeta, meta); err != nil {
			return fmt.Errorf("boltstore: put engine: %w", err)
		}
		if err := eb.Put(keyState, state); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}

		if err := tx.DeleteBucket(bucketAccounts); err != nil {
			return fmt.Errorf("boltstore: reset accounts: %w", err)
		}
		ab, err := tx.CreateBucket(bucketAccounts)
		if err != nil {
			return fmt.Errorf("boltstore: create accounts: %w", err)
		}
		for h, a := range w.Engine.Accounts {
			data, err := revshare.SerializeAccount(a)
			if err != nil {
				return fmt.Errorf("encode account %s: %w", h, err)
			}
			if err := ab.Put([]byte(h), data); err != nil {
				return fmt.Errorf("boltstore: put account: %w", err)
			}
		}

		lb := tx.Bucket(bucketLedgers)
		for k, v := range ledgers {
			data, err := encodeGob(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", k, err)
			}
			if err := lb.Put([]byte(k), data); err != nil {
				return fmt.Errorf("boltstore: put %s: %w", k, err)
			}
		}
		return nil
	})
}

// Load reads the stored world. It returns ErrNotFound before the first Save.
func (s *BoltStore) Load() (*World, error) {
	var w World
	err := s.db.View(func(tx *bbolt.Tx) error {
		eb := tx.Bucket(bucketEngine)
		metaData := eb.Get(keyMeta)
		if metaData == nil {
			return ErrNotFound
		}
		var meta engineMeta
		if err := decodeGob(metaData, &meta); err != nil {
			return err
		}
		state, err := revshare.DeserializeState(eb.Get(keyState))
		if err != nil {
			return fmt.Errorf("%w: state: %w", ErrCorrupt, err)
		}
		w.Engine = meta.snapshot(state)

		w.Engine.Accounts = make(map[revshare.Holder]revshare.HolderAccount)
		err = tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			a, err := revshare.DeserializeAccount(v)
			if err != nil {
				return fmt.Errorf("%w: account %s: %w", ErrCorrupt, k, err)
			}
			w.Engine.Accounts[revshare.Holder(k)] = a
			return nil
		})
		if err != nil {
			return err
		}

		lb := tx.Bucket(bucketLedgers)
		for _, item := range []struct {
			key []byte
			dst interface{}
		}{
			{keyItems, &w.Items},
			{keyAsset, &w.Asset},
			{keyNative, &w.Native},
			{keyRandom, &w.Random},
		} {
			data := lb.Get(item.key)
			if data == nil {
				continue
			}
			if err := decodeGob(data, item.dst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func newEngineMeta(s forge.Snapshot) engineMeta {
	return engineMeta{
		Params:   s.Params,
		Balance:  s.Balance,
		Received: s.Received,
		Latest:   s.Latest,
		Tracked:  s.Tracked,
		Pending:  s.Pending,
	}
}

// snapshot reassembles a forge.Snapshot. Zero amounts come back from gob as
// nil; forge.Restore reads those as zero.
func (m engineMeta) snapshot(state revshare.GlobalState) forge.Snapshot {
	s := forge.Snapshot{
		Params:   m.Params,
		State:    state,
		Balance:  m.Balance,
		Received: m.Received,
		Latest:   m.Latest,
		Tracked:  m.Tracked,
		Pending:  m.Pending,
	}
	if s.Latest == nil {
		s.Latest = make(map[collectible.Identity]*big.Int)
	}
	if s.Pending == nil {
		s.Pending = make(map[vrf.Handle]forge.Request)
	}
	return s
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}
