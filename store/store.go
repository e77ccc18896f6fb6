// Package store persists lock records and the locked supply in a go-ethereum
// key-value database (LevelDB on disk, or the in-memory database in tests).
//
// Layout:
//
//	'l' ++ address(20)  ->  RLP([amount, bigendian(end)])
//	"supply"            ->  RLP(amount)
//
// Keys under the 'l' prefix whose length is not that of a record belong to
// whoever else shares the keyspace and are skipped.
//
// A record and the supply it contributes to are always written in one batch,
// so a crash can never leave the supply out of step with the records.
package store

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-veledger/inter"
)

var (
	lockPrefix = []byte("l")
	supplyKey  = []byte("supply")
)

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("store: corrupt record")

// lockRLP is the on-disk form of a LockedBalance.
type lockRLP struct {
	Amount *big.Int
	End    []byte
}

// Store implements ledger.Store on top of an ethdb.KeyValueStore.
type Store struct {
	db ethdb.KeyValueStore
}

// New wraps db. The store does not own db and never closes it.
func New(db ethdb.KeyValueStore) *Store {
	return &Store{db: db}
}

// Load reads every record and the persisted supply.
// A database without a supply key is treated as empty.
func (s *Store) Load() (map[common.Address]inter.LockedBalance, *big.Int, error) {
	locks := make(map[common.Address]inter.LockedBalance)

	it := s.db.NewIterator(lockPrefix, nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != len(lockPrefix)+common.AddressLength {
			continue
		}
		lock, err := decodeLock(it.Value())
		if err != nil {
			return nil, nil, fmt.Errorf("%w: account %x: %v", ErrCorrupt, key[len(lockPrefix):], err)
		}
		locks[common.BytesToAddress(key[len(lockPrefix):])] = lock
	}
	if err := it.Error(); err != nil {
		return nil, nil, err
	}

	supply := new(big.Int)
	ok, err := s.db.Has(supplyKey)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		raw, err := s.db.Get(supplyKey)
		if err != nil {
			return nil, nil, err
		}
		if err := rlp.DecodeBytes(raw, supply); err != nil {
			return nil, nil, fmt.Errorf("%w: supply: %v", ErrCorrupt, err)
		}
	}
	return locks, supply, nil
}

// Get returns the stored record for account, or the zero record.
func (s *Store) Get(account common.Address) (inter.LockedBalance, error) {
	ok, err := s.db.Has(lockKey(account))
	if err != nil || !ok {
		return inter.ZeroBalance(), err
	}
	raw, err := s.db.Get(lockKey(account))
	if err != nil {
		return inter.ZeroBalance(), err
	}
	return decodeLock(raw)
}

// Commit writes the record and the supply in a single batch.
// Zeroed records are deleted rather than stored.
func (s *Store) Commit(account common.Address, lock inter.LockedBalance, supply *big.Int) error {
	if supply == nil || supply.Sign() < 0 {
		return fmt.Errorf("store: invalid supply %v", supply)
	}
	batch := s.db.NewBatch()

	if lock.Empty() {
		if err := batch.Delete(lockKey(account)); err != nil {
			return err
		}
	} else {
		raw, err := encodeLock(lock)
		if err != nil {
			return err
		}
		if err := batch.Put(lockKey(account), raw); err != nil {
			return err
		}
	}

	raw, err := rlp.EncodeToBytes(supply)
	if err != nil {
		return err
	}
	if err := batch.Put(supplyKey, raw); err != nil {
		return err
	}
	return batch.Write()
}

func lockKey(account common.Address) []byte {
	return append(append(make([]byte, 0, len(lockPrefix)+common.AddressLength), lockPrefix...), account.Bytes()...)
}

func encodeLock(lock inter.LockedBalance) ([]byte, error) {
	return rlp.EncodeToBytes(lockRLP{
		Amount: lock.Amount,
		End:    bigendian.Uint64ToBytes(uint64(lock.End)),
	})
}

func decodeLock(raw []byte) (inter.LockedBalance, error) {
	var enc lockRLP
	if err := rlp.DecodeBytes(raw, &enc); err != nil {
		return inter.LockedBalance{}, err
	}
	if len(enc.End) != 8 {
		return inter.LockedBalance{}, fmt.Errorf("end has %d bytes", len(enc.End))
	}
	if enc.Amount == nil {
		enc.Amount = new(big.Int)
	}
	return inter.LockedBalance{
		Amount: enc.Amount,
		End:    inter.Timestamp(bigendian.BytesToUint64(enc.End)),
	}, nil
}
