// Package storage persists chain state to an embedded LevelDB database
// across three namespaces: blocks, accounts, and metadata. Persistence is
// optional — a nil *Store means memory-only operation.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	nsBlocks   = "blocks/"
	nsAccounts = "accounts/"
	nsMetadata = "metadata/"

	latestSlotKey = nsMetadata + "latest_slot"
)

// Store wraps a LevelDB handle with the three namespaces the node needs.
type Store struct {
	db *leveldb.DB
}

// Open creates or opens a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// accountRecord is the JSON value stored per account.
type accountRecord struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func blockKey(slot uint64) []byte {
	key := make([]byte, len(nsBlocks)+8)
	copy(key, nsBlocks)
	binary.BigEndian.PutUint64(key[len(nsBlocks):], slot)
	return key
}

func accountKey(address string) []byte {
	return []byte(nsAccounts + address)
}

// PutBlock persists a block under its slot key. blockJSON must already be
// the canonical JSON encoding of the block to avoid importing the chain
// package here (storage has no business knowing chain.Block's shape beyond
// "it is some JSON document keyed by slot").
func (s *Store) PutBlock(slot uint64, blockJSON []byte) error {
	return s.db.Put(blockKey(slot), blockJSON, nil)
}

// GetBlock retrieves the raw JSON for a block by slot, or (nil, false) if
// absent.
func (s *Store) GetBlock(slot uint64) ([]byte, bool, error) {
	data, err := s.db.Get(blockKey(slot), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// PutAccount persists an account's balance.
func (s *Store) PutAccount(address string, balance uint64) error {
	rec := accountRecord{Address: address, Balance: balance}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal account %s: %w", address, err)
	}
	return s.db.Put(accountKey(address), data, nil)
}

// GetAccount retrieves an account's balance; unknown addresses return 0.
func (s *Store) GetAccount(address string) (uint64, error) {
	data, err := s.db.Get(accountKey(address), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("unmarshal account %s: %w", address, err)
	}
	return rec.Balance, nil
}

// LoadAllAccounts iterates the accounts namespace into a map.
func (s *Store) LoadAllAccounts() (map[string]uint64, error) {
	out := make(map[string]uint64)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(nsAccounts)), nil)
	defer iter.Release()
	for iter.Next() {
		var rec accountRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal account record: %w", err)
		}
		out[rec.Address] = rec.Balance
	}
	return out, iter.Error()
}

// PutLatestSlot records the highest committed slot.
func (s *Store) PutLatestSlot(slot uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, slot)
	return s.db.Put([]byte(latestSlotKey), buf, nil)
}

// GetLatestSlot retrieves the highest committed slot, or 0 if never set.
func (s *Store) GetLatestSlot() (uint64, error) {
	data, err := s.db.Get([]byte(latestSlotKey), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt latest_slot record: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
