// Package store persists computed state commitments so that a long running
// party does not replay the trace to recompute them.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/bitsnark/tracevm/tvm/vm"
)

var commitmentPrefix = []byte("tvm-sc-")

const (
	cacheMB     = 16
	fileHandles = 16
	namespace   = "tvm/store/"
)

var errBadKey = errors.New("iterated key has the wrong shape")

type Store struct {
	db ethdb.KeyValueStore
}

func New(db ethdb.KeyValueStore) *Store {
	return &Store{db: db}
}

// Open opens or creates a leveldb backed store in dir.
func Open(dir string, readonly bool) (*Store, error) {
	db, err := rawdb.NewLevelDBDatabase(dir, cacheMB, fileHandles, namespace, readonly)
	if err != nil {
		return nil, fmt.Errorf("open commitment store %s: %w", dir, err)
	}
	log.Debug("Opened commitment store", "dir", dir, "readonly", readonly)
	return New(db), nil
}

func NewMemory() *Store {
	return New(rawdb.NewMemoryDatabase())
}

func (s *Store) Close() error {
	return s.db.Close()
}

func programKey(program common.Hash) []byte {
	key := make([]byte, 0, len(commitmentPrefix)+common.HashLength)
	key = append(key, commitmentPrefix...)
	return append(key, program[:]...)
}

// Encodes the line big endian so that iteration is in line order
func commitmentKey(program common.Hash, line uint64) []byte {
	key := programKey(program)
	return binary.BigEndian.AppendUint64(key, line)
}

type storedRegister struct {
	Index uint32
	Value [32]byte
}

func (s *Store) ReadCommitment(program common.Hash, line uint64) ([]vm.LiveRegister, bool, error) {
	key := commitmentKey(program, line)
	has, err := s.db.Has(key)
	if err != nil || !has {
		return nil, false, err
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	var stored []storedRegister
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("decode commitment %s@%d: %w", program, line, err)
	}
	live := make([]vm.LiveRegister, len(stored))
	for i, r := range stored {
		live[i].Index = vm.Reg(r.Index)
		live[i].Value.SetBytes32(r.Value[:])
	}
	return live, true, nil
}

func (s *Store) WriteCommitment(program common.Hash, line uint64, live []vm.LiveRegister) error {
	stored := make([]storedRegister, len(live))
	for i := range live {
		stored[i] = storedRegister{Index: uint32(live[i].Index), Value: live[i].Value.Bytes32()}
	}
	data, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return s.db.Put(commitmentKey(program, line), data)
}

// Lines lists the lines with a stored commitment for program, ascending.
func (s *Store) Lines(program common.Hash) ([]uint64, error) {
	prefix := programKey(program)
	iter := s.db.NewIterator(prefix, nil)
	defer iter.Release()
	var lines []uint64
	for iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) || len(key) != len(prefix)+8 {
			return nil, errBadKey
		}
		lines = append(lines, binary.BigEndian.Uint64(key[len(prefix):]))
	}
	return lines, iter.Error()
}

// DeleteProgram drops every commitment stored for program.
func (s *Store) DeleteProgram(program common.Hash) error {
	iter := s.db.NewIterator(programKey(program), nil)
	defer iter.Release()
	batch := s.db.NewBatch()
	for iter.Next() {
		if err := batch.Delete(common.CopyBytes(iter.Key())); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return batch.Write()
}
