package merkle

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"lukechampine.com/blake3"
)

var ErrUnknownHasher = errors.New("unknown hasher")

// Hasher combines two tree nodes into their parent.
type Hasher interface {
	HashPair(left, right common.Hash) common.Hash
	Name() string
}

type keccakHasher struct{}

func (keccakHasher) HashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

func (keccakHasher) Name() string { return "keccak" }

type blake3Hasher struct{}

func (blake3Hasher) HashPair(left, right common.Hash) common.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return blake3.Sum256(buf[:])
}

func (blake3Hasher) Name() string { return "blake3" }

var (
	// Keccak is the default, matching on-chain verification on EVM chains.
	Keccak Hasher = keccakHasher{}
	// Blake3 matches the hash the Bitcoin script side verifies.
	Blake3 Hasher = blake3Hasher{}
)

// HasherByName resolves a hasher from a flag value.
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", Keccak.Name():
		return Keccak, nil
	case Blake3.Name():
		return Blake3, nil
	default:
		return nil, errors.Wrapf(ErrUnknownHasher, "%q", name)
	}
}
