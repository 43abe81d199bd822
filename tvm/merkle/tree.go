package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	ErrInvalidLeaves  = errors.New("invalid number of leaves for merkle tree")
	ErrMalformedProof = errors.New("malformed merkle proof")
)

// Leaf is the big-endian 32 byte encoding of a word. Leaves are not rehashed.
func Leaf(v *uint256.Int) common.Hash {
	return v.Bytes32()
}

func Leaves(values []uint256.Int) []common.Hash {
	out := make([]common.Hash, len(values))
	for i := range values {
		out[i] = Leaf(&values[i])
	}
	return out
}

// Layers builds every level of the tree, leaves first and the root last. An odd
// node at the end of a level is paired with the zero hash.
func Layers(h Hasher, leaves []common.Hash) ([][]common.Hash, error) {
	if len(leaves) == 0 {
		return nil, ErrInvalidLeaves
	}
	layers := [][]common.Hash{leaves}
	prev := leaves
	for len(prev) > 1 {
		next := make([]common.Hash, (len(prev)+1)/2)
		for i := range next {
			right := common.Hash{}
			if 2*i+1 < len(prev) {
				right = prev[2*i+1]
			}
			next[i] = h.HashPair(prev[2*i], right)
		}
		layers = append(layers, next)
		prev = next
	}
	return layers, nil
}

func Root(h Hasher, leaves []common.Hash) (common.Hash, error) {
	layers, err := Layers(h, leaves)
	if err != nil {
		return common.Hash{}, err
	}
	return layers[len(layers)-1][0], nil
}

// Committer digests a commitment's values as the root of a tree over them.
type Committer struct {
	Hasher Hasher
}

func NewCommitter(h Hasher) Committer {
	return Committer{Hasher: h}
}

func (c Committer) Commit(values []uint256.Int) common.Hash {
	if len(values) == 0 {
		return common.Hash{}
	}
	root, _ := Root(c.Hasher, Leaves(values))
	return root
}
