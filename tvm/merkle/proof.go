package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Proof is a "fat" inclusion proof: for every level it carries both children
// of the node on the path, ordered left then right, and it ends with the root.
// A checker that only hashes adjacent pairs can verify it and a verifier can
// point at the exact pair that does not hash to its parent.
type Proof struct {
	Index  uint64        `json:"index"`
	Hashes []common.Hash `json:"hashes"`
}

// Prove builds the fat proof for leaves[index].
func Prove(h Hasher, leaves []common.Hash, index uint64) (*Proof, error) {
	if index >= uint64(len(leaves)) {
		return nil, errors.Wrapf(ErrInvalidLeaves, "index %d of %d leaves", index, len(leaves))
	}
	layers, err := Layers(h, leaves)
	if err != nil {
		return nil, err
	}
	p := &Proof{Index: index}
	idx := index
	for _, layer := range layers[:len(layers)-1] {
		left := idx &^ 1
		right := common.Hash{}
		if left+1 < uint64(len(layer)) {
			right = layer[left+1]
		}
		p.Hashes = append(p.Hashes, layer[left], right)
		idx >>= 1
	}
	p.Hashes = append(p.Hashes, layers[len(layers)-1][0])
	return p, nil
}

// Levels is the number of hashed pairs in the proof.
func (p *Proof) Levels() int { return len(p.Hashes) / 2 }

func (p *Proof) Root() common.Hash { return p.Hashes[len(p.Hashes)-1] }

// Leaf is the proven leaf, taken from the first pair.
func (p *Proof) Leaf() common.Hash { return p.Hashes[p.Index&1] }

func (p *Proof) checkShape() error {
	if len(p.Hashes)%2 == 0 {
		return errors.Wrapf(ErrMalformedProof, "%d hashes", len(p.Hashes))
	}
	if levels := p.Levels(); levels < 64 && p.Index>>uint(levels) != 0 {
		return errors.Wrapf(ErrMalformedProof, "index %d too large for %d levels", p.Index, levels)
	}
	return nil
}

// IndexToRefute returns the position in Hashes of the first pair that does not
// hash to the node above it, or -1 if every pair checks out.
func (p *Proof) IndexToRefute(h Hasher) (int, error) {
	if err := p.checkShape(); err != nil {
		return 0, err
	}
	idx := p.Index
	for level := 0; level < p.Levels(); level++ {
		i := 2 * level
		parent := h.HashPair(p.Hashes[i], p.Hashes[i+1])
		idx >>= 1
		at := i + 2
		if level+1 < p.Levels() {
			at += int(idx & 1)
		}
		if parent != p.Hashes[at] {
			return i, nil
		}
	}
	return -1, nil
}

// Verify checks the proof is well formed and internally consistent. Callers
// still compare Leaf and Root against what they expect.
func (p *Proof) Verify(h Hasher) bool {
	i, err := p.IndexToRefute(h)
	return err == nil && i < 0
}
