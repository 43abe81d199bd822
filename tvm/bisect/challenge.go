package bisect

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrChallengeDone    = errors.New("challenge has converged")
	ErrChallengeStarted = errors.New("challenge rounds already started")
	ErrDisclosureCount  = errors.New("wrong number of disclosed digests")
	ErrNotOpened        = errors.New("challenge not opened")
)

// Challenge is the verifier side of one dispute. It holds the verifier's own
// tree and compares each round of disclosed digests against its replay.
//
// The parties agree on the commitment at the left edge of the current range and
// disagree on the right edge. Once the range is a single line [L, L+1), the
// dispute is instruction L+1, checked against the commitments at L and L+1.
// Instruction zero has no such range, so Open must settle the commitment at
// line zero before the first round.
type Challenge struct {
	b         *Bisector
	committer Committer

	path      []uint64
	current   Range
	disclosed map[uint64]common.Hash

	opened   bool
	done     bool
	disputed uint64
}

func NewChallenge(b *Bisector, c Committer) *Challenge {
	ch := &Challenge{
		b:         b,
		committer: c,
		current:   Range{0, b.Total()},
		disclosed: make(map[uint64]common.Hash),
	}
	ch.checkConverged()
	return ch
}

// Open compares the prover's commitment after line zero with the verifier's.
// If they differ, instruction zero is the disputed line and no rounds are
// played. It reports whether the commitments agree.
func (c *Challenge) Open(initial common.Hash) (bool, error) {
	if _, ok := c.disclosed[0]; ok || len(c.path) > 0 {
		return false, ErrChallengeStarted
	}
	own, err := c.b.Digest(0, c.committer)
	if err != nil {
		return false, err
	}
	c.disclosed[0] = initial
	c.opened = true
	if own != initial {
		log.Info("Initial commitment disputed", "prover", initial, "verifier", own)
		c.done = true
		c.disputed = 0
		return false, nil
	}
	return true, nil
}

// Lines are the probe lines the prover must disclose for the current round.
func (c *Challenge) Lines() ([]uint64, error) {
	if c.done {
		return nil, ErrChallengeDone
	}
	return c.b.LinesForSelectionPath(c.path)
}

// Narrow consumes the prover's digests at Lines and picks the next sub-range:
// the one ending at the first boundary the verifier disagrees with, or the last
// one if every boundary agrees. It returns the selection made. The challenge
// must have been opened.
func (c *Challenge) Narrow(disclosed []common.Hash) (uint64, error) {
	lines, err := c.Lines()
	if err != nil {
		return 0, err
	}
	if !c.opened {
		return 0, ErrNotOpened
	}
	if len(disclosed) != len(lines) {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrDisclosureCount, len(disclosed), len(lines))
	}
	sel := uint64(len(lines))
	for i, line := range lines {
		own, err := c.b.Digest(line, c.committer)
		if err != nil {
			return 0, err
		}
		c.disclosed[line] = disclosed[i]
		if own != disclosed[i] {
			sel = uint64(i)
			break
		}
	}
	c.path = append(c.path, sel)
	if c.current, err = c.b.RangeForSelectionPath(c.path); err != nil {
		return 0, err
	}
	log.Debug("Narrowed challenge", "round", len(c.path), "selection", sel, "range", c.current)
	c.checkConverged()
	return sel, nil
}

func (c *Challenge) checkConverged() {
	if c.current.Width() == 1 {
		c.done = true
		c.disputed = c.current.Right
		log.Info("Challenge converged", "path", c.path, "line", c.disputed)
	}
}

func (c *Challenge) Done() bool { return c.done }

func (c *Challenge) Path() []uint64 { return append([]uint64(nil), c.path...) }

func (c *Challenge) Range() Range { return c.current }

// Disclosed returns the digest the prover gave for line, if any.
func (c *Challenge) Disclosed(line uint64) (common.Hash, bool) {
	h, ok := c.disclosed[line]
	return h, ok
}

// DisputedLine is the instruction left in dispute once the challenge is done.
func (c *Challenge) DisputedLine() (uint64, bool) {
	return c.disputed, c.done
}
