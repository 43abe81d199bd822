package bisect

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/bitsnark/tracevm/tvm/vm"
)

var (
	// ErrRegisterNotFound means the parties disagree on which registers a
	// commitment holds. It is a protocol bug, never retried.
	ErrRegisterNotFound  = errors.New("register not in state commitment")
	ErrCommitmentTooWide = errors.New("live register set exceeds commitment width")
)

// Committer digests the fixed width values of a state commitment.
type Committer interface {
	Commit(values []uint256.Int) common.Hash
}

// CommitmentStore caches computed live register sets, keyed by program hash
// and line.
type CommitmentStore interface {
	ReadCommitment(program common.Hash, line uint64) ([]vm.LiveRegister, bool, error)
	WriteCommitment(program common.Hash, line uint64, live []vm.LiveRegister) error
}

// StateCommitment is the padded snapshot of the live registers after a line has
// executed. The values are computed on first access and never change afterwards.
//
// Left and Right only record the range whose split created the commitment. The
// live set always spans the whole trace, writes in [0, Line] and reads in
// [Line, total], so the commitments on both sides of any line hold the operands
// and result of the instruction between them.
type StateCommitment struct {
	Left      uint64
	Right     uint64
	Line      uint64
	Iteration int
	Selection uint64

	b *Bisector

	mu        sync.Mutex
	loaded    bool
	live      []vm.LiveRegister
	values    []uint256.Int
	positions map[vm.Reg]int
}

func (sc *StateCommitment) load() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.loaded {
		return nil
	}
	live, err := sc.compute()
	if err != nil {
		return err
	}
	width := sc.b.cfg.Width
	if len(live) > width {
		return fmt.Errorf("%w: %d live registers at line %d, width %d", ErrCommitmentTooWide, len(live), sc.Line, width)
	}
	sc.live = live
	sc.values = make([]uint256.Int, width)
	sc.positions = make(map[vm.Reg]int, len(live))
	for i, r := range live {
		sc.values[i] = r.Value
		sc.positions[r.Index] = i
	}
	sc.loaded = true
	return nil
}

func (sc *StateCommitment) compute() ([]vm.LiveRegister, error) {
	b := sc.b
	if b.store != nil {
		live, ok, err := b.store.ReadCommitment(b.programHash, sc.Line)
		if err != nil {
			return nil, fmt.Errorf("read commitment at line %d: %w", sc.Line, err)
		}
		if ok {
			log.Debug("Loaded state commitment", "line", sc.Line, "live", len(live))
			return live, nil
		}
	}
	live, err := b.liveAt(sc.Line)
	if err != nil {
		return nil, err
	}
	log.Debug("Computed state commitment", "line", sc.Line, "live", len(live))
	if b.store != nil {
		if err := b.store.WriteCommitment(b.programHash, sc.Line, live); err != nil {
			return nil, fmt.Errorf("write commitment at line %d: %w", sc.Line, err)
		}
	}
	return live, nil
}

// liveAt is the live set after line for the padded trace. Lines [Len(), total]
// all run the terminal assertion, which reads the success register and, from
// Len() on, writes it. So the success register stays live from its first write
// to the end, on top of what the program's own instructions keep live.
func (b *Bisector) liveAt(line uint64) ([]vm.LiveRegister, error) {
	p := b.program
	indices, err := vm.LiveRegisterIndices(p, 0, line, b.total+1)
	if err != nil {
		return nil, err
	}
	success := p.SuccessIndex()
	if b.liveness.Written(success, line) {
		if i, found := slices.BinarySearch(indices, success); !found {
			indices = slices.Insert(indices, i, success)
		}
	}
	return vm.Snapshot(p, line, indices)
}

// Values returns the fixed width, zero padded value array.
func (sc *StateCommitment) Values() ([]uint256.Int, error) {
	if err := sc.load(); err != nil {
		return nil, err
	}
	return append([]uint256.Int(nil), sc.values...), nil
}

// LiveRegisters returns the registers behind the non-padding values, in order.
func (sc *StateCommitment) LiveRegisters() ([]vm.LiveRegister, error) {
	if err := sc.load(); err != nil {
		return nil, err
	}
	return append([]vm.LiveRegister(nil), sc.live...), nil
}

// IndexForRegister is the position of reg in Values.
func (sc *StateCommitment) IndexForRegister(reg vm.Reg) (int, error) {
	if err := sc.load(); err != nil {
		return 0, err
	}
	i, ok := sc.positions[reg]
	if !ok {
		return 0, fmt.Errorf("%w: register %d at line %d", ErrRegisterNotFound, reg, sc.Line)
	}
	return i, nil
}

func (sc *StateCommitment) ValueForRegister(reg vm.Reg) (uint256.Int, error) {
	i, err := sc.IndexForRegister(reg)
	if err != nil {
		return uint256.Int{}, err
	}
	return sc.values[i], nil
}

func (sc *StateCommitment) Digest(c Committer) (common.Hash, error) {
	if err := sc.load(); err != nil {
		return common.Hash{}, err
	}
	return c.Commit(sc.values), nil
}
