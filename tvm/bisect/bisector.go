package bisect

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/bitsnark/tracevm/tvm/vm"
)

var (
	ErrInvalidSelection = errors.New("invalid selection path")
	ErrLineOutOfRange   = errors.New("line out of range")
	ErrInexactDivision  = errors.New("range does not divide evenly")
	ErrTraceTooLong     = errors.New("trace too long for branching factor")
)

// Range is the half-open line range [Left, Right).
type Range struct {
	Left  uint64
	Right uint64
}

func (r Range) Width() uint64 { return r.Right - r.Left }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Left, r.Right) }

// Bisector is the n-ary search tree over a program's trace. The trace is padded
// with terminal assertions to total = N^iterations lines, and a state
// commitment exists for every boundary line of every range in the tree.
type Bisector struct {
	program     *vm.Program
	programHash common.Hash
	cfg         Config
	store       CommitmentStore

	iterations  int
	total       uint64
	liveness    *vm.Liveness
	commitments map[uint64]*StateCommitment
}

// New builds the tree for p. Commitments are created empty and filled on first
// use; the widest live set is checked here so an over-wide program fails before
// any dispute starts.
func New(p *vm.Program, opts ...Option) (*Bisector, error) {
	b := &Bisector{
		program:     p,
		programHash: p.Hash(),
		cfg:         DefaultConfig,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.cfg.Check(); err != nil {
		return nil, err
	}

	n := b.cfg.Branching
	b.total = 1
	for b.total < p.Len() {
		if b.total > math.MaxUint64/n {
			return nil, fmt.Errorf("%w: %d lines, branching %d", ErrTraceTooLong, p.Len(), n)
		}
		b.total *= n
		b.iterations++
	}

	b.liveness = vm.NewLiveness(p, b.total+1)
	b.liveness.Hold(p.SuccessIndex(), p.Len(), b.total)
	if width, line := b.liveness.MaxWidth(); width > b.cfg.Width {
		return nil, fmt.Errorf("%w: %d live registers at line %d, width %d", ErrCommitmentTooWide, width, line, b.cfg.Width)
	}

	b.commitments = make(map[uint64]*StateCommitment)
	b.add(0, Range{0, b.total}, 0, 0)
	b.add(b.total, Range{0, b.total}, 0, n-1)
	if err := b.split(Range{0, b.total}, 1); err != nil {
		return nil, err
	}
	log.Debug("Built bisection tree", "program", p.Len(), "iterations", b.iterations,
		"total", b.total, "commitments", len(b.commitments))
	return b, nil
}

func (b *Bisector) add(line uint64, r Range, iteration int, selection uint64) {
	if _, ok := b.commitments[line]; ok {
		return
	}
	b.commitments[line] = &StateCommitment{
		Left:      r.Left,
		Right:     r.Right,
		Line:      line,
		Iteration: iteration,
		Selection: selection,
		b:         b,
	}
}

func (b *Bisector) split(r Range, iteration int) error {
	if iteration > b.iterations {
		return nil
	}
	n := b.cfg.Branching
	if r.Width()%n != 0 {
		return fmt.Errorf("%w: %s by %d", ErrInexactDivision, r, n)
	}
	d := r.Width() / n
	for i := uint64(0); i < n; i++ {
		b.add(r.Left+(i+1)*d, r, iteration, i)
		if err := b.split(Range{r.Left + i*d, r.Left + (i+1)*d}, iteration+1); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bisector) Program() *vm.Program { return b.program }

func (b *Bisector) Config() Config { return b.cfg }

// Iterations is the number of narrowing rounds, ceil(log_N(program length)).
func (b *Bisector) Iterations() int { return b.iterations }

// Total is the padded trace length, N^Iterations.
func (b *Bisector) Total() uint64 { return b.total }

// RangeForSelectionPath walks the tree from [0, total) choosing sub-range
// path[i] at depth i.
func (b *Bisector) RangeForSelectionPath(path []uint64) (Range, error) {
	if len(path) > b.iterations {
		return Range{}, fmt.Errorf("%w: %d selections, %d iterations", ErrInvalidSelection, len(path), b.iterations)
	}
	n := b.cfg.Branching
	r := Range{0, b.total}
	for depth, sel := range path {
		if sel >= n {
			return Range{}, fmt.Errorf("%w: selection %d at depth %d, branching %d", ErrInvalidSelection, sel, depth, n)
		}
		d := r.Width() / n
		r = Range{r.Left + sel*d, r.Left + (sel+1)*d}
	}
	return r, nil
}

// LinesForSelectionPath returns the N-1 interior boundary lines of the range
// the path selects. These are the lines the prover discloses in that round.
func (b *Bisector) LinesForSelectionPath(path []uint64) ([]uint64, error) {
	r, err := b.RangeForSelectionPath(path)
	if err != nil {
		return nil, err
	}
	n := b.cfg.Branching
	if r.Width() < n {
		return nil, fmt.Errorf("%w: range %s cannot be split further", ErrInvalidSelection, r)
	}
	d := r.Width() / n
	lines := make([]uint64, 0, n-1)
	for i := uint64(1); i < n; i++ {
		lines = append(lines, r.Left+i*d)
	}
	return lines, nil
}

// SelectionPathForRange is the inverse of RangeForSelectionPath.
func (b *Bisector) SelectionPathForRange(target Range) ([]uint64, error) {
	n := b.cfg.Branching
	r := Range{0, b.total}
	path := make([]uint64, 0, b.iterations)
	for r != target {
		if r.Width() < n || target.Left < r.Left || target.Right > r.Right {
			return nil, fmt.Errorf("%w: %s is not a node of the tree", ErrInvalidSelection, target)
		}
		d := r.Width() / n
		sel := (target.Left - r.Left) / d
		r = Range{r.Left + sel*d, r.Left + (sel+1)*d}
		path = append(path, sel)
	}
	return path, nil
}

// SelectionPathForLine is the full-depth path whose range [line-1, line) puts
// instruction line in dispute. Instruction zero has no such range: it is
// disputed through the initial commitment.
func (b *Bisector) SelectionPathForLine(line uint64) ([]uint64, error) {
	if line == 0 || line > b.total {
		return nil, fmt.Errorf("%w: %d not in [1,%d]", ErrLineOutOfRange, line, b.total)
	}
	return b.SelectionPathForRange(Range{line - 1, line})
}

// Commitment returns the state commitment after line has executed.
func (b *Bisector) Commitment(line uint64) (*StateCommitment, error) {
	sc, ok := b.commitments[line]
	if !ok {
		return nil, fmt.Errorf("%w: %d not a boundary in [0,%d]", ErrLineOutOfRange, line, b.total)
	}
	return sc, nil
}

// Digest is the committer's digest of the commitment at line.
func (b *Bisector) Digest(line uint64, c Committer) (common.Hash, error) {
	sc, err := b.Commitment(line)
	if err != nil {
		return common.Hash{}, err
	}
	return sc.Digest(c)
}

// Disclose computes the prover's digests at the probe lines of path.
func (b *Bisector) Disclose(path []uint64, c Committer) ([]common.Hash, error) {
	lines, err := b.LinesForSelectionPath(path)
	if err != nil {
		return nil, err
	}
	// Each probe replays the trace on its own runner, so they run concurrently.
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	out := make([]common.Hash, len(lines))
	for i, line := range lines {
		i, line := i, line
		eg.Go(func() (err error) {
			out[i], err = b.Digest(line, c)
			return
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StateSizes is the number of live registers at every line of the program,
// plus the terminal line. It only reads the liveness sweep.
func (b *Bisector) StateSizes() []int {
	return b.liveness.Widths()
}
