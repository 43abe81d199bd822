package vm

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidWindow = errors.New("invalid live register window")

// LiveRegister is a register index paired with its value at a cut point.
type LiveRegister struct {
	Index Reg
	Value U256
}

// LiveRegisterIndices returns, sorted, the registers written by an instruction in
// [left, line] and read by an instruction in [line, right). Both windows stop at
// the end of the program: lines past it contribute no reads or writes.
func LiveRegisterIndices(p *Program, left, line, right uint64) ([]Reg, error) {
	if left > line || line >= right {
		return nil, fmt.Errorf("%w: left %d, line %d, right %d", ErrInvalidWindow, left, line, right)
	}
	n := p.Len()
	written := make([]bool, p.RegisterCount())
	read := make([]bool, p.RegisterCount())

	for i := left; i <= line && i < n; i++ {
		written[p.instructions[i].Target] = true
	}
	readEnd := min(right, n)
	for i := line; i < readEnd; i++ {
		in := p.instructions[i]
		read[in.Param1] = true
		if in.Op.Arity() == 2 {
			read[in.Param2] = true
		}
	}

	var out []Reg
	for i := range written {
		if written[i] && read[i] {
			out = append(out, Reg(i))
		}
	}
	return out, nil
}

// LiveRegisters is LiveRegisterIndices paired with the values the registers hold
// after replaying the program through line.
func LiveRegisters(p *Program, left, line, right uint64) ([]LiveRegister, error) {
	indices, err := LiveRegisterIndices(p, left, line, right)
	if err != nil {
		return nil, err
	}
	return Snapshot(p, line, indices)
}

// Snapshot replays a fresh runner through line and reads the given registers.
func Snapshot(p *Program, line uint64, indices []Reg) ([]LiveRegister, error) {
	r, err := Load(p)
	if err != nil {
		return nil, err
	}
	r.Execute(line)
	out := make([]LiveRegister, len(indices))
	for i, idx := range indices {
		if uint32(idx) >= p.RegisterCount() {
			return nil, fmt.Errorf("%w: %d", ErrDanglingRegister, idx)
		}
		out[i] = LiveRegister{Index: idx, Value: r.Value(idx)}
	}
	return out, nil
}

const never = math.MaxUint64

// Liveness records, per register, the first line that writes it and the last
// line that reads it, for windows that start at line zero and end at a fixed
// right bound. It answers width questions for every line in one sweep without
// replaying anything.
type Liveness struct {
	n          uint64
	firstWrite []uint64
	lastRead   []uint64
}

// NewLiveness analyses reads in [0, right), clamped to the program like
// LiveRegisterIndices.
func NewLiveness(p *Program, right uint64) *Liveness {
	n := p.Len()
	l := &Liveness{
		n:          n,
		firstWrite: make([]uint64, p.RegisterCount()),
		lastRead:   make([]uint64, p.RegisterCount()),
	}
	for i := range l.firstWrite {
		l.firstWrite[i] = never
		l.lastRead[i] = never
	}
	for i, in := range p.instructions {
		line := uint64(i)
		if l.firstWrite[in.Target] == never {
			l.firstWrite[in.Target] = line
		}
		if line < right {
			l.lastRead[in.Param1] = line
			if in.Op.Arity() == 2 {
				l.lastRead[in.Param2] = line
			}
		}
	}
	return l
}

// Hold keeps reg live over [from, to] on top of what the program itself does,
// as if it were written at from and read at to.
func (l *Liveness) Hold(reg Reg, from, to uint64) {
	if l.firstWrite[reg] == never || from < l.firstWrite[reg] {
		l.firstWrite[reg] = from
	}
	if l.lastRead[reg] == never || to > l.lastRead[reg] {
		l.lastRead[reg] = to
	}
}

// Live reports whether reg belongs to the live set at line.
func (l *Liveness) Live(reg Reg, line uint64) bool {
	fw, lr := l.firstWrite[reg], l.lastRead[reg]
	return fw != never && lr != never && fw <= line && line <= lr
}

// Written reports whether some line in [0, line] writes reg.
func (l *Liveness) Written(reg Reg, line uint64) bool {
	fw := l.firstWrite[reg]
	return fw != never && fw <= line
}

// Widths returns the live set size at every line in [0, Len()]. Past the end of
// the program the live set never changes.
func (l *Liveness) Widths() []int {
	diff := make([]int, l.n+2)
	for r := range l.firstWrite {
		fw, lr := l.firstWrite[r], l.lastRead[r]
		if fw == never || lr == never || fw > lr {
			continue
		}
		if fw > l.n {
			continue
		}
		diff[fw]++
		if lr+1 <= l.n {
			diff[lr+1]--
		}
	}
	widths := make([]int, l.n+1)
	acc := 0
	for i := range widths {
		acc += diff[i]
		widths[i] = acc
	}
	return widths
}

// MaxWidth is the widest live set and the first line where it occurs.
func (l *Liveness) MaxWidth() (width int, line uint64) {
	for i, w := range l.Widths() {
		if w > width {
			width, line = w, uint64(i)
		}
	}
	return width, line
}
