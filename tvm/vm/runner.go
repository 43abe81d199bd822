package vm

import (
	"fmt"
	"math"
)

// Runner replays a program forward. Each party owns its own runner; register
// arrays are never shared. There is no checkpointing: reaching an earlier line
// means loading a fresh runner.
type Runner struct {
	program   *Program
	registers []U256
	current   uint64
}

// Load prepares a runner at line zero with all registers at their initial values.
func Load(p *Program) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("nil program")
	}
	regs := make([]U256, p.RegisterCount())
	copy(regs, p.hardcoded)
	copy(regs[len(p.hardcoded):], p.witness)
	regs[p.successIndex] = oneWord
	return &Runner{program: p, registers: regs}, nil
}

// Execute replays instructions [current, stop]. Lines past the end of the program
// are the terminal assertion, which never changes state, so they are skipped.
func (r *Runner) Execute(stop uint64) {
	end := stop
	if n := r.program.Len(); end >= n {
		end = n - 1
	}
	m := r.program.modulus
	for ; r.current <= end; r.current++ {
		in := r.program.instructions[r.current]
		a := r.registers[in.Param1]
		var b U256
		if in.Op.Arity() == 2 {
			b = r.registers[in.Param2]
		}
		r.registers[in.Target] = apply(in, a, b, m)
	}
	if stop >= r.current && stop != math.MaxUint64 {
		r.current = stop + 1
	}
}

// Run replays the whole program.
func (r *Runner) Run() {
	r.Execute(r.program.Len() - 1)
}

// Current is the next line to execute.
func (r *Runner) Current() uint64 { return r.current }

func (r *Runner) Program() *Program { return r.program }

// RegisterValues returns a copy of the register file.
func (r *Runner) RegisterValues() []U256 {
	return append([]U256(nil), r.registers...)
}

func (r *Runner) Value(reg Reg) U256 { return r.registers[reg] }

// Success reports whether every assertion executed so far held.
func (r *Runner) Success() bool {
	return !r.registers[r.program.successIndex].IsZero()
}

func (r *Runner) Instruction(line uint64) Instruction {
	return r.program.Instruction(line)
}
