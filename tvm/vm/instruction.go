package vm

import (
	"fmt"
	"strings"
)

// Reg is an absolute register index.
type Reg uint32

// Kind classifies a register by how it gets its value.
type Kind uint8

const (
	// Hardcoded registers are constants fixed when the program is built.
	Hardcoded Kind = iota
	// Witness registers hold prover-supplied inputs, fixed before execution.
	Witness
	// Computed registers start at zero and are written by instructions.
	Computed
)

func (k Kind) String() string {
	switch k {
	case Hardcoded:
		return "hardcoded"
	case Witness:
		return "witness"
	case Computed:
		return "computed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type Opcode uint8

const (
	OpAddMod Opcode = iota
	OpSubMod
	OpMulMod
	OpDivMod
	OpAndBit
	OpAndNotBit
	OpAnd
	OpOr
	OpNot
	OpEqual
	OpMov
	OpAssertOne
	OpAssertZero

	opCount
)

type opcodeInfo struct {
	name   string
	arity  int
	hasBit bool
	assert bool
}

var opcodes = [opCount]opcodeInfo{
	OpAddMod:     {name: "ADDMOD", arity: 2},
	OpSubMod:     {name: "SUBMOD", arity: 2},
	OpMulMod:     {name: "MULMOD", arity: 2},
	OpDivMod:     {name: "DIVMOD", arity: 2},
	OpAndBit:     {name: "ANDBIT", arity: 2, hasBit: true},
	OpAndNotBit:  {name: "ANDNOTBIT", arity: 2, hasBit: true},
	OpAnd:        {name: "AND", arity: 2},
	OpOr:         {name: "OR", arity: 2},
	OpNot:        {name: "NOT", arity: 1},
	OpEqual:      {name: "EQUAL", arity: 2},
	OpMov:        {name: "MOV", arity: 1},
	OpAssertOne:  {name: "ASSERTONE", arity: 2, assert: true},
	OpAssertZero: {name: "ASSERTZERO", arity: 2, assert: true},
}

func (op Opcode) Valid() bool { return op < opCount }

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("opcode(%d)", uint8(op))
	}
	return opcodes[op].name
}

// Arity is the number of registers the opcode reads.
func (op Opcode) Arity() int { return opcodes[op].arity }

// HasBit reports whether the opcode selects on a bit of its first operand.
func (op Opcode) HasBit() bool { return opcodes[op].hasBit }

// IsAssert reports whether the opcode folds its result into the success register.
// Assertions read the success register as their second operand.
func (op Opcode) IsAssert() bool { return opcodes[op].assert }

// NeedsAux reports whether the single-instruction checker needs the auxiliary
// quotient for this opcode.
func (op Opcode) NeedsAux() bool { return op == OpMulMod || op == OpDivMod }

// ParseOpcode looks up an opcode by its serialized name.
func ParseOpcode(name string) (Opcode, error) {
	for i, info := range opcodes {
		if strings.EqualFold(info.name, name) {
			return Opcode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, name)
}

// Instruction is a single trace line. Param2 is only meaningful for two-operand
// opcodes and Bit only for ANDBIT/ANDNOTBIT; the typed constructors below are the
// only way the builder creates instructions, and loaded programs are validated
// against the same arity table.
type Instruction struct {
	Op     Opcode
	Target Reg
	Param1 Reg
	Param2 Reg
	Bit    uint8
}

func AddMod(target, a, b Reg) Instruction { return twoOperand(OpAddMod, target, a, b) }
func SubMod(target, a, b Reg) Instruction { return twoOperand(OpSubMod, target, a, b) }
func MulMod(target, a, b Reg) Instruction { return twoOperand(OpMulMod, target, a, b) }
func DivMod(target, a, b Reg) Instruction { return twoOperand(OpDivMod, target, a, b) }
func And(target, a, b Reg) Instruction    { return twoOperand(OpAnd, target, a, b) }
func Or(target, a, b Reg) Instruction     { return twoOperand(OpOr, target, a, b) }
func Equal(target, a, b Reg) Instruction  { return twoOperand(OpEqual, target, a, b) }
func Not(target, a Reg) Instruction       { return Instruction{Op: OpNot, Target: target, Param1: a} }
func Mov(target, a Reg) Instruction       { return Instruction{Op: OpMov, Target: target, Param1: a} }

// AndBit selects b when bit of a is set, zero otherwise.
func AndBit(target, a, b Reg, bit uint8) Instruction {
	return Instruction{Op: OpAndBit, Target: target, Param1: a, Param2: b, Bit: bit}
}

// AndNotBit selects b when bit of a is clear, zero otherwise.
func AndNotBit(target, a, b Reg, bit uint8) Instruction {
	return Instruction{Op: OpAndNotBit, Target: target, Param1: a, Param2: b, Bit: bit}
}

func AssertOne(success, a Reg) Instruction {
	return Instruction{Op: OpAssertOne, Target: success, Param1: a, Param2: success}
}

func AssertZero(success, a Reg) Instruction {
	return Instruction{Op: OpAssertZero, Target: success, Param1: a, Param2: success}
}

func twoOperand(op Opcode, target, a, b Reg) Instruction {
	return Instruction{Op: op, Target: target, Param1: a, Param2: b}
}

// Reads returns the registers the instruction reads, in operand order.
func (in Instruction) Reads() []Reg {
	if in.Op.Arity() == 1 {
		return []Reg{in.Param1}
	}
	return []Reg{in.Param1, in.Param2}
}

func (in Instruction) String() string {
	switch {
	case !in.Op.Valid():
		return fmt.Sprintf("%s r%d", in.Op, in.Target)
	case in.Op.HasBit():
		return fmt.Sprintf("%s r%d r%d r%d bit=%d", in.Op, in.Target, in.Param1, in.Param2, in.Bit)
	case in.Op.Arity() == 1:
		return fmt.Sprintf("%s r%d r%d", in.Op, in.Target, in.Param1)
	default:
		return fmt.Sprintf("%s r%d r%d r%d", in.Op, in.Target, in.Param1, in.Param2)
	}
}
