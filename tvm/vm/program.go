package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Structural errors. These indicate a malformed program and are never retried.
var (
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrDanglingRegister   = errors.New("register index was never declared")
	ErrMissingOperand     = errors.New("missing operand")
	ErrUnexpectedOperand  = errors.New("unexpected operand")
	ErrReadOnlyTarget     = errors.New("instruction writes a hardcoded or witness register")
	ErrSuccessRegister    = errors.New("invalid success register")
	ErrRegisterCount      = errors.New("inconsistent register count")
	ErrInvalidModulus     = errors.New("modulus must be at least 2")
	ErrEmptyProgram       = errors.New("program has no instructions")
	ErrWitnessCount       = errors.New("witness count mismatch")
	ErrProgramLengthField = errors.New("programLength does not match instruction count")
)

// Program is an immutable instruction trace with its constant and witness
// registers. Registers [0,H) are hardcoded, [H,H+W) are witness, and the rest
// are computed. The success register is a computed register that starts at one.
type Program struct {
	modulus       U256
	hardcoded     []U256
	witness       []U256
	instructions  []Instruction
	registerCount uint32
	successIndex  Reg
}

// NewProgram validates and takes ownership of the given parts.
// A zero modulus selects DefaultModulus.
func NewProgram(modulus U256, hardcoded, witness []U256, instructions []Instruction, registerCount uint32, successIndex Reg) (*Program, error) {
	if modulus.IsZero() {
		modulus = DefaultModulus
	}
	p := &Program{
		modulus:       modulus,
		hardcoded:     hardcoded,
		witness:       witness,
		instructions:  instructions,
		registerCount: registerCount,
		successIndex:  successIndex,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) validate() error {
	if p.modulus.LtUint64(2) {
		return ErrInvalidModulus
	}
	if len(p.instructions) == 0 {
		return ErrEmptyProgram
	}
	fixed := uint64(len(p.hardcoded)) + uint64(len(p.witness))
	if fixed >= uint64(p.registerCount) {
		return fmt.Errorf("%w: %d registers declared, %d hardcoded, %d witness, no room for the success register",
			ErrRegisterCount, p.registerCount, len(p.hardcoded), len(p.witness))
	}
	if p.Kind(p.successIndex) != Computed || uint32(p.successIndex) >= p.registerCount {
		return fmt.Errorf("%w: register %d", ErrSuccessRegister, p.successIndex)
	}
	for line, in := range p.instructions {
		if err := p.validateInstruction(in); err != nil {
			return fmt.Errorf("line %d (%s): %w", line, in, err)
		}
	}
	return nil
}

func (p *Program) validateInstruction(in Instruction) error {
	if !in.Op.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOpcode, uint8(in.Op))
	}
	if uint32(in.Target) >= p.registerCount {
		return fmt.Errorf("%w: target register %d", ErrDanglingRegister, in.Target)
	}
	if p.Kind(in.Target) != Computed {
		return fmt.Errorf("%w: register %d is %s", ErrReadOnlyTarget, in.Target, p.Kind(in.Target))
	}
	for _, r := range in.Reads() {
		if uint32(r) >= p.registerCount {
			return fmt.Errorf("%w: operand register %d", ErrDanglingRegister, r)
		}
	}
	if in.Op.IsAssert() && (in.Target != p.successIndex || in.Param2 != p.successIndex) {
		return fmt.Errorf("%w: assertion must target and read register %d", ErrSuccessRegister, p.successIndex)
	}
	if in.Op.Arity() == 1 && in.Param2 != 0 {
		return fmt.Errorf("%w: second operand on %s", ErrUnexpectedOperand, in.Op)
	}
	if !in.Op.HasBit() && in.Bit != 0 {
		return fmt.Errorf("%w: bit on %s", ErrUnexpectedOperand, in.Op)
	}
	return nil
}

// Len is the number of real instructions.
func (p *Program) Len() uint64 { return uint64(len(p.instructions)) }

func (p *Program) Modulus() U256 { return p.modulus }

func (p *Program) RegisterCount() uint32 { return p.registerCount }

func (p *Program) SuccessIndex() Reg { return p.successIndex }

func (p *Program) HardcodedCount() int { return len(p.hardcoded) }

func (p *Program) WitnessCount() int { return len(p.witness) }

// Hardcoded returns a copy of the hardcoded values.
func (p *Program) Hardcoded() []U256 { return append([]U256(nil), p.hardcoded...) }

// Witness returns a copy of the witness values.
func (p *Program) Witness() []U256 { return append([]U256(nil), p.witness...) }

// Instruction returns the instruction at line. Past the end of the program every
// line is the terminal assertion on the success register: replaying it is a
// no-op, and disputing it proves whether the run had succeeded by that point.
func (p *Program) Instruction(line uint64) Instruction {
	if line >= p.Len() {
		return AssertOne(p.successIndex, p.successIndex)
	}
	return p.instructions[line]
}

// Kind classifies a register index by the program layout.
func (p *Program) Kind(r Reg) Kind {
	switch {
	case int(r) < len(p.hardcoded):
		return Hardcoded
	case int(r) < len(p.hardcoded)+len(p.witness):
		return Witness
	default:
		return Computed
	}
}

// InitialValue is the value a register holds before any instruction executes.
func (p *Program) InitialValue(r Reg) U256 {
	h := len(p.hardcoded)
	switch {
	case int(r) < h:
		return p.hardcoded[r]
	case int(r) < h+len(p.witness):
		return p.witness[int(r)-h]
	case r == p.successIndex:
		return oneWord
	default:
		return zeroWord
	}
}

// WithWitness returns a copy of the program with different witness values.
func (p *Program) WithWitness(witness []U256) (*Program, error) {
	if len(witness) != len(p.witness) {
		return nil, fmt.Errorf("%w: have %d, got %d", ErrWitnessCount, len(p.witness), len(witness))
	}
	cpy := *p
	cpy.witness = append([]U256(nil), witness...)
	return &cpy, nil
}

// Hash identifies the program, witness included.
func (p *Program) Hash() common.Hash {
	h := crypto.NewKeccakState()
	var buf [8]byte
	word := func(v U256) {
		b := v.Bytes32()
		h.Write(b[:])
	}
	u64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	word(p.modulus)
	u64(uint64(len(p.hardcoded)))
	for _, v := range p.hardcoded {
		word(v)
	}
	u64(uint64(len(p.witness)))
	for _, v := range p.witness {
		word(v)
	}
	u64(uint64(p.registerCount))
	u64(uint64(p.successIndex))
	u64(uint64(len(p.instructions)))
	for _, in := range p.instructions {
		h.Write([]byte{byte(in.Op), in.Bit})
		u64(uint64(in.Target)<<32 | uint64(in.Param1))
		u64(uint64(in.Param2))
	}
	var out common.Hash
	h.Read(out[:])
	return out
}
