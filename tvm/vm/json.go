package vm

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// programLine is the serialized form of one instruction. Operands are pointers so
// a missing operand can be told apart from register zero.
type programLine struct {
	Name   string  `json:"name"`
	Target *uint32 `json:"target"`
	Param1 *uint32 `json:"param1,omitempty"`
	Param2 *uint32 `json:"param2,omitempty"`
	Bit    *uint32 `json:"bit,omitempty"`
}

type savedProgram struct {
	Modulus       string        `json:"modulus,omitempty"`
	Hardcoded     []string      `json:"hardcoded"`
	Witness       []string      `json:"witness"`
	Registers     uint32        `json:"registers"`
	SuccessIndex  uint32        `json:"successIndex"`
	ProgramLength uint64        `json:"programLength"`
	Program       []programLine `json:"program"`
}

// ParseWord parses a hex encoded 256 bit word. The 0x prefix and leading zeros
// are both optional, matching what the arithmetizer emits.
func ParseWord(s string) (U256, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return U256{}, fmt.Errorf("empty hex word %q", s)
	}
	if digits[0] == '-' || digits[0] == '+' {
		return U256{}, fmt.Errorf("signed hex word %q", s)
	}
	b, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return U256{}, fmt.Errorf("invalid hex word %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return U256{}, fmt.Errorf("hex word %q exceeds 256 bits", s)
	}
	return *v, nil
}

func parseWords(field string, in []string) ([]U256, error) {
	out := make([]U256, len(in))
	for i, s := range in {
		v, err := ParseWord(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatWords(in []U256) []string {
	out := make([]string, len(in))
	for i := range in {
		out[i] = in[i].Hex()
	}
	return out
}

func u32ptr(v uint32) *uint32 { return &v }

func (p *Program) MarshalJSON() ([]byte, error) {
	saved := savedProgram{
		Hardcoded:     formatWords(p.hardcoded),
		Witness:       formatWords(p.witness),
		Registers:     p.registerCount,
		SuccessIndex:  uint32(p.successIndex),
		ProgramLength: p.Len(),
		Program:       make([]programLine, len(p.instructions)),
	}
	if p.modulus != DefaultModulus {
		saved.Modulus = p.modulus.Hex()
	}
	for i, in := range p.instructions {
		line := programLine{
			Name:   in.Op.String(),
			Target: u32ptr(uint32(in.Target)),
			Param1: u32ptr(uint32(in.Param1)),
		}
		if in.Op.Arity() == 2 {
			line.Param2 = u32ptr(uint32(in.Param2))
		}
		if in.Op.HasBit() {
			line.Bit = u32ptr(uint32(in.Bit))
		}
		saved.Program[i] = line
	}
	return json.Marshal(&saved)
}

// UnmarshalJSON decodes and validates a serialized program. Any structural
// problem is reported here, before a runner ever sees the program.
func (p *Program) UnmarshalJSON(data []byte) error {
	var saved savedProgram
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	var modulus U256
	if saved.Modulus != "" {
		m, err := ParseWord(saved.Modulus)
		if err != nil {
			return fmt.Errorf("modulus: %w", err)
		}
		if m.IsZero() {
			return ErrInvalidModulus
		}
		modulus = m
	}
	hardcoded, err := parseWords("hardcoded", saved.Hardcoded)
	if err != nil {
		return err
	}
	witness, err := parseWords("witness", saved.Witness)
	if err != nil {
		return err
	}
	if saved.ProgramLength != 0 && saved.ProgramLength != uint64(len(saved.Program)) {
		return fmt.Errorf("%w: %d != %d", ErrProgramLengthField, saved.ProgramLength, len(saved.Program))
	}
	success := Reg(saved.SuccessIndex)
	instructions := make([]Instruction, len(saved.Program))
	for i, line := range saved.Program {
		in, err := line.decode(success)
		if err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		instructions[i] = in
	}
	loaded, err := NewProgram(modulus, hardcoded, witness, instructions, saved.Registers, success)
	if err != nil {
		return err
	}
	*p = *loaded
	return nil
}

func (line programLine) decode(success Reg) (Instruction, error) {
	op, err := ParseOpcode(line.Name)
	if err != nil {
		return Instruction{}, err
	}
	if line.Target == nil {
		return Instruction{}, fmt.Errorf("%w: target of %s", ErrMissingOperand, op)
	}
	if line.Param1 == nil {
		return Instruction{}, fmt.Errorf("%w: param1 of %s", ErrMissingOperand, op)
	}
	in := Instruction{Op: op, Target: Reg(*line.Target), Param1: Reg(*line.Param1)}
	switch {
	case op.IsAssert() && line.Param2 == nil:
		// older traces leave the success operand implicit
		in.Param2 = success
	case op.Arity() == 2 && line.Param2 == nil:
		return Instruction{}, fmt.Errorf("%w: param2 of %s", ErrMissingOperand, op)
	case op.Arity() == 1 && line.Param2 != nil:
		return Instruction{}, fmt.Errorf("%w: param2 of %s", ErrUnexpectedOperand, op)
	case op.Arity() == 2:
		in.Param2 = Reg(*line.Param2)
	}
	if line.Bit != nil {
		if !op.HasBit() {
			return Instruction{}, fmt.Errorf("%w: bit of %s", ErrUnexpectedOperand, op)
		}
		if *line.Bit > 255 {
			return Instruction{}, fmt.Errorf("%w: bit %d of %s", ErrUnexpectedOperand, *line.Bit, op)
		}
		in.Bit = uint8(*line.Bit)
	}
	return in, nil
}
