package bisect

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/bitsnark/tracevm/tvm/merkle"
	"github.com/bitsnark/tracevm/tvm/vm"
)

// Operand is one value of the disputed instruction. Values taken from a state
// commitment carry an inclusion proof against its digest; values the
// instruction reads before anything wrote them are public and carry none.
type Operand struct {
	Register vm.Reg
	Value    uint256.Int
	Proof    *merkle.Proof
}

// Argument is the prover's case for a single disputed instruction: the
// operands a and b from the commitment before it, the result c from the
// commitment after it, and the auxiliary quotient d.
type Argument struct {
	Line uint64
	A    Operand
	B    Operand
	C    Operand
	D    uint256.Int
}

// MakeArgument builds the argument for instruction line, with proofs against
// the digests the hasher produces.
func (b *Bisector) MakeArgument(line uint64, h merkle.Hasher) (*Argument, error) {
	if line > b.total {
		return nil, fmt.Errorf("%w: %d past %d", ErrLineOutOfRange, line, b.total)
	}
	in := b.program.Instruction(line)
	arg := &Argument{Line: line}

	var err error
	if arg.A, err = b.readOperand(in.Param1, line, h); err != nil {
		return nil, err
	}
	if in.Op.Arity() == 2 {
		if arg.B, err = b.readOperand(in.Param2, line, h); err != nil {
			return nil, err
		}
	}
	if arg.C, err = b.resultOperand(in.Target, line, h); err != nil {
		return nil, err
	}
	arg.D = vm.Aux(in, b.program.Modulus(), arg.A.Value, arg.B.Value, arg.C.Value)
	return arg, nil
}

// public reports whether instruction line reads reg before anything wrote it.
func (b *Bisector) public(reg vm.Reg, line uint64) bool {
	return line == 0 || !b.liveness.Written(reg, line-1)
}

func (b *Bisector) readOperand(reg vm.Reg, line uint64, h merkle.Hasher) (Operand, error) {
	if b.public(reg, line) {
		return Operand{Register: reg, Value: b.program.InitialValue(reg)}, nil
	}
	return b.proveRegister(reg, line-1, h)
}

func (b *Bisector) resultOperand(reg vm.Reg, line uint64, h merkle.Hasher) (Operand, error) {
	op, err := b.proveRegister(reg, line, h)
	if errors.Is(err, ErrRegisterNotFound) {
		// never read again, so no commitment holds it
		r, err := vm.Load(b.program)
		if err != nil {
			return Operand{}, err
		}
		r.Execute(line)
		return Operand{Register: reg, Value: r.Value(reg)}, nil
	}
	return op, err
}

func (b *Bisector) proveRegister(reg vm.Reg, line uint64, h merkle.Hasher) (Operand, error) {
	sc, err := b.Commitment(line)
	if err != nil {
		return Operand{}, err
	}
	idx, err := sc.IndexForRegister(reg)
	if err != nil {
		return Operand{}, err
	}
	values, err := sc.Values()
	if err != nil {
		return Operand{}, err
	}
	proof, err := merkle.Prove(h, merkle.Leaves(values), uint64(idx))
	if err != nil {
		return Operand{}, err
	}
	return Operand{Register: reg, Value: values[idx], Proof: proof}, nil
}

type RefutationKind uint8

const (
	// RefuteInstruction: the operands check out but c is not the result.
	RefuteInstruction RefutationKind = iota
	// RefuteValue: an operand is not the register, position, digest or public
	// value it has to be.
	RefuteValue
	// RefuteHash: a proof contains a pair that does not hash to its parent.
	RefuteHash
)

func (k RefutationKind) String() string {
	switch k {
	case RefuteInstruction:
		return "instruction"
	case RefuteValue:
		return "value"
	case RefuteHash:
		return "hash"
	default:
		return fmt.Sprintf("refutation(%d)", uint8(k))
	}
}

// Refutation says what is wrong with an argument. Operand names a, b, c or d;
// Index is the position of the bad pair in the operand's proof.
type Refutation struct {
	Kind    RefutationKind
	Operand string
	Index   int
}

func (r Refutation) String() string {
	if r.Kind == RefuteHash {
		return fmt.Sprintf("%s %s@%d", r.Kind, r.Operand, r.Index)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.Operand)
}

// Refute checks the prover's argument on the verifier's side. before is the
// digest both parties agreed on for line-1 and after is the prover's digest for
// line. It returns the refutation and true when the argument is wrong.
func (b *Bisector) Refute(arg *Argument, before, after common.Hash, h merkle.Hasher) (Refutation, bool, error) {
	if arg.Line > b.total {
		return Refutation{}, false, fmt.Errorf("%w: %d past %d", ErrLineOutOfRange, arg.Line, b.total)
	}
	in := b.program.Instruction(arg.Line)

	ref, bad, err := b.refuteRead("a", arg.A, in.Param1, arg.Line, before, h)
	if bad || err != nil {
		return ref, bad, err
	}
	if in.Op.Arity() == 2 {
		ref, bad, err = b.refuteRead("b", arg.B, in.Param2, arg.Line, before, h)
		if bad || err != nil {
			return ref, bad, err
		}
	}
	ref, bad, err = b.refuteResult(arg.C, in.Target, arg.Line, after, h)
	if bad || err != nil {
		return ref, bad, err
	}
	if !vm.Check(in, b.program.Modulus(), arg.A.Value, arg.B.Value, arg.C.Value, arg.D) {
		operand := "c"
		if in.Op.NeedsAux() {
			expected := vm.Aux(in, b.program.Modulus(), arg.A.Value, arg.B.Value, arg.C.Value)
			if expected != arg.D {
				operand = "d"
			}
		}
		return Refutation{Kind: RefuteInstruction, Operand: operand}, true, nil
	}
	return Refutation{}, false, nil
}

func (b *Bisector) refuteRead(name string, op Operand, reg vm.Reg, line uint64, root common.Hash, h merkle.Hasher) (Refutation, bool, error) {
	value := Refutation{Kind: RefuteValue, Operand: name}
	if op.Register != reg {
		return value, true, nil
	}
	if b.public(reg, line) {
		if op.Proof != nil || op.Value != b.program.InitialValue(reg) {
			return value, true, nil
		}
		return Refutation{}, false, nil
	}
	return b.refuteProof(name, op, line-1, root, h)
}

func (b *Bisector) refuteResult(op Operand, reg vm.Reg, line uint64, root common.Hash, h merkle.Hasher) (Refutation, bool, error) {
	value := Refutation{Kind: RefuteValue, Operand: "c"}
	if op.Register != reg {
		return value, true, nil
	}
	sc, err := b.Commitment(line)
	if err != nil {
		return Refutation{}, false, err
	}
	if _, err := sc.IndexForRegister(reg); errors.Is(err, ErrRegisterNotFound) {
		if op.Proof != nil {
			return value, true, nil
		}
		return Refutation{}, false, nil
	} else if err != nil {
		return Refutation{}, false, err
	}
	return b.refuteProof("c", op, line, root, h)
}

func (b *Bisector) refuteProof(name string, op Operand, line uint64, root common.Hash, h merkle.Hasher) (Refutation, bool, error) {
	value := Refutation{Kind: RefuteValue, Operand: name}
	if op.Proof == nil {
		return value, true, nil
	}
	at, err := op.Proof.IndexToRefute(h)
	if err != nil || op.Proof.Levels() != b.proofLevels() {
		return value, true, nil
	}
	if at >= 0 {
		return Refutation{Kind: RefuteHash, Operand: name, Index: at}, true, nil
	}
	if op.Proof.Root() != root || op.Proof.Leaf() != merkle.Leaf(&op.Value) {
		return value, true, nil
	}
	sc, err := b.Commitment(line)
	if err != nil {
		return Refutation{}, false, err
	}
	pos, err := sc.IndexForRegister(op.Register)
	if err != nil {
		return Refutation{}, false, err
	}
	if op.Proof.Index != uint64(pos) {
		return value, true, nil
	}
	return Refutation{}, false, nil
}

// proofLevels is the depth of the tree over a commitment's values.
func (b *Bisector) proofLevels() int {
	levels := 0
	for 1<<levels < b.cfg.Width {
		levels++
	}
	return levels
}

type operandJSON struct {
	Register vm.Reg        `json:"register"`
	Value    *hexutil.Big  `json:"value"`
	Proof    *merkle.Proof `json:"proof,omitempty"`
}

type argumentJSON struct {
	Line uint64       `json:"line"`
	A    operandJSON  `json:"a"`
	B    operandJSON  `json:"b"`
	C    operandJSON  `json:"c"`
	D    *hexutil.Big `json:"d"`
}

func wordFromBig(b *hexutil.Big) (uint256.Int, error) {
	v, overflow := uint256.FromBig(b.ToInt())
	if overflow || b.ToInt().Sign() < 0 {
		return uint256.Int{}, errors.New("value out of range")
	}
	return *v, nil
}

func (op *Operand) toJSON() operandJSON {
	return operandJSON{Register: op.Register, Value: (*hexutil.Big)(op.Value.ToBig()), Proof: op.Proof}
}

func (op *Operand) fromJSON(name string, enc operandJSON) error {
	if enc.Value == nil {
		return fmt.Errorf("operand %s: missing value", name)
	}
	v, err := wordFromBig(enc.Value)
	if err != nil {
		return fmt.Errorf("operand %s: %w", name, err)
	}
	op.Register = enc.Register
	op.Value = v
	op.Proof = enc.Proof
	return nil
}

func (a *Argument) MarshalJSON() ([]byte, error) {
	return json.Marshal(&argumentJSON{
		Line: a.Line,
		A:    a.A.toJSON(),
		B:    a.B.toJSON(),
		C:    a.C.toJSON(),
		D:    (*hexutil.Big)(a.D.ToBig()),
	})
}

func (a *Argument) UnmarshalJSON(data []byte) error {
	var enc argumentJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	if enc.D == nil {
		return errors.New("argument: missing d")
	}
	d, err := wordFromBig(enc.D)
	if err != nil {
		return fmt.Errorf("argument d: %w", err)
	}
	a.Line = enc.Line
	a.D = d
	if err := a.A.fromJSON("a", enc.A); err != nil {
		return err
	}
	if err := a.B.fromJSON("b", enc.B); err != nil {
		return err
	}
	return a.C.fromJSON("c", enc.C)
}
