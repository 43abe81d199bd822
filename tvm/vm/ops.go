package vm

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/holiman/uint256"
)

type U256 = uint256.Int

// DefaultModulus is the BN254 base field prime, the field the Groth16 verifier
// trace is arithmetized over.
var DefaultModulus = func() U256 {
	m, overflow := uint256.FromBig(fp.Modulus())
	if overflow {
		panic("bn254 modulus does not fit 256 bits")
	}
	return *m
}()

var (
	zeroWord = U256{}
	oneWord  = *uint256.NewInt(1)
)

func boolWord(b bool) (out U256) {
	if b {
		out.SetOne()
	}
	return
}

func addmod(x, y, m U256) (out U256) {
	out.AddMod(&x, &y, &m)
	return
}

// submod reduces both operands first, so the result is in [0, m) for any input.
func submod(x, y, m U256) (out U256) {
	var a, b U256
	a.Mod(&x, &m)
	b.Mod(&y, &m)
	if a.Cmp(&b) >= 0 {
		out.Sub(&a, &b)
		return
	}
	out.Sub(&b, &a)
	out.Sub(&m, &out)
	return
}

func mulmod(x, y, m U256) (out U256) {
	out.MulMod(&x, &y, &m)
	return
}

// divmod is x * y^-1 mod m, or zero when y has no inverse. The trace has to stay
// total, so a missing inverse is a value and not an error.
func divmod(x, y, m U256) (out U256) {
	inv, ok := modinv(y, m)
	if !ok {
		return zeroWord
	}
	return mulmod(x, inv, m)
}

// modinv goes through math/big: uint256 has no modular inverse.
func modinv(y, m U256) (out U256, ok bool) {
	if m.IsZero() {
		return zeroWord, false
	}
	r := new(big.Int).ModInverse(y.ToBig(), m.ToBig())
	if r == nil {
		return zeroWord, false
	}
	out.SetFromBig(r)
	return out, true
}

func bitSet(x U256, bit uint8) bool {
	var t U256
	t.Rsh(&x, uint(bit))
	return t[0]&1 == 1
}

// apply computes the value an instruction writes to its target, given its
// operand values. For assertions b is the current success value.
func apply(in Instruction, a, b, m U256) U256 {
	switch in.Op {
	case OpAddMod:
		return addmod(a, b, m)
	case OpSubMod:
		return submod(a, b, m)
	case OpMulMod:
		return mulmod(a, b, m)
	case OpDivMod:
		return divmod(a, b, m)
	case OpAndBit:
		if bitSet(a, in.Bit) {
			return b
		}
		return zeroWord
	case OpAndNotBit:
		if bitSet(a, in.Bit) {
			return zeroWord
		}
		return b
	case OpAnd:
		return boolWord(!a.IsZero() && !b.IsZero())
	case OpOr:
		return boolWord(!a.IsZero() || !b.IsZero())
	case OpNot:
		return boolWord(a.IsZero())
	case OpEqual:
		return boolWord(a.Eq(&b))
	case OpMov:
		return a
	case OpAssertOne:
		if a.Eq(&oneWord) {
			return b
		}
		return zeroWord
	case OpAssertZero:
		if a.IsZero() {
			return b
		}
		return zeroWord
	default:
		// unreachable for validated programs
		return zeroWord
	}
}
