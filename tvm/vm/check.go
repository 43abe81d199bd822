package vm

import "math/big"

// Aux is the quotient a verifier needs to check MULMOD and DIVMOD without
// reducing a 512 bit product itself. Operands are reduced first so the quotient
// always fits a word: for MULMOD (a mod m)*(b mod m) = d*m + c, for DIVMOD
// c*(b mod m) = d*m + (a mod m). Other opcodes take no auxiliary value.
func Aux(in Instruction, m, a, b, c U256) U256 {
	mb := m.ToBig()
	switch in.Op {
	case OpMulMod:
		return quotient(reduce(a, mb), reduce(b, mb), mb)
	case OpDivMod:
		if _, ok := modinv(b, m); !ok {
			return zeroWord
		}
		return quotient(c.ToBig(), reduce(b, mb), mb)
	default:
		return zeroWord
	}
}

func reduce(x U256, m *big.Int) *big.Int {
	return new(big.Int).Mod(x.ToBig(), m)
}

func quotient(x, y, m *big.Int) (out U256) {
	p := new(big.Int).Mul(x, y)
	p.Quo(p, m)
	out.SetFromBig(p)
	return
}

// productEquals reports x*y == d*m + r.
func productEquals(x, y, d, m, r *big.Int) bool {
	lhs := new(big.Int).Mul(x, y)
	rhs := new(big.Int).Mul(d, m)
	rhs.Add(rhs, r)
	return lhs.Cmp(rhs) == 0
}

// Check decides whether c is the correct result of in applied to a and b. d is
// the auxiliary value from Aux and is ignored for opcodes that do not need one.
func Check(in Instruction, m, a, b, c, d U256) bool {
	mb := m.ToBig()
	switch in.Op {
	case OpMulMod:
		if !c.Lt(&m) {
			return false
		}
		return productEquals(reduce(a, mb), reduce(b, mb), d.ToBig(), mb, c.ToBig())
	case OpDivMod:
		if _, ok := modinv(b, m); !ok {
			return c.IsZero()
		}
		if !c.Lt(&m) {
			return false
		}
		return productEquals(c.ToBig(), reduce(b, mb), d.ToBig(), mb, reduce(a, mb))
	default:
		want := apply(in, a, b, m)
		return want.Eq(&c)
	}
}
