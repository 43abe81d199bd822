package vm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomWord(rng *rand.Rand) (out U256) {
	for i := range out {
		out[i] = rng.Uint64()
	}
	return
}

func TestCheckAgreesWithApply(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ops := []Instruction{
		AddMod(0, 0, 0), SubMod(0, 0, 0), MulMod(0, 0, 0), DivMod(0, 0, 0),
		AndBit(0, 0, 0, 3), AndNotBit(0, 0, 0, 200), And(0, 0, 0), Or(0, 0, 0),
		Not(0, 0), Equal(0, 0, 0), Mov(0, 0), AssertOne(0, 0), AssertZero(0, 0),
	}
	moduli := []U256{DefaultModulus, word(7), word(1 << 32)}
	for _, in := range ops {
		t.Run(in.Op.String(), func(t *testing.T) {
			for _, m := range moduli {
				for i := 0; i < 50; i++ {
					a, b := randomWord(rng), randomWord(rng)
					switch i % 5 {
					case 0:
						b = U256{}
					case 1:
						a = word(1)
					case 2:
						a.Mod(&a, &m)
						b.Mod(&b, &m)
					}
					c := apply(in, a, b, m)
					d := Aux(in, m, a, b, c)
					require.True(t, Check(in, m, a, b, c, d), "%s a=%s b=%s m=%s", in.Op, a.Hex(), b.Hex(), m.Hex())

					var wrong U256
					wrong.AddUint64(&c, 1)
					if in.Op.NeedsAux() {
						wrong.Mod(&wrong, &m)
					}
					if wrong != c {
						require.False(t, Check(in, m, a, b, wrong, d), "%s accepted a wrong result", in.Op)
					}
				}
			}
		})
	}
}

func TestCheckAux(t *testing.T) {
	m := word(7)
	t.Run("mulmod quotient", func(t *testing.T) {
		in := MulMod(0, 0, 0)
		c := apply(in, word(4), word(5), m)
		d := Aux(in, m, word(4), word(5), c)
		require.Equal(t, word(2), d)
		require.False(t, Check(in, m, word(4), word(5), c, word(3)))
	})
	t.Run("mulmod unreduced result", func(t *testing.T) {
		in := MulMod(0, 0, 0)
		// 20 = 1*7 + 13 also balances, but 13 is not reduced
		require.False(t, Check(in, m, word(4), word(5), word(13), word(1)))
	})
	t.Run("divmod quotient", func(t *testing.T) {
		in := DivMod(0, 0, 0)
		c := apply(in, word(6), word(3), m)
		require.Equal(t, word(2), c)
		d := Aux(in, m, word(6), word(3), c)
		require.True(t, Check(in, m, word(6), word(3), c, d))
		require.False(t, Check(in, m, word(6), word(3), word(9), d))
	})
	t.Run("divmod no inverse", func(t *testing.T) {
		in := DivMod(0, 0, 0)
		require.True(t, Check(in, m, word(6), word(0), U256{}, U256{}))
		require.False(t, Check(in, m, word(6), word(0), word(1), U256{}))
		require.Equal(t, U256{}, Aux(in, m, word(6), word(14), U256{}))
	})
}
