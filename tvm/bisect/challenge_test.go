package bisect

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/bitsnark/tracevm/tvm/merkle"
	"github.com/bitsnark/tracevm/tvm/vm"
)

// play runs a challenge of verifier against prover to the end.
func play(t *testing.T, verifier, prover *Bisector, c Committer) *Challenge {
	ch := NewChallenge(verifier, c)
	initial, err := prover.Digest(0, c)
	require.NoError(t, err)
	agreed, err := ch.Open(initial)
	require.NoError(t, err)
	if !agreed {
		return ch
	}
	for rounds := 0; !ch.Done(); rounds++ {
		require.Less(t, rounds, verifier.Iterations())
		disclosed, err := prover.Disclose(ch.Path(), c)
		require.NoError(t, err)
		_, err = ch.Narrow(disclosed)
		require.NoError(t, err)
	}
	require.Len(t, ch.Path(), verifier.Iterations())
	return ch
}

// firstDifference replays both programs and returns the first line whose
// target register ends up with different values.
func firstDifference(t *testing.T, a, b *vm.Program) uint64 {
	ra, err := vm.Load(a)
	require.NoError(t, err)
	rb, err := vm.Load(b)
	require.NoError(t, err)
	for line := uint64(0); line < a.Len(); line++ {
		ra.Execute(line)
		rb.Execute(line)
		target := a.Instruction(line).Target
		if ra.Value(target) != rb.Value(target) {
			return line
		}
	}
	t.Fatal("programs never diverge")
	return 0
}

func TestChallengeTamperedWitness(t *testing.T) {
	c := merkle.NewCommitter(merkle.Keccak)
	honest := chainProgram(t, 5)
	tampered, err := honest.WithWitness(words(6))
	require.NoError(t, err)

	verifier, err := New(honest)
	require.NoError(t, err)
	prover, err := New(tampered)
	require.NoError(t, err)

	t.Run("top level boundaries", func(t *testing.T) {
		lines, err := verifier.LinesForSelectionPath(nil)
		require.NoError(t, err)
		first := -1
		for i, line := range lines {
			h, err := verifier.Digest(line, c)
			require.NoError(t, err)
			d, err := prover.Digest(line, c)
			require.NoError(t, err)
			if h != d && first < 0 {
				first = i
			}
		}
		require.Equal(t, 2, first, "line 30 is the first boundary past the witness")
	})

	ch := play(t, verifier, prover, c)
	line, done := ch.DisputedLine()
	require.True(t, done)
	require.Equal(t, firstDifference(t, honest, tampered), line)
	require.Equal(t, uint64(23), line)
	require.Equal(t, []uint64{2, 2}, ch.Path())
	require.Equal(t, Range{Left: 22, Right: 23}, ch.Range())

	_, err = ch.Narrow(nil)
	require.ErrorIs(t, err, ErrChallengeDone)
	_, err = ch.Lines()
	require.ErrorIs(t, err, ErrChallengeDone)
}

func TestChallengeBranching(t *testing.T) {
	c := merkle.NewCommitter(merkle.Blake3)
	honest := chainProgram(t, 5)
	tampered, err := honest.WithWitness(words(7))
	require.NoError(t, err)
	for _, n := range []uint64{2, 3, 7, 10, 64} {
		cfg := Config{Branching: n, Width: 64}
		verifier, err := New(honest, WithConfig(cfg))
		require.NoError(t, err)
		prover, err := New(tampered, WithConfig(cfg))
		require.NoError(t, err)
		ch := play(t, verifier, prover, c)
		line, _ := ch.DisputedLine()
		require.Equal(t, uint64(23), line, "branching %d", n)
	}
}

func TestChallengeFalseSuccess(t *testing.T) {
	// the prover claims success for a witness that fails the final check
	c := merkle.NewCommitter(merkle.Keccak)
	failing := chainProgram(t, 9)
	r, err := vm.Load(failing)
	require.NoError(t, err)
	r.Run()
	require.False(t, r.Success())

	verifier, err := New(failing)
	require.NoError(t, err)
	prover, err := New(chainProgram(t, 5))
	require.NoError(t, err)

	ch := play(t, verifier, prover, c)
	line, done := ch.DisputedLine()
	require.True(t, done)
	require.Equal(t, uint64(23), line)
}

func TestChallengeHonestProver(t *testing.T) {
	// every boundary agrees, so the dispute walks to the terminal line
	c := merkle.NewCommitter(merkle.Keccak)
	p := chainProgram(t, 5)
	verifier, err := New(p)
	require.NoError(t, err)
	prover, err := New(p)
	require.NoError(t, err)
	ch := play(t, verifier, prover, c)
	line, _ := ch.DisputedLine()
	require.Equal(t, verifier.Total(), line)
}

func TestChallengeOpen(t *testing.T) {
	c := merkle.NewCommitter(merkle.Keccak)
	verifier, err := New(chainProgram(t, 5))
	require.NoError(t, err)

	ch := NewChallenge(verifier, c)
	agreed, err := ch.Open(common.Hash{1})
	require.NoError(t, err)
	require.False(t, agreed)
	line, done := ch.DisputedLine()
	require.True(t, done)
	require.Zero(t, line)

	ch = NewChallenge(verifier, c)
	lines, err := ch.Lines()
	require.NoError(t, err)
	_, err = ch.Narrow(make([]common.Hash, len(lines)))
	require.ErrorIs(t, err, ErrNotOpened)
	initial, err := verifier.Digest(0, c)
	require.NoError(t, err)
	agreed, err = ch.Open(initial)
	require.NoError(t, err)
	require.True(t, agreed)
	_, err = ch.Narrow(make([]common.Hash, len(lines)-1))
	require.ErrorIs(t, err, ErrDisclosureCount)
	_, err = ch.Narrow(make([]common.Hash, len(lines)))
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, ch.Path(), "a bad first boundary selects the first range")
	_, err = ch.Open(initial)
	require.ErrorIs(t, err, ErrChallengeStarted)

	d, ok := ch.Disclosed(10)
	require.True(t, ok)
	require.Equal(t, common.Hash{}, d)
}

func TestChallengeSingleInstruction(t *testing.T) {
	b := vm.NewBuilder(uint256.Int{}, words(0), nil)
	b.AssertOne(b.Hardcoded(0))
	p, err := b.Build()
	require.NoError(t, err)
	bis, err := New(p)
	require.NoError(t, err)

	ch := NewChallenge(bis, merkle.NewCommitter(merkle.Keccak))
	require.True(t, ch.Done())
	agreed, err := ch.Open(common.Hash{})
	require.NoError(t, err)
	require.False(t, agreed)
	line, _ := ch.DisputedLine()
	require.Zero(t, line)
}
