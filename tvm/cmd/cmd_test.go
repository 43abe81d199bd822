package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/bisect"
	"github.com/bitsnark/tracevm/tvm/merkle"
	"github.com/bitsnark/tracevm/tvm/store"
	"github.com/bitsnark/tracevm/tvm/vm"
)

// testProgram adds one 35 times over a small field, the witness entering at
// instruction 23, and then checks the total.
func testProgram(t *testing.T, witness uint64) *vm.Program {
	b := vm.NewBuilder(*uint256.NewInt(101), []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(40)}, []uint256.Int{*uint256.NewInt(witness)})
	x := b.Hardcoded(0)
	for i := 0; i < 35; i++ {
		if i == 23 {
			x = b.AddMod(x, b.Witness(0))
		} else {
			x = b.AddMod(x, b.Hardcoded(0))
		}
	}
	b.AssertEqual(x, b.Hardcoded(1))
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func writeProgram(t *testing.T, p *vm.Program) string {
	data, err := json.Marshal(p)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "program.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runApp(t *testing.T, args ...string) []byte {
	var out bytes.Buffer
	app := &cli.App{
		Name:      "tvm",
		Writer:    &out,
		ErrWriter: io.Discard,
		Commands:  []*cli.Command{RunCommand, LinesCommand, CommitCommand, ArgumentCommand, RefuteCommand},
	}
	require.NoError(t, app.Run(append([]string{"tvm"}, args...)))
	return out.Bytes()
}

func TestParsePath(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []uint64
		err  bool
	}{
		{in: "", want: nil},
		{in: "3", want: []uint64{3}},
		{in: "3, 1,0", want: []uint64{3, 1, 0}},
		{in: "3,,1", err: true},
		{in: "-1", err: true},
		{in: "x", err: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePath(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRunCommand(t *testing.T) {
	require.Equal(t, "true\n", string(runApp(t, "run", "--program", writeProgram(t, testProgram(t, 5)), "--info-every", "10")))
	require.Equal(t, "false\n", string(runApp(t, "run", "--program", writeProgram(t, testProgram(t, 6)))))
	// the failing check is the last instruction
	require.Equal(t, "true\n", string(runApp(t, "run", "--program", writeProgram(t, testProgram(t, 6)), "--stop", "30")))
}

func TestLinesCommand(t *testing.T) {
	path := writeProgram(t, testProgram(t, 5))

	var out LinesOutput
	require.NoError(t, json.Unmarshal(runApp(t, "lines", "--program", path, "--path", "3"), &out))
	require.Equal(t, uint64(30), out.Left)
	require.Equal(t, uint64(40), out.Right)
	require.Equal(t, []uint64{31, 32, 33, 34, 35, 36, 37, 38, 39}, out.Lines)
	require.Nil(t, out.Disputed)

	require.NoError(t, json.Unmarshal(runApp(t, "lines", "--program", path, "--path", "2,2"), &out))
	require.NotNil(t, out.Disputed)
	require.Equal(t, uint64(23), *out.Disputed)

	require.NoError(t, json.Unmarshal(runApp(t, "lines", "--program", path, "--branching", "2"), &out))
	require.Equal(t, uint64(64), out.Right)
	require.Equal(t, []uint64{32}, out.Lines)
}

func TestCommitCommand(t *testing.T) {
	p := testProgram(t, 5)
	path := writeProgram(t, p)
	b, err := bisect.New(p)
	require.NoError(t, err)

	for _, hash := range []string{"keccak", "blake3"} {
		h, err := merkle.HasherByName(hash)
		require.NoError(t, err)
		want, err := b.Disclose(nil, merkle.NewCommitter(h))
		require.NoError(t, err)

		var out []CommitmentOutput
		require.NoError(t, json.Unmarshal(runApp(t, "commit", "--program", path, "--path", "", "--hash", hash), &out))
		require.Len(t, out, len(want))
		for i := range out {
			require.Equal(t, uint64(10*(i+1)), out[i].Line)
			require.Equal(t, want[i], out[i].Digest)
		}
	}

	var out []CommitmentOutput
	require.NoError(t, json.Unmarshal(runApp(t, "commit", "--program", path, "--line", "30"), &out))
	require.Len(t, out, 1)
	require.Len(t, out[0].Registers, 2)
	require.Equal(t, int64(35), out[0].Registers[0].Value.ToInt().Int64())

	t.Run("datadir", func(t *testing.T) {
		dir := t.TempDir()
		output := filepath.Join(t.TempDir(), "commit.json")
		runApp(t, "commit", "--program", path, "--line", "42", "--datadir", dir, "--output", output)
		_, err := os.Stat(output)
		require.NoError(t, err)

		s, err := store.Open(dir, true)
		require.NoError(t, err)
		defer s.Close()
		lines, err := s.Lines(p.Hash())
		require.NoError(t, err)
		require.Equal(t, []uint64{42}, lines)
	})
}

func TestArgumentAndRefute(t *testing.T) {
	honest := testProgram(t, 5)
	tampered := testProgram(t, 6)
	honestPath := writeProgram(t, honest)
	c := merkle.NewCommitter(merkle.Keccak)

	verifier, err := bisect.New(honest)
	require.NoError(t, err)
	prover, err := bisect.New(tampered)
	require.NoError(t, err)
	before, err := verifier.Digest(22, c)
	require.NoError(t, err)

	refute := func(arg string, after common.Hash) RefuteOutput {
		var out RefuteOutput
		require.NoError(t, json.Unmarshal(runApp(t, "refute", "--program", honestPath, "--argument", arg,
			"--before", before.Hex(), "--after", after.Hex()), &out))
		return out
	}

	t.Run("honest", func(t *testing.T) {
		arg := filepath.Join(t.TempDir(), "argument.json")
		runApp(t, "argument", "--program", honestPath, "--line", "23", "--output", arg)
		after, err := verifier.Digest(23, c)
		require.NoError(t, err)
		out := refute(arg, after)
		require.Equal(t, RefuteOutput{Line: 23}, out)
	})

	t.Run("tampered witness", func(t *testing.T) {
		arg := filepath.Join(t.TempDir(), "argument.json")
		runApp(t, "argument", "--program", writeProgram(t, tampered), "--line", "23", "--output", arg)
		after, err := prover.Digest(23, c)
		require.NoError(t, err)
		out := refute(arg, after)
		require.True(t, out.Refuted)
		require.Equal(t, "value", out.Kind)
		require.Equal(t, "b", out.Operand)
	})
}
