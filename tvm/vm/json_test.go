package vm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const savedSumOfSquares = `{
	"hardcoded": ["19"],
	"witness": ["3", "0x4"],
	"registers": 8,
	"successIndex": 3,
	"programLength": 5,
	"program": [
		{"name": "MULMOD", "target": 4, "param1": 1, "param2": 1},
		{"name": "MULMOD", "target": 5, "param1": 2, "param2": 2},
		{"name": "ADDMOD", "target": 6, "param1": 4, "param2": 5},
		{"name": "EQUAL", "target": 7, "param1": 6, "param2": 0},
		{"name": "ASSERTONE", "target": 3, "param1": 7}
	]
}`

func TestLoadProgram(t *testing.T) {
	var p Program
	require.NoError(t, json.Unmarshal([]byte(savedSumOfSquares), &p))
	require.Equal(t, uint64(5), p.Len())
	require.Equal(t, DefaultModulus, p.Modulus())
	require.Equal(t, words(25), p.Hardcoded())
	require.Equal(t, words(3, 4), p.Witness())
	require.Equal(t, AssertOne(3, 7), p.Instruction(4), "implicit success operand")

	built := sumOfSquares(t, 3, 4)
	require.Equal(t, built.Hash(), p.Hash())

	r, err := Load(&p)
	require.NoError(t, err)
	r.Run()
	require.True(t, r.Success())
}

func TestSaveProgram(t *testing.T) {
	p := sumOfSquares(t, 3, 4)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotContains(t, raw, "modulus", "default modulus is implicit")
	require.EqualValues(t, 5, raw["programLength"])

	var loaded Program
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Equal(t, p.Hash(), loaded.Hash())

	t.Run("custom modulus", func(t *testing.T) {
		b := NewBuilder(word(97), words(2), nil)
		b.AssertOne(b.DivMod(b.Hardcoded(0), b.Hardcoded(0)))
		q, err := b.Build()
		require.NoError(t, err)
		data, err := json.Marshal(q)
		require.NoError(t, err)
		require.Contains(t, string(data), `"modulus":"0x61"`)

		var loaded Program
		require.NoError(t, json.Unmarshal(data, &loaded))
		require.Equal(t, word(97), loaded.Modulus())
		require.Equal(t, q.Hash(), loaded.Hash())
	})
	t.Run("bit operand", func(t *testing.T) {
		b := NewBuilder(U256{}, words(6, 1), nil)
		b.AssertOne(b.AndBit(b.Hardcoded(0), b.Hardcoded(1), 2))
		q, err := b.Build()
		require.NoError(t, err)
		data, err := json.Marshal(q)
		require.NoError(t, err)
		require.Contains(t, string(data), `"bit":2`)

		var loaded Program
		require.NoError(t, json.Unmarshal(data, &loaded))
		require.Equal(t, uint8(2), loaded.Instruction(0).Bit)
	})
}

func TestLoadProgramErrors(t *testing.T) {
	load := func(program string) error {
		var p Program
		return json.Unmarshal([]byte(`{"hardcoded":["1"],"witness":[],"registers":4,"successIndex":1,"program":[`+program+`]}`), &p)
	}
	for _, tc := range []struct {
		name     string
		program  string
		expected error
	}{
		{"unknown opcode", `{"name":"XORMOD","target":2,"param1":0,"param2":0}`, ErrUnknownOpcode},
		{"missing param2", `{"name":"ADDMOD","target":2,"param1":0}`, ErrMissingOperand},
		{"missing param1", `{"name":"MOV","target":2}`, ErrMissingOperand},
		{"missing target", `{"name":"MOV","param1":0}`, ErrMissingOperand},
		{"param2 on unary", `{"name":"NOT","target":2,"param1":0,"param2":0}`, ErrUnexpectedOperand},
		{"bit on addmod", `{"name":"ADDMOD","target":2,"param1":0,"param2":0,"bit":1}`, ErrUnexpectedOperand},
		{"bit too large", `{"name":"ANDBIT","target":2,"param1":0,"param2":0,"bit":256}`, ErrUnexpectedOperand},
		{"dangling", `{"name":"MOV","target":2,"param1":12}`, ErrDanglingRegister},
		{"empty", ``, ErrEmptyProgram},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, load(tc.program), tc.expected)
		})
	}

	t.Run("length field", func(t *testing.T) {
		var p Program
		err := json.Unmarshal([]byte(`{"hardcoded":["1"],"witness":[],"registers":3,"successIndex":1,"programLength":2,"program":[{"name":"MOV","target":2,"param1":0}]}`), &p)
		require.ErrorIs(t, err, ErrProgramLengthField)
	})
	t.Run("bad word", func(t *testing.T) {
		var p Program
		err := json.Unmarshal([]byte(`{"hardcoded":["zz"],"witness":[],"registers":3,"successIndex":1,"program":[{"name":"MOV","target":2,"param1":0}]}`), &p)
		require.ErrorContains(t, err, "hardcoded[0]")
	})
	t.Run("negative witness", func(t *testing.T) {
		var p Program
		err := json.Unmarshal([]byte(`{"hardcoded":["1"],"witness":["-0x1"],"registers":4,"successIndex":2,"program":[{"name":"MOV","target":3,"param1":1}]}`), &p)
		require.ErrorContains(t, err, "witness[0]")
	})
}

func TestParseWord(t *testing.T) {
	v, err := ParseWord("0x00ff")
	require.NoError(t, err)
	require.Equal(t, word(255), v)

	_, err = ParseWord("1" + "0000000000000000000000000000000000000000000000000000000000000000")
	require.ErrorContains(t, err, "exceeds 256 bits")

	_, err = ParseWord("")
	require.Error(t, err)

	for _, s := range []string{"-1", "0x-1", "+5", "0X+ff"} {
		_, err := ParseWord(s)
		require.ErrorContains(t, err, "signed", "%q", s)
	}
}
