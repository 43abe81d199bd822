package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/bisect"
	"github.com/bitsnark/tracevm/tvm/merkle"
)

type LiveRegisterOutput struct {
	Index uint32       `json:"index"`
	Value *hexutil.Big `json:"value"`
}

type CommitmentOutput struct {
	Line      uint64               `json:"line"`
	Digest    common.Hash          `json:"digest"`
	Registers []LiveRegisterOutput `json:"registers"`
}

func commitmentOutput(b *bisect.Bisector, line uint64, c bisect.Committer) (*CommitmentOutput, error) {
	sc, err := b.Commitment(line)
	if err != nil {
		return nil, err
	}
	live, err := sc.LiveRegisters()
	if err != nil {
		return nil, err
	}
	digest, err := sc.Digest(c)
	if err != nil {
		return nil, err
	}
	out := &CommitmentOutput{Line: line, Digest: digest, Registers: make([]LiveRegisterOutput, len(live))}
	for i, r := range live {
		out.Registers[i] = LiveRegisterOutput{Index: uint32(r.Index), Value: (*hexutil.Big)(r.Value.ToBig())}
	}
	return out, nil
}

func Commit(ctx *cli.Context) error {
	l, err := setupLogger(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(LineFlag.Name) == ctx.IsSet(PathFlag.Name) {
		return errors.New("exactly one of --line and --path is required")
	}
	h, err := merkle.HasherByName(ctx.String(HashFlag.Name))
	if err != nil {
		return err
	}
	b, closer, err := loadBisector(ctx, l)
	if err != nil {
		return err
	}
	defer closer()

	var lines []uint64
	if ctx.IsSet(LineFlag.Name) {
		lines = []uint64{ctx.Uint64(LineFlag.Name)}
	} else {
		path, err := ParsePath(ctx.String(PathFlag.Name))
		if err != nil {
			return err
		}
		if lines, err = b.LinesForSelectionPath(path); err != nil {
			return err
		}
	}

	c := merkle.NewCommitter(h)
	out := make([]*CommitmentOutput, len(lines))
	for i, line := range lines {
		if out[i], err = commitmentOutput(b, line, c); err != nil {
			return fmt.Errorf("commitment at line %d: %w", line, err)
		}
		l.Debug("Committed", "line", line, "live", len(out[i].Registers), "digest", out[i].Digest)
	}
	if err := writeOutput(ctx, out); err != nil {
		return fmt.Errorf("failed to write commitments: %w", err)
	}
	return nil
}

var CommitCommand = &cli.Command{
	Name:        "commit",
	Usage:       "Compute state commitments",
	Description: "Compute the live registers and digest of the commitment at --line, or of every probe line of --path.",
	Action:      Commit,
	Flags:       append([]cli.Flag{LineFlag, PathFlag, HashFlag, OutputFlag}, bisectorFlags...),
}
