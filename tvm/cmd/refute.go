package cmd

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/bisect"
	"github.com/bitsnark/tracevm/tvm/merkle"
)

type RefuteOutput struct {
	Line    uint64 `json:"line"`
	Refuted bool   `json:"refuted"`
	Kind    string `json:"kind,omitempty"`
	Operand string `json:"operand,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

func parseDigest(flag, s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid --%s digest %q", flag, s)
	}
	return common.BytesToHash(b), nil
}

func Refute(ctx *cli.Context) error {
	l, err := setupLogger(ctx)
	if err != nil {
		return err
	}
	before, err := parseDigest(BeforeFlag.Name, ctx.String(BeforeFlag.Name))
	if err != nil {
		return err
	}
	after, err := parseDigest(AfterFlag.Name, ctx.String(AfterFlag.Name))
	if err != nil {
		return err
	}
	h, err := merkle.HasherByName(ctx.String(HashFlag.Name))
	if err != nil {
		return err
	}
	arg, err := jsonutil.LoadJSON[bisect.Argument](ctx.Path(ArgumentFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load argument: %w", err)
	}
	b, closer, err := loadBisector(ctx, l)
	if err != nil {
		return err
	}
	defer closer()

	ref, bad, err := b.Refute(arg, before, after, h)
	if err != nil {
		return err
	}
	out := &RefuteOutput{Line: arg.Line, Refuted: bad}
	if bad {
		out.Kind = ref.Kind.String()
		out.Operand = ref.Operand
		if ref.Kind == bisect.RefuteHash {
			out.Index = &ref.Index
		}
		l.Info("Argument refuted", "line", arg.Line, "refutation", ref)
	} else {
		l.Info("Argument holds", "line", arg.Line)
	}
	if err := writeOutput(ctx, out); err != nil {
		return fmt.Errorf("failed to write refutation: %w", err)
	}
	return nil
}

var RefuteCommand = &cli.Command{
	Name:        "refute",
	Usage:       "Check a prover's argument",
	Description: "Check a prover's argument for a disputed line against the agreed digest before it and the prover's digest after it.",
	Action:      Refute,
	Flags:       append([]cli.Flag{ArgumentFlag, BeforeFlag, AfterFlag, HashFlag, OutputFlag}, bisectorFlags...),
}
