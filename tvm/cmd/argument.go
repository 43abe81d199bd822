package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/merkle"
)

func Argument(ctx *cli.Context) error {
	l, err := setupLogger(ctx)
	if err != nil {
		return err
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

	line := ctx.Uint64(LineFlag.Name)
	arg, err := b.MakeArgument(line, h)
	if err != nil {
		return fmt.Errorf("failed to build argument for line %d: %w", line, err)
	}
	l.Info("Built argument", "line", line, "instruction", b.Program().Instruction(line),
		"a", Digits(arg.A.Value.Hex()), "b", Digits(arg.B.Value.Hex()), "c", Digits(arg.C.Value.Hex()))
	if err := writeOutput(ctx, arg); err != nil {
		return fmt.Errorf("failed to write argument: %w", err)
	}
	return nil
}

var ArgumentCommand = &cli.Command{
	Name:        "argument",
	Usage:       "Build the argument for a disputed line",
	Description: "Build the operands, results and inclusion proofs the prover posts for a single disputed instruction.",
	Action:      Argument,
	Flags: append([]cli.Flag{
		&cli.Uint64Flag{Name: LineFlag.Name, Usage: LineFlag.Usage, Required: true},
		HashFlag,
		OutputFlag,
	}, bisectorFlags...),
}
