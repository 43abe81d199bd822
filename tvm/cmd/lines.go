package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

type LinesOutput struct {
	Path  []uint64 `json:"path"`
	Left  uint64   `json:"left"`
	Right uint64   `json:"right"`
	Lines []uint64 `json:"lines,omitempty"`
	// Disputed is set once the path is complete.
	Disputed *uint64 `json:"disputed,omitempty"`
}

func Lines(ctx *cli.Context) error {
	l, err := setupLogger(ctx)
	if err != nil {
		return err
	}
	path, err := ParsePath(ctx.String(PathFlag.Name))
	if err != nil {
		return err
	}
	b, closer, err := loadBisector(ctx, l)
	if err != nil {
		return err
	}
	defer closer()

	r, err := b.RangeForSelectionPath(path)
	if err != nil {
		return err
	}
	out := &LinesOutput{Path: path, Left: r.Left, Right: r.Right}
	if out.Path == nil {
		out.Path = []uint64{}
	}
	if len(path) < b.Iterations() {
		if out.Lines, err = b.LinesForSelectionPath(path); err != nil {
			return err
		}
	} else {
		disputed := r.Right
		out.Disputed = &disputed
	}
	if err := writeOutput(ctx, out); err != nil {
		return fmt.Errorf("failed to write lines: %w", err)
	}
	return nil
}

var LinesCommand = &cli.Command{
	Name:        "lines",
	Usage:       "Show the range and probe lines of a selection path",
	Description: "Show the range a selection path narrows to and the lines whose commitments the prover discloses next.",
	Action:      Lines,
	Flags:       append([]cli.Flag{PathFlag, OutputFlag}, bisectorFlags...),
}
