package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/bisect"
	"github.com/bitsnark/tracevm/tvm/store"
	"github.com/bitsnark/tracevm/tvm/vm"
)

var OutFilePerm = os.FileMode(0o644)

func loadProgram(path string) (*vm.Program, error) {
	p, err := jsonutil.LoadJSON[vm.Program](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load program %q: %w", path, err)
	}
	return p, nil
}

func configFromFlags(ctx *cli.Context) bisect.Config {
	return bisect.Config{
		Branching: ctx.Uint64(BranchingFlag.Name),
		Width:     ctx.Int(WidthFlag.Name),
	}
}

// loadBisector builds the search tree for the program named by the flags. The
// returned closer releases the commitment store, if one was opened.
func loadBisector(ctx *cli.Context, l log.Logger) (*bisect.Bisector, func(), error) {
	p, err := loadProgram(ctx.Path(ProgramFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	opts := []bisect.Option{bisect.WithConfig(configFromFlags(ctx))}
	closer := func() {}
	if dir := ctx.Path(DataDirFlag.Name); dir != "" {
		s, err := store.Open(dir, false)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, bisect.WithStore(s))
		closer = func() {
			if err := s.Close(); err != nil {
				l.Error("failed to close commitment store", "err", err)
			}
		}
	}
	b, err := bisect.New(p, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	l.Info("Loaded program", "hash", p.Hash(), "instructions", p.Len(), "registers", p.RegisterCount(),
		"iterations", b.Iterations(), "total", b.Total())
	return b, closer, nil
}
