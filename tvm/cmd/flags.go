package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/bisect"
)

var (
	ProgramFlag = &cli.PathFlag{
		Name:      "program",
		Usage:     "path of the program JSON, optionally gzipped",
		TakesFile: true,
		Required:  true,
	}
	BranchingFlag = &cli.Uint64Flag{
		Name:  "branching",
		Usage: "number of sub-ranges each round splits into",
		Value: bisect.DefaultConfig.Branching,
	}
	WidthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "number of values in a state commitment",
		Value: bisect.DefaultConfig.Width,
	}
	DataDirFlag = &cli.PathFlag{
		Name:  "datadir",
		Usage: "directory of the commitment store. Commitments are recomputed if left empty.",
	}
	HashFlag = &cli.StringFlag{
		Name:  "hash",
		Usage: "commitment hash: keccak or blake3",
		Value: "keccak",
	}
	LineFlag = &cli.Uint64Flag{
		Name:  "line",
		Usage: "trace line",
	}
	PathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "comma separated selection path, e.g. 3,1. Empty selects the whole trace.",
	}
	OutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "path to write JSON output to. Stdout if '-', nothing if empty.",
		TakesFile: true,
		Value:     "-",
	}
	StopFlag = &cli.Uint64Flag{
		Name:  "stop",
		Usage: "stop the replay after this line",
	}
	InfoEveryFlag = &cli.Uint64Flag{
		Name:  "info-every",
		Usage: "log progress every this many lines",
		Value: 1_000_000,
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "enable CPU profiling, written to the working directory",
	}
	ArgumentFlag = &cli.PathFlag{
		Name:      "argument",
		Usage:     "path of the argument JSON to check",
		TakesFile: true,
		Required:  true,
	}
	BeforeFlag = &cli.StringFlag{
		Name:     "before",
		Usage:    "agreed digest of the commitment before the disputed line",
		Required: true,
	}
	AfterFlag = &cli.StringFlag{
		Name:     "after",
		Usage:    "prover's digest of the commitment after the disputed line",
		Required: true,
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "log level: trace, debug, info, warn, error or crit",
		Value: "info",
	}
)

var bisectorFlags = []cli.Flag{ProgramFlag, BranchingFlag, WidthFlag, DataDirFlag, LogLevelFlag}

// ParsePath parses a comma separated selection path.
func ParsePath(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	path := make([]uint64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q at depth %d: %w", part, i, err)
		}
		path[i] = v
	}
	return path, nil
}
