package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/vm"
)

func Run(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	l, err := setupLogger(ctx)
	if err != nil {
		return err
	}
	p, err := loadProgram(ctx.Path(ProgramFlag.Name))
	if err != nil {
		return err
	}
	r, err := vm.Load(p)
	if err != nil {
		return err
	}

	end := p.Len() - 1
	if ctx.IsSet(StopFlag.Name) && ctx.Uint64(StopFlag.Name) < end {
		end = ctx.Uint64(StopFlag.Name)
	}
	every := ctx.Uint64(InfoEveryFlag.Name)
	if every == 0 {
		every = p.Len()
	}

	start := time.Now()
	for r.Current() <= end {
		if err := ctx.Context.Err(); err != nil {
			return err
		}
		stop := r.Current() + every - 1
		if stop > end || stop < r.Current() {
			stop = end
		}
		r.Execute(stop)
		delta := time.Since(start)
		l.Info("processing",
			"line", r.Current(),
			"of", p.Len(),
			"ips", float64(r.Current())/(float64(delta)/float64(time.Second)),
			"success", r.Success(),
		)
	}

	l.Info("Replay finished", "lines", r.Current(), "success", r.Success(), "duration", time.Since(start))
	_, err = fmt.Fprintln(ctx.App.Writer, r.Success())
	return err
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Replay a program",
	Description: "Replay a program from its initial registers and print whether every assertion held.",
	Action:      Run,
	Flags: []cli.Flag{
		ProgramFlag,
		StopFlag,
		InfoEveryFlag,
		PProfCPUFlag,
		LogLevelFlag,
	},
}
