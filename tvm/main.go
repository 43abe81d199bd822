package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bitsnark/tracevm/tvm/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "tvm"
	app.Usage = "Bisection tool for disputed trace executions"
	app.Description = "Replays arithmetized programs, computes state commitments and builds or checks the argument for a disputed line"
	app.Commands = []*cli.Command{
		cmd.RunCommand,
		cmd.LinesCommand,
		cmd.CommitCommand,
		cmd.ArgumentCommand,
		cmd.RefuteCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
			os.Exit(1)
		}
	}
}
