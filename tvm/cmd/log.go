package cmd

import (
	"fmt"
	"io"
	"strings"

	"log/slog"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// setupLogger installs the command's logger as the default, so the library
// packages log through it too.
func setupLogger(ctx *cli.Context) (log.Logger, error) {
	lvl, err := parseLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	l := Logger(ctx.App.ErrWriter, lvl)
	log.SetDefault(l)
	return l, nil
}

// Digits lazily formats a long word for log lines, keeping the ends.
type Digits string

func (d Digits) String() string {
	s := string(d)
	if len(s) <= 18 {
		return s
	}
	return s[:10] + ".." + s[len(s)-6:]
}

func (d Digits) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
