package cmd

import (
	"encoding/json"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"
)

// writeOutput writes v to the output flag's path, or to the app's writer when
// the path is '-'.
func writeOutput(ctx *cli.Context, v any) error {
	path := ctx.Path(OutputFlag.Name)
	if path != "-" {
		return jsonutil.WriteJSON(path, v, OutFilePerm)
	}
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
