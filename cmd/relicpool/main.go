// Command relicpool operates a collectible forge pool stored in a local data
// directory.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/bitfsorg/relicpool-go/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.DisableLockTimeout()
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		format, _ := cmd.PersistentFlags().GetString("format")
		out := &cli.OutputFormatter{Format: format, Writer: os.Stderr}
		if format == "json" {
			out.Writer = os.Stdout
		}
		_ = out.Error(err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
