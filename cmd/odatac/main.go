// Command odatac compiles OData filter trees into aliased criteria and SQL.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/odatacriteria/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(cli.GetExitCode(err))
}
