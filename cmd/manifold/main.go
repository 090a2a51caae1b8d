// Command manifold runs the Anthropic manifold pipeline from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/skosovsky/manifold/cmd/manifold/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRoot().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
