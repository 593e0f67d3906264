// Command wikirag answers questions from an indexed Wikipedia corpus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/wikirag/internal/adapters/driving/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBootstrap(build)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
