package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/ledgersync/internal/adapters/driving/cli"
	"github.com/custodia-labs/ledgersync/internal/app"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, app.Bootstrap, version); err != nil {
		stop()
		os.Exit(1)
	}
}
