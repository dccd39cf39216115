// Command popline runs the Spotify popularity pipeline stages.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/popforest/internal/cli"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewPoplineCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.GetLogger().Error("popline failed", err)
		os.Exit(1)
	}
}
