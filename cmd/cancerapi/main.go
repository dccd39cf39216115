// Command cancerapi trains and serves the breast cancer classifier.
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
	err := cli.NewCancerAPICommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.GetLogger().Error("cancerapi failed", err)
		os.Exit(1)
	}
}
