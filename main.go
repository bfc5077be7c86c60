package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"orgsync-api/core/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("Main:Execute:Error", "error", err)
		stop()
		os.Exit(1)
	}
}
