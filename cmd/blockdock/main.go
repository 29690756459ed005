package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blockdock/internal/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
