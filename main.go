package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctfwatch/ctfwatch/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.New().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
