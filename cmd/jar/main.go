package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"empty-jar/internal/cli"
	"empty-jar/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(config.LoadClient())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "jar:", err)
		os.Exit(1)
	}
}
