// Package main is the entry point for the tasker CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tasker/internal/cli"
	"tasker/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.NewEnv)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	cancel()
	os.Exit(code)
}
