package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mobile-next/touchbridge/cli"
	"github.com/mobile-next/touchbridge/commands"
	"github.com/mobile-next/touchbridge/devices"
)

func main() {
	// sessions are closed on exit so no event monitor outlives us
	registry, err := devices.NewDeviceRegistry(devices.DefaultRegistrySize)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	commands.SetRegistry(registry)

	// SIGINT/SIGTERM cancel the running command; the server shuts down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = cli.Execute(ctx)
	stop()

	registry.CleanupAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
