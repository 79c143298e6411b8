// Package adb talks to Android devices through the adb binary.
package adb

import (
	"context"
	"io"
)

// Transport executes commands on a single device.
type Transport interface {
	// Execute runs command and streams its raw stdout. Closing the stream
	// waits for the command to finish.
	Execute(ctx context.Context, command string, args ...string) (io.ReadCloser, error)
	ExecuteAndReadLines(ctx context.Context, command string, args ...string) ([]string, error)
	ExecuteAndReadText(ctx context.Context, command string, args ...string) (string, error)
}

// Restarter is implemented by transports that can bounce the adb server.
type Restarter interface {
	Restart(ctx context.Context) error
	WaitForInitialized(ctx context.Context) error
}
