package adb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mobile-next/touchbridge/utils"
)

// Client implements Transport and Restarter for one device serial.
type Client struct {
	adbPath string
	serial  string
}

func NewClient(adbPath, serial string) *Client {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &Client{adbPath: adbPath, serial: serial}
}

func (c *Client) Serial() string {
	return c.serial
}

func (c *Client) deviceArgs(args ...string) []string {
	if c.serial == "" {
		return args
	}
	return append([]string{"-s", c.serial}, args...)
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.adbPath, args...)
	utils.Verbose("Running: %s %s", c.adbPath, strings.Join(args, " "))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, &TransientIOError{
			Command: strings.Join(args, " "),
			Output:  strings.TrimSpace(string(output)),
			Err:     err,
		}
	}
	return output, nil
}

// Execute uses exec-out so binary output such as screencap is not mangled by a pty.
func (c *Client) Execute(ctx context.Context, command string, args ...string) (io.ReadCloser, error) {
	cmdArgs := c.deviceArgs(append([]string{"exec-out", command}, args...)...)
	cmd := exec.CommandContext(ctx, c.adbPath, cmdArgs...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout for %s: %w", command, err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	utils.Verbose("Streaming: %s %s", c.adbPath, strings.Join(cmdArgs, " "))
	if err := cmd.Start(); err != nil {
		return nil, &TransientIOError{Command: strings.Join(cmdArgs, " "), Err: err}
	}

	return &commandStream{ReadCloser: stdout, ctx: ctx, cmd: cmd, stderr: &stderr}, nil
}

func (c *Client) ExecuteAndReadText(ctx context.Context, command string, args ...string) (string, error) {
	output, err := c.run(ctx, c.deviceArgs(append([]string{"shell", command}, args...)...)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(string(output), "\r\n", "\n")), nil
}

func (c *Client) ExecuteAndReadLines(ctx context.Context, command string, args ...string) ([]string, error) {
	output, err := c.run(ctx, c.deviceArgs(append([]string{"shell", command}, args...)...)...)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

// Restart bounces the adb server. Every device connection drops while it restarts.
func (c *Client) Restart(ctx context.Context) error {
	if _, err := c.run(ctx, "kill-server"); err != nil {
		utils.Verbose("adb kill-server failed, starting anyway: %v", err)
	}
	return c.startServer(ctx)
}

// startServer runs the adb server outside our process group so a Ctrl-C in
// the terminal does not take it down with us.
func (c *Client) startServer(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.adbPath, "start-server")
	utils.ConfigureDetachedProcAttr(cmd)
	utils.Verbose("Running: %s start-server", c.adbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to start adb server: %w", &TransientIOError{
			Command: "start-server",
			Output:  strings.TrimSpace(string(output)),
			Err:     err,
		})
	}
	return nil
}

func (c *Client) WaitForInitialized(ctx context.Context) error {
	if _, err := c.run(ctx, c.deviceArgs("wait-for-device")...); err != nil {
		return fmt.Errorf("device %s did not come back: %w", c.serial, err)
	}
	return nil
}

type commandStream struct {
	io.ReadCloser
	ctx     context.Context
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	drained bool
}

func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if err == io.EOF {
		s.drained = true
	}
	return n, err
}

// Close releases the pipe and reaps the process. A non-zero exit is a
// TransientIOError unless the command was killed because its context ended
// or cut short because the caller stopped reading before EOF.
func (s *commandStream) Close() error {
	_ = s.ReadCloser.Close()
	err := s.cmd.Wait()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && (s.ctx.Err() != nil || !s.drained) {
		return nil
	}

	return &TransientIOError{
		Command: strings.Join(s.cmd.Args[1:], " "),
		Output:  strings.TrimSpace(s.stderr.String()),
		Err:     err,
	}
}
