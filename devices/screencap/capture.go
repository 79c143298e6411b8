package screencap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mobile-next/touchbridge/utils"
)

const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 100 * time.Millisecond
)

var ErrCapture = errors.New("screen capture failed")

// CaptureError is returned once every attempt has failed. Err is the last
// failure, or nil if none was recorded.
type CaptureError struct {
	Attempts int
	Err      error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("screen capture failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("screen capture failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

func (e *CaptureError) Is(target error) bool {
	return target == ErrCapture
}

type Executor interface {
	Execute(ctx context.Context, command string, args ...string) (io.ReadCloser, error)
}

// Capturer grabs frames with `screencap`, retrying transient failures.
type Capturer struct {
	exec       Executor
	attempts   int
	retryDelay time.Duration
}

func NewCapturer(exec Executor, attempts int, retryDelay time.Duration) *Capturer {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if retryDelay < 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Capturer{exec: exec, attempts: attempts, retryDelay: retryDelay}
}

func (c *Capturer) captureOnce(ctx context.Context) (*Frame, error) {
	stream, err := c.exec.Execute(ctx, "screencap")
	if err != nil {
		return nil, err
	}

	frame, err := Decode(stream)
	closeErr := stream.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return frame, nil
}

// CaptureFrame returns a freshly decoded frame. A cancelled context stops the
// retries and its error is returned as is.
func (c *Capturer) CaptureFrame(ctx context.Context) (*Frame, error) {
	var frame *Frame
	var lastErr error
	attempt := 0

	operation := func() error {
		attempt++
		f, err := c.captureOnce(ctx)
		if err != nil {
			lastErr = err
			return err
		}
		frame = f
		return nil
	}

	notify := func(err error, next time.Duration) {
		utils.Verbose("screencap attempt %d/%d failed, retrying in %s: %v", attempt, c.attempts, next, err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.attempts-1)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &CaptureError{Attempts: attempt, Err: lastErr}
	}

	return frame, nil
}
