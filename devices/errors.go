package devices

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTouchInput is terminal: no input device with absolute axes showed
	// up, even after restarting the transport.
	ErrNoTouchInput = errors.New("no touch input device found")

	ErrDisplayQuery = errors.New("display size query failed")
)

// DisplayQueryError carries the `wm size` output that could not be read.
type DisplayQueryError struct {
	Output string
	Err    error
}

func (e *DisplayQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to read display size from %q: %v", e.Output, e.Err)
	}
	return fmt.Sprintf("failed to read display size from %q", e.Output)
}

func (e *DisplayQueryError) Unwrap() error {
	return e.Err
}

func (e *DisplayQueryError) Is(target error) bool {
	return target == ErrDisplayQuery
}
