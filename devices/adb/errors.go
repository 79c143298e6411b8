package adb

import (
	"errors"
	"fmt"
)

// ErrTransient marks a single failed command. Callers retry it with a bounded count.
var ErrTransient = errors.New("transient adb i/o error")

type TransientIOError struct {
	Command string
	Output  string
	Err     error
}

func (e *TransientIOError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("adb command %q failed: %v\nOutput: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("adb command %q failed: %v", e.Command, e.Err)
}

func (e *TransientIOError) Unwrap() error {
	return e.Err
}

func (e *TransientIOError) Is(target error) bool {
	return target == ErrTransient
}
