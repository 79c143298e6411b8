package input

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDevice means the capability report has no absolute axes at all.
	ErrUnsupportedDevice = errors.New("device does not report absolute-position axes")

	ErrUnsupportedAxis = errors.New("unsupported axis")

	// ErrUnsupportedOperation is returned for gestures a touchscreen cannot express.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

type UnsupportedAxisError struct {
	Code EventCode
}

func (e *UnsupportedAxisError) Error() string {
	return fmt.Sprintf("unsupported axis %s: only position axes can be remapped", AbsName(e.Code))
}

func (e *UnsupportedAxisError) Is(target error) bool {
	return target == ErrUnsupportedAxis
}

// ParseError describes one capability record that could not be read.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}
