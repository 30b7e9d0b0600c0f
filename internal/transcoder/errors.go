package transcoder

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTask indicates the caller asked for a task this worker does not run.
	ErrUnknownTask = errors.New("unknown task")

	// ErrInvalidInput indicates a request rejected before any engine call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEncodeFailed matches every *EncodeError via errors.Is.
	ErrEncodeFailed = errors.New("encode failed")
)

// diagnosticLines is how much of the engine's stderr is folded into messages.
const diagnosticLines = 8

// EncodeError is the fatal outcome of a single encode: the software plan
// (or the only plan) failed.
type EncodeError struct {
	Stage       Stage
	Hardware    bool
	Diagnostics string
	Err         error
}

func (e *EncodeError) Error() string {
	path := "software"
	if e.Hardware {
		path = "hardware"
	}
	msg := fmt.Sprintf("%s %s encoding failed: %v", e.Stage, path, e.Err)
	if d := excerpt(e.Diagnostics, diagnosticLines); d != "" {
		msg += ": " + d
	}
	return msg
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func (e *EncodeError) Is(target error) bool {
	return target == ErrEncodeFailed
}

// StageError wraps a failure of one boomerang stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("boomerang %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
