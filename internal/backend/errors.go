package backend

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ControlError.
var (
	ErrUnavailable  = errors.New("backend unavailable")
	ErrRejected     = errors.New("request rejected by backend")
	ErrNotConnected = errors.New("remote not connected")
	ErrClosed       = errors.New("backend closed")
	ErrOutOfRange   = errors.New("index out of range")
)

// ControlError is returned by a failed control call.
type ControlError struct {
	Source Source
	Op     string
	Err    error
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", e.Source, e.Op, e.Err)
}

func (e *ControlError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a ControlError for op on src.
func Fail(src Source, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ControlError
	if errors.As(err, &ce) {
		return err
	}
	return &ControlError{Source: src, Op: op, Err: err}
}
