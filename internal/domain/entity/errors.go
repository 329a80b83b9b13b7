package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned, wrapped with detail, before any frame is read.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrNotFound is returned by repositories when no record matches the requested key.
var ErrNotFound = errors.New("not found")

// DecodeError reports that the frame source failed. LastFrame is the index of the last
// frame processed successfully, or -1 when none was.
type DecodeError struct {
	LastFrame int
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error after frame %d: %v", e.LastFrame, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const (
	ErrorKindInvalidConfiguration = "invalid_configuration"
	ErrorKindDecode               = "decode_error"
	ErrorKindInternal             = "internal"
)

// ErrorKind classifies err for status messages and exit codes.
func ErrorKind(err error) string {
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return ErrorKindInvalidConfiguration
	case errors.As(err, &decodeErr):
		return ErrorKindDecode
	default:
		return ErrorKindInternal
	}
}
