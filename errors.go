package pointgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pointgo/geo"
)

var (
	// ErrClosed is returned when a builder is used after Close.
	ErrClosed = errors.New("builder is closed")
)

// ErrInvalidBounds indicates index bounds with no usable volume.
//
// The original underlying error (if any) can be accessed via
// errors.Unwrap.
type ErrInvalidBounds struct {
	Bounds geo.Bounds
	cause  error
}

func (e *ErrInvalidBounds) Error() string {
	return fmt.Sprintf("invalid index bounds: %s", e.Bounds)
}

func (e *ErrInvalidBounds) Unwrap() error { return e.cause }

// ErrSourceFailed indicates that ingesting one source failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrSourceFailed struct {
	Origin uint32
	cause  error
}

func (e *ErrSourceFailed) Error() string {
	return fmt.Sprintf("source %d failed: %v", e.Origin, e.cause)
}

func (e *ErrSourceFailed) Unwrap() error { return e.cause }
