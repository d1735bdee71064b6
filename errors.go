package rimg

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers are expected to branch on.
// Everything else is wrapped with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotATTY is returned when stdout is not interactive and no file
	// sink was configured. Emitting raw escape sequences into a pipe is
	// almost never what the caller wants.
	ErrNotATTY = errors.New("standard output is not a tty; refusing to emit escape sequences")

	// ErrUnsupportedCombination is returned when an explicitly forced
	// backend cannot perform a mandatory operation (grid and scroll are
	// unicode-only).
	ErrUnsupportedCombination = errors.New("forced backend is incompatible with the requested operation")

	// ErrInvalidFrame is returned when a decoded frame's dimensions and
	// pixel buffer disagree.
	ErrInvalidFrame = errors.New("frame dimensions do not match pixel buffer")

	// ErrEncodingFailure is returned when a payload could not be framed
	// for the wire, e.g. the sixel encoder errored.
	ErrEncodingFailure = errors.New("failed to encode frame payload")

	// ErrIOFailure is returned when writing to the output sink failed.
	ErrIOFailure = errors.New("write to output sink failed")

	// ErrMissingInput is returned when a render pass is started with no
	// frame sequences.
	ErrMissingInput = errors.New("no input sequences provided")
)

// ioError wraps a sink write failure so callers can distinguish it from
// encoding problems.
func ioError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrIOFailure, err)
}

func encodingError(backend Protocol, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEncodingFailure, backend, err)
}
