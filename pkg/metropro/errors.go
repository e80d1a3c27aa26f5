package metropro

import (
	"errors"
	"fmt"
)

var (
	ErrNoPhase              = errors.New("metropro: measurement has no phase data")
	ErrUnsupportedExtension = errors.New("metropro: unsupported file extension")
	ErrContainerFormat      = errors.New("metropro: .datx container files are not handled by the binary decoder")
)

// FormatError reports bytes or header values that do not describe a
// readable measurement: an unknown identity triple, an unknown phase
// resolution code, or a crop window that does not fit the camera frame.
type FormatError struct {
	// Field names the header field at fault
	Field string

	// Offset is the field's byte offset in the header, or -1
	Offset int

	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("metropro: field %s (offset %d): %s", e.Field, e.Offset, e.Reason)
	}
	return fmt.Sprintf("metropro: field %s: %s", e.Field, e.Reason)
}

// TruncatedDataError reports a block whose declared span runs past the end
// of the file.
type TruncatedDataError struct {
	// Block is "header", "intensity" or "phase"
	Block  string
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("metropro: %s block at offset %d needs %d bytes, only %d available",
		e.Block, e.Offset, e.Need, e.Have)
}

// formatError builds a FormatError carrying the field's table offset when
// the field is known.
func formatError(name, format string, args ...any) *FormatError {
	off, ok := FieldOffset(name)
	if !ok {
		off = -1
	}
	return &FormatError{Field: name, Offset: off, Reason: fmt.Sprintf(format, args...)}
}
