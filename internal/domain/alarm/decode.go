package alarm

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMissingField is wrapped by DecodeError when a required field is absent or null.
var ErrMissingField = errors.New("missing required field")

// DecodeError reports a line that could not be decoded into a Status.
type DecodeError struct {
	// Line is the offending input, kept for diagnostics.
	Line string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode status %q: %v", e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// wireStatus mirrors Status with pointer fields so absent keys can be told apart from zero values.
type wireStatus struct {
	Armed  *bool    `json:"armed"`
	Active *bool    `json:"active"`
	Temp   *float64 `json:"temp"`
}

// DecodeStatus parses one complete line into a Status.
// Every field is required; any failure yields a *DecodeError and no Status.
func DecodeStatus(line string) (Status, error) {
	var wire wireStatus
	if err := sonic.UnmarshalString(line, &wire); err != nil {
		return Status{}, &DecodeError{Line: line, Err: err}
	}

	switch {
	case wire.Armed == nil:
		return Status{}, &DecodeError{Line: line, Err: fmt.Errorf("%w: armed", ErrMissingField)}
	case wire.Active == nil:
		return Status{}, &DecodeError{Line: line, Err: fmt.Errorf("%w: active", ErrMissingField)}
	case wire.Temp == nil:
		return Status{}, &DecodeError{Line: line, Err: fmt.Errorf("%w: temp", ErrMissingField)}
	}

	return Status{
		Armed:  *wire.Armed,
		Active: *wire.Active,
		Temp:   *wire.Temp,
	}, nil
}
