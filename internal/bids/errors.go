package bids

import (
	"errors"
	"fmt"
)

// Error is returned when a dataset cannot be read.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Err     error
}

// ErrorCode categorizes dataset errors.
type ErrorCode string

const (
	// ErrCodeNotDataset: the directory has no dataset_description.json.
	ErrCodeNotDataset ErrorCode = "NOT_DATASET"

	// ErrCodeNoRecording: no recording matches the selector.
	ErrCodeNoRecording ErrorCode = "NO_RECORDING"

	// ErrCodeAmbiguousRecording: more than one recording matches.
	ErrCodeAmbiguousRecording ErrorCode = "AMBIGUOUS_RECORDING"

	// ErrCodeInvalidSidecar: the JSON sidecar is missing or incomplete.
	ErrCodeInvalidSidecar ErrorCode = "INVALID_SIDECAR"

	// ErrCodeInvalidTable: the recording table cannot be parsed.
	ErrCodeInvalidTable ErrorCode = "INVALID_TABLE"

	// ErrCodeUnknownChannel: the requested column does not exist.
	ErrCodeUnknownChannel ErrorCode = "UNKNOWN_CHANNEL"
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is a dataset *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
