package physio

import (
	"errors"
	"fmt"
)

// Error is returned by loading, persistence and replay when the failure
// has a meaning a caller can act on. Code identifies the category; the
// optional fields add diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the file involved, if any.
	Path string

	// Attribute names the missing or invalid archive attribute.
	Attribute string

	// Operation is the qualified operation name (replay and registry errors).
	Operation string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedInput: Load was given an input it cannot handle.
	ErrCodeUnsupportedInput ErrorCode = "UNSUPPORTED_INPUT"

	// ErrCodeInvalidArgument: an option or recorded argument has the wrong
	// type or an invalid value.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNotOneDimensional: a plain-text file holds a 2-D table.
	ErrCodeNotOneDimensional ErrorCode = "NOT_ONE_DIMENSIONAL"

	// ErrCodeMissingAttribute: an archive lacks a required attribute.
	ErrCodeMissingAttribute ErrorCode = "MISSING_ATTRIBUTE"

	// ErrCodeCorruptArchive: an archive attribute is present but undecodable.
	ErrCodeCorruptArchive ErrorCode = "CORRUPT_ARCHIVE"

	// ErrCodeMalformedHistory: a history document is not a sequence of
	// [name, arguments] pairs.
	ErrCodeMalformedHistory ErrorCode = "MALFORMED_HISTORY"

	// ErrCodeUnseededReplay: a history's first entry is not a load.
	ErrCodeUnseededReplay ErrorCode = "UNSEEDED_REPLAY"

	// ErrCodeSeedNotFound: the source file of a seed load does not exist.
	ErrCodeSeedNotFound ErrorCode = "SEED_NOT_FOUND"

	// ErrCodeUnknownOperation: no operation is registered under a name.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
)

// Kind groups error codes by who has to fix them.
type Kind string

const (
	// KindCaller: the caller passed something invalid.
	KindCaller Kind = "caller"
	// KindIntegrity: a persisted file is incomplete or refers to data that
	// is no longer there.
	KindIntegrity Kind = "integrity"
)

// Kind returns the category of the code.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrCodeMissingAttribute, ErrCodeCorruptArchive, ErrCodeSeedNotFound:
		return KindIntegrity
	default:
		return KindCaller
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Path != "" && e.Attribute != "":
		msg = fmt.Sprintf("%s (path=%s, attribute=%s)", msg, e.Path, e.Attribute)
	case e.Path != "":
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	case e.Operation != "":
		msg = fmt.Sprintf("%s (operation=%s)", msg, e.Operation)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err (or anything it wraps) is an *Error with the
// given code.
func HasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsMissingAttribute reports whether err is an archive missing-attribute error.
func IsMissingAttribute(err error) bool {
	return HasCode(err, ErrCodeMissingAttribute)
}

// IsUnsupportedInput reports whether err is an unsupported-input error.
func IsUnsupportedInput(err error) bool {
	return HasCode(err, ErrCodeUnsupportedInput)
}

// IsMalformedHistory reports whether err is a malformed-history error.
func IsMalformedHistory(err error) bool {
	return HasCode(err, ErrCodeMalformedHistory)
}

// IsSeedNotFound reports whether err is a missing seed source error.
func IsSeedNotFound(err error) bool {
	return HasCode(err, ErrCodeSeedNotFound)
}

// IsUnseededReplay reports whether err is an unseeded replay error.
func IsUnseededReplay(err error) bool {
	return HasCode(err, ErrCodeUnseededReplay)
}

// IsUnknownOperation reports whether err is a registry miss.
func IsUnknownOperation(err error) bool {
	return HasCode(err, ErrCodeUnknownOperation)
}

// ErrorKind returns the Kind of err, or "" when err is not an *Error.
func ErrorKind(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code.Kind()
	}
	return ""
}

// NewMissingAttributeError creates the error for an archive lacking attr.
func NewMissingAttributeError(path, attr string) *Error {
	return &Error{
		Code:      ErrCodeMissingAttribute,
		Message:   fmt.Sprintf("archive must have all of the following attributes: %v", RequiredAttributes),
		Path:      path,
		Attribute: attr,
	}
}

// NewUnsupportedInputError creates the error for an input Load cannot handle.
func NewUnsupportedInputError(v any) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedInput,
		Message: fmt.Sprintf("cannot load data of type %T", v),
	}
}

// NewUnknownOperationError creates a registry-miss error.
func NewUnknownOperationError(name, reason string) *Error {
	return &Error{
		Code:      ErrCodeUnknownOperation,
		Message:   reason,
		Operation: name,
	}
}
