package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/physutils/internal/bids"
	"github.com/roach88/physutils/internal/dispatch"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Replay or scenario failure (non-deterministic replay, failed assertions, etc.)
	ExitCommandError = 2 // Command error (invalid paths, unreadable input, bad flags, etc.)
)

// Error codes for the JSON envelope when the error carries no code of
// its own.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Invalid flags or configuration
	ErrCodeLoadFailed  = "E004" // Input could not be loaded
	ErrCodeNotFound    = "E005" // Path or catalog record not found
	ErrCodeCatalog     = "E006" // Catalog error
	ErrCodeWriteFailed = "E007" // File write error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool // already written to the command's output
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001" or a library code such as "SEED_NOT_FOUND"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError with the given exit code.
func (f *OutputFormatter) Fail(exitCode int, fallbackCode, message string, err error) error {
	_ = f.Error(errorCode(err, fallbackCode), fmt.Sprintf("%s: %v", message, err), errorDetails(err))
	exitErr := WrapExitError(exitCode, message, err)
	exitErr.reported = true
	return exitErr
}

// Reported reports whether err was already written by Fail.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorCode prefers the code carried by a library error.
func errorCode(err error, fallback string) string {
	var pe *physio.Error
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	var be *bids.Error
	if errors.As(err, &be) {
		return string(be.Code)
	}
	if dispatch.IsConfigError(err) {
		return ErrCodeConfig
	}
	if errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound
	}
	return fallback
}

// errorDetails exposes the structured fields of a library error.
func errorDetails(err error) any {
	var pe *physio.Error
	if errors.As(err, &pe) {
		details := map[string]string{"kind": string(pe.Code.Kind())}
		if pe.Path != "" {
			details["path"] = pe.Path
		}
		if pe.Attribute != "" {
			details["attribute"] = pe.Attribute
		}
		if pe.Operation != "" {
			details["operation"] = pe.Operation
		}
		return details
	}
	var ce *dispatch.ConfigError
	if errors.As(err, &ce) {
		return map[string]string{"field": ce.Field}
	}
	var be *bids.Error
	if errors.As(err, &be) && be.Path != "" {
		return map[string]string{"path": be.Path}
	}
	return nil
}
