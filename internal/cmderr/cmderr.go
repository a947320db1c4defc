// Package cmderr defines the error taxonomy shared by all of the CLI
// binaries. Every error surfaced to the operator carries a stable code
// string and the process exit status to use for it.
package cmderr

import (
	"fmt"
	"strings"
)

// Error codes.
const (
	CodeUnknownOption   = "UnknownOption"
	CodeUnknownCommand  = "UnknownCommand"
	CodeUsage           = "UsageError"
	CodeInvalidUUID     = "InvalidUUID"
	CodeInvalidManifest = "InvalidManifestData"
	CodeChecksum        = "ChecksumError"
	CodeSizeMismatch    = "SizeMismatchError"
	CodeAPI             = "APIError"
	CodeClient          = "ClientError"
	CodeInternal        = "InternalError"
	CodeMulti           = "MultiError"
)

// Error is the canonical CLI error shape. Historical revisions of this
// tooling carried several near-identical error classes with drifting field
// names; this one shape replaces all of them.
type Error struct {
	Code    string
	Message string
	Exit    int // process exit status, 0 means default (1)
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ExitStatus returns the process exit status for err: 0 for nil, the
// carried status for a recognized *Error, 1 otherwise.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := Find(err); ok && e.Exit > 0 {
		return e.Exit
	}
	return 1
}

// Find unwraps err looking for a *Error.
func Find(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// UnknownOption reports every unrecognized flag from one parse in a single
// error.
func UnknownOption(flags ...string) *Error {
	return &Error{
		Code:    CodeUnknownOption,
		Message: fmt.Sprintf("unknown option: %s", strings.Join(flags, ", ")),
	}
}

func UnknownCommand(name string) *Error {
	return &Error{
		Code:    CodeUnknownCommand,
		Message: fmt.Sprintf("unknown command: %q", name),
	}
}

// NoHelp is the failure for "help X" where X names no registered command.
func NoHelp(name string) *Error {
	return &Error{
		Code:    CodeUnknownCommand,
		Message: fmt.Sprintf("no help for %q", name),
	}
}

func Usagef(format string, args ...interface{}) *Error {
	return &Error{Code: CodeUsage, Message: fmt.Sprintf(format, args...)}
}

func InvalidUUID(s string) *Error {
	return &Error{
		Code:    CodeInvalidUUID,
		Message: fmt.Sprintf("invalid UUID: %q", s),
	}
}

func InvalidManifest(err error) *Error {
	return &Error{
		Code:    CodeInvalidManifest,
		Message: fmt.Sprintf("invalid image manifest: %v", err),
		Cause:   err,
	}
}

// Checksum is the post-transfer digest verification failure. It is not
// retryable in place: the whole transfer must be re-initiated.
func Checksum(algorithm, expected, actual string) *Error {
	return &Error{
		Code: CodeChecksum,
		Message: fmt.Sprintf("%s checksum mismatch: expected %s, got %s",
			algorithm, expected, actual),
	}
}

// SizeMismatch is the declared-vs-actual byte length failure, distinct
// from a checksum mismatch.
func SizeMismatch(expected, actual int64) *Error {
	return &Error{
		Code: CodeSizeMismatch,
		Message: fmt.Sprintf("size mismatch: expected %d bytes, got %d",
			expected, actual),
	}
}

// API wraps a structured error body returned by the registry. The server's
// own code is surfaced when present so the operator sees the same code the
// API documents.
func API(httpStatus int, code, message string) *Error {
	if code == "" {
		code = CodeAPI
	}
	if message == "" {
		message = fmt.Sprintf("registry returned HTTP %d", httpStatus)
	}
	return &Error{Code: code, Message: message}
}

// Client wraps a transport-level failure that produced no structured body.
func Client(err error) *Error {
	return &Error{Code: CodeClient, Message: err.Error(), Cause: err}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: err.Error(), Cause: err}
}
