// Package apperr defines the error taxonomy used across the estimator: one
// error code per failure category named in the specification, so callers
// can distinguish "print usage and exit" from "fatal accelerator abort"
// without string-matching messages.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes, one per category in the specification's error taxonomy.
const (
	CodeArgument  = "ARGUMENT_ERROR"  // bad numeric range, missing required flag
	CodeIO        = "IO_ERROR"        // missing file, unparseable header
	CodeCapacity  = "CAPACITY_ERROR"  // triplets > accelerators, M > MAX_SAMPLE_SIZE, batch overflow
	CodeInvariant = "INVARIANT_ERROR" // scratchpad assertion, recursion depth > 32
	CodeTransfer  = "TRANSFER_ERROR"  // accelerator transfer/driver failure
)

// AppError carries a taxonomy code alongside the usual wrapped error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code, so errors.Is(err, apperr.New(apperr.CodeCapacity, ""))
// style checks work without comparing messages.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an AppError with no wrapped cause.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError that wraps an existing error.
func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Argument builds an argument-validation error (bad flag value or range).
func Argument(format string, args ...any) *AppError {
	return New(CodeArgument, fmt.Sprintf(format, args...))
}

// IO builds a file/header I/O error, optionally wrapping a cause.
func IO(err error, format string, args ...any) *AppError {
	return Wrap(CodeIO, fmt.Sprintf(format, args...), err)
}

// Capacity builds a capacity-violation error (§7: triplets/accelerators,
// sample/MAX_SAMPLE_SIZE, batch overflow).
func Capacity(format string, args ...any) *AppError {
	return New(CodeCapacity, fmt.Sprintf(format, args...))
}

// Invariant builds a fatal accelerator-side invariant violation.
func Invariant(format string, args ...any) *AppError {
	return New(CodeInvariant, fmt.Sprintf(format, args...))
}

// Transfer builds a fatal accelerator-transfer error.
func Transfer(err error, format string, args ...any) *AppError {
	return Wrap(CodeTransfer, fmt.Sprintf(format, args...), err)
}

// CodeOf extracts the taxonomy code from err, or "" if err is not an
// AppError anywhere in its chain.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
