// Package errs defines the typed error taxonomy shared across biorag.
// Every failure that can cross a package boundary carries a machine-readable
// code so callers (and the HTTP layer) can act on the kind without parsing
// messages.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure. Codes are stable wire values.
type Code string

const (
	// CodeValidation marks bad caller input: empty or oversized question,
	// invalid temperature or max_tokens. Never retried.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeInvalidParameter marks a programmer or config error such as k <= 0.
	CodeInvalidParameter Code = "INVALID_PARAMETER"
	// CodeDimensionMismatch marks a query vector whose length differs from
	// the index dimension.
	CodeDimensionMismatch Code = "DIMENSION_MISMATCH"
	// CodeIndexBuild marks a failure constructing a vector index.
	CodeIndexBuild Code = "INDEX_BUILD_FAILED"
	// CodeIndexNotBuilt marks a missing index artifact; the caller can act
	// on it by triggering ingestion.
	CodeIndexNotBuilt Code = "INDEX_NOT_BUILT"
	// CodeCorruptedData marks an index artifact that fails integrity checks.
	CodeCorruptedData Code = "CORRUPTED_DATA"
	// CodeEmbedding marks a failure in the embedding backend.
	CodeEmbedding Code = "EMBEDDING_FAILED"
	// CodeGeneration marks exhausted generation retries or a generation
	// backend failure.
	CodeGeneration Code = "GENERATION_FAILED"
)

// Error wraps a failure with the operation that produced it and its code.
type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with a message and no wrapped cause.
func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Newf returns an Error with a formatted message.
func Newf(code Code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error wrapping err, or nil when err is nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or ""
// when err carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
