// Copilot error tools
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// Conditions the pipeline reports to its callers. Match them with Is.
var (
	// ErrMissingColumn is returned when a frame lacks a column the caller asked for.
	ErrMissingColumn = stderrors.New("missing required column")
	// ErrInvalidConfig is returned for parameters outside their valid range.
	ErrInvalidConfig = stderrors.New("invalid configuration")
	// ErrInsufficientData is returned when there are not enough rows to compute a result.
	ErrInsufficientData = stderrors.New("insufficient data")
	// ErrLengthMismatch is returned when two aligned vectors disagree in length.
	ErrLengthMismatch = stderrors.New("length mismatch")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// WrapE wraps the original error with a static error message.
// It returns a new error that includes both the static error and the original error.
func WrapE(staticErr, originalErr error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %w", file, line, staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, fmt.Sprintf(format, args...))
}

// New creates a new error with the given text, annotated with the caller.
func New(text string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, text)
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, fmt.Sprintf(format, args...))
}

// MissingColumn builds an ErrMissingColumn naming the column and the table it was looked up in.
func MissingColumn(table, column string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %q not found in %s", file, line, ErrMissingColumn, column, table)
}
