package options

import (
	"context"
	"errors"
	"fmt"

	"fieldreg/internal/platform/restclient"
	"fieldreg/pkg/platform/sentinel"
)

// ErrorCategory defines the normalized failure taxonomy for option loads.
type ErrorCategory string

const (
	// ErrorTimeout indicates the remote service took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnavailable indicates the remote service could not be reached
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorBadStatus indicates a non-success HTTP status
	ErrorBadStatus ErrorCategory = "bad_status"

	// ErrorBadData indicates the remote service returned malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorUnknownLevel indicates a level the repository cannot serve
	ErrorUnknownLevel ErrorCategory = "unknown_level"
)

// LookupError wraps option load failures. The failed level must be treated as
// not loaded (retryable), never as an empty option set.
type LookupError struct {
	Category   ErrorCategory
	Level      Level
	Parent     string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *LookupError) Error() string {
	target := string(e.Level)
	if e.Parent != "" {
		target = fmt.Sprintf("%s(parent=%s)", e.Level, e.Parent)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("load options %s [%s]: %v", target, e.Category, e.Underlying)
	}
	return fmt.Sprintf("load options %s [%s]", target, e.Category)
}

// Unwrap supports error unwrapping
func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// NewLookupError categorizes err for level/parent.
func NewLookupError(level Level, parent string, err error) *LookupError {
	category := ErrorBadData
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = ErrorTimeout
	case errors.Is(err, sentinel.ErrUnavailable):
		category = ErrorUnavailable
	case isStatusError(err):
		category = ErrorBadStatus
	}
	return &LookupError{
		Category:   category,
		Level:      level,
		Parent:     parent,
		Underlying: err,
		Retryable:  category != ErrorUnknownLevel,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

func isStatusError(err error) bool {
	var se *restclient.StatusError
	return errors.As(err, &se)
}

func unknownLevel(level Level) *LookupError {
	return &LookupError{
		Category: ErrorUnknownLevel,
		Level:    level,
	}
}
