package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies why a candidate or query did not make it into the result set
type ErrorType string

const (
	// Raw record without a usable profile URL. Dropped.
	ErrorTypeMissingIdentity ErrorType = "missing_identity"
	// Follower count outside the configured band, or unknown when unknowns are not allowed.
	ErrorTypeFollowerOutOfRange ErrorType = "follower_out_of_range"
	// Profile identity already admitted earlier in the run (or a previous run).
	ErrorTypeDuplicateProfile ErrorType = "duplicate_profile"
	// Confidence or completeness under the configured minimum.
	ErrorTypeBelowQualityThreshold ErrorType = "below_quality_threshold"
	// Page fetcher failure. The query is skipped.
	ErrorTypeFetch ErrorType = "fetch_error"
	// Per-run request cap reached. Ends the run early.
	ErrorTypeRateBudgetExhausted ErrorType = "rate_budget_exhausted"
	// Run aborted between queries.
	ErrorTypeCancelled ErrorType = "cancelled"
	// Output sink failure (Redis, Postgres).
	ErrorTypeStorage ErrorType = "storage"
)

// Error carries a reason type plus detail. Two *Error values match under errors.Is
// when their types are equal, so the sentinels below work as reason checks.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

var (
	ErrMissingIdentity       = &Error{Type: ErrorTypeMissingIdentity}
	ErrFollowerOutOfRange    = &Error{Type: ErrorTypeFollowerOutOfRange}
	ErrDuplicateProfile      = &Error{Type: ErrorTypeDuplicateProfile}
	ErrBelowQualityThreshold = &Error{Type: ErrorTypeBelowQualityThreshold}
	ErrFetch                 = &Error{Type: ErrorTypeFetch}
	ErrRateBudgetExhausted   = &Error{Type: ErrorTypeRateBudgetExhausted}
	ErrCancelled             = &Error{Type: ErrorTypeCancelled}
	ErrStorage               = &Error{Type: ErrorTypeStorage}
)

// New creates a typed error with a formatted message
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a type to an underlying error
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Type)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// TypeOf returns the reason carried by err, or "" when err is not a typed error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsRunFatal reports whether err must end the run early. Every other reason is
// recorded as a statistic and the run continues.
func IsRunFatal(err error) bool {
	return stderrors.Is(err, ErrRateBudgetExhausted)
}

// IsRetryable reports whether an operation that failed with this type may be retried.
// Page fetches are never retried within a run.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeStorage
}
