package domain

import (
	"errors"
	"fmt"
)

// FailureReason classifies why an operation failed. The set is closed.
type FailureReason int

const (
	// FailAuthRequired means brew asked for a credential it never received
	FailAuthRequired FailureReason = iota
	// FailAuthRejected means the supplied credential was refused
	FailAuthRejected
	// FailNotFound means the package does not exist
	FailNotFound
	// FailExternalTool is any other brew error, message carried verbatim
	FailExternalTool
	// FailTimeout means the subprocess exceeded its deadline and was killed
	FailTimeout
	// FailCancelled is local bookkeeping, never shown as an error
	FailCancelled
)

// String returns the reason name for logs
func (r FailureReason) String() string {
	switch r {
	case FailAuthRequired:
		return "auth-required"
	case FailAuthRejected:
		return "auth-rejected"
	case FailNotFound:
		return "not-found"
	case FailTimeout:
		return "timeout"
	case FailCancelled:
		return "cancelled"
	default:
		return "external-tool-error"
	}
}

// Failure is a classified operation error
type Failure struct {
	Reason  FailureReason
	Message string
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Message == "" {
		return f.Reason.String()
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// NewFailure builds a Failure with a formatted message
func NewFailure(reason FailureReason, format string, args ...any) *Failure {
	return &Failure{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a *Failure from an error chain. Unclassified errors
// come back as FailExternalTool so callers always get a closed reason.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Reason: FailExternalTool, Message: err.Error()}
}

// Outcome is the terminal result of one operation attempt. Exactly one of
// the two branches is taken: Err nil means success, Payload carries the
// operation's result data (package lists, previews, nil for mutations).
type Outcome struct {
	Payload any
	Err     *Failure
}

// Success builds a successful outcome
func Success(payload any) Outcome {
	return Outcome{Payload: payload}
}

// Failed builds a failed outcome, classifying err if needed
func Failed(err error) Outcome {
	return Outcome{Err: AsFailure(err)}
}

// OK reports whether the attempt succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// NeedsCredential reports whether the failure is recoverable by supplying
// (or re-supplying) a credential
func (o Outcome) NeedsCredential() bool {
	return o.Err != nil && (o.Err.Reason == FailAuthRequired || o.Err.Reason == FailAuthRejected)
}
