package services

import (
	"errors"
	"fmt"
)

// ErrorKind machine-checkable error classification; callers branch on kind,
// never on message text
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindNotAuthorized          ErrorKind = "not_authorized"
	KindPreconditionFailed     ErrorKind = "precondition_failed"
	KindConcurrentModification ErrorKind = "concurrent_modification"
	KindRemoteCallFailed       ErrorKind = "remote_call_failed"
	KindProofVerification      ErrorKind = "proof_verification_failed"
	KindExpired                ErrorKind = "expired"
	KindNotFound               ErrorKind = "not_found"
)

// OrchestrationError carries a kind plus a human-readable message. Reason
// further discriminates precondition failures (not_funded, too_early) so
// callers can branch without parsing Message.
type OrchestrationError struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Err     error
}

func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// Is matches any OrchestrationError with the same kind, so sentinel
// comparisons like errors.Is(err, ErrNotAuthorized) work. When the target
// carries a reason, the reason must match too.
func (e *OrchestrationError) Is(target error) bool {
	var other *OrchestrationError
	if !errors.As(target, &other) {
		return false
	}
	if e.Kind != other.Kind {
		return false
	}
	if other.Reason != "" && e.Reason != other.Reason {
		return false
	}
	return true
}

// Sentinel values for errors.Is checks; constructors below attach messages
var (
	ErrValidation             = &OrchestrationError{Kind: KindValidation}
	ErrNotAuthorized          = &OrchestrationError{Kind: KindNotAuthorized}
	ErrPreconditionFailed     = &OrchestrationError{Kind: KindPreconditionFailed}
	ErrNotFunded              = &OrchestrationError{Kind: KindPreconditionFailed, Reason: "not_funded"}
	ErrTooEarly               = &OrchestrationError{Kind: KindPreconditionFailed, Reason: "too_early"}
	ErrAlreadyDone            = &OrchestrationError{Kind: KindPreconditionFailed, Reason: "already_done"}
	ErrConcurrentModification = &OrchestrationError{Kind: KindConcurrentModification}
	ErrRemoteCallFailed       = &OrchestrationError{Kind: KindRemoteCallFailed}
	ErrProofVerification      = &OrchestrationError{Kind: KindProofVerification}
	ErrExpired                = &OrchestrationError{Kind: KindExpired}
	ErrNotFound               = &OrchestrationError{Kind: KindNotFound}
)

func newValidationError(format string, args ...interface{}) error {
	return &OrchestrationError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newNotAuthorizedError(format string, args ...interface{}) error {
	return &OrchestrationError{Kind: KindNotAuthorized, Message: fmt.Sprintf(format, args...)}
}

func newPreconditionError(format string, args ...interface{}) error {
	return &OrchestrationError{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func newPreconditionErrorWithReason(reason, format string, args ...interface{}) error {
	return &OrchestrationError{Kind: KindPreconditionFailed, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func newConcurrentModificationError(entity, id string) error {
	return &OrchestrationError{
		Kind:    KindConcurrentModification,
		Message: fmt.Sprintf("%s %s was modified concurrently, reload and retry", entity, id),
	}
}

func newRemoteCallError(message string, err error) error {
	return &OrchestrationError{Kind: KindRemoteCallFailed, Message: message, Err: err}
}

func newExpiredError(format string, args ...interface{}) error {
	return &OrchestrationError{Kind: KindExpired, Message: fmt.Sprintf(format, args...)}
}

func newProofVerificationError(message string, err error) error {
	return &OrchestrationError{Kind: KindProofVerification, Message: message, Err: err}
}

func newNotFoundError(entity, id string) error {
	return &OrchestrationError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// KindOf extracts the kind from any error produced by this package;
// unclassified errors report as remote failures, the only unknowable class
func KindOf(err error) ErrorKind {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindRemoteCallFailed
}
