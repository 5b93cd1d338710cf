package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := newNotAuthorizedError("avatar %s is not an approver", "a1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected not-authorized match, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("kinds must not cross-match")
	}
}

func TestErrorReasonMatching(t *testing.T) {
	notFunded := newPreconditionErrorWithReason("not_funded", "escrow %s is not funded", "e1")

	// A reasoned sentinel only matches the same reason
	if !errors.Is(notFunded, ErrNotFunded) {
		t.Fatalf("expected not_funded match, got %v", notFunded)
	}
	if errors.Is(notFunded, ErrTooEarly) {
		t.Fatal("reasons must not cross-match")
	}

	// The bare precondition sentinel matches any reason
	if !errors.Is(notFunded, ErrPreconditionFailed) {
		t.Fatal("expected generic precondition match")
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := newRemoteCallError("lock call failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be visible")
	}

	wrapped := fmt.Errorf("locking order o1: %w", err)
	if !errors.Is(wrapped, ErrRemoteCallFailed) {
		t.Fatal("expected kind match through wrapping")
	}
}

func TestKindOf(t *testing.T) {
	if kind := KindOf(newValidationError("bad amount")); kind != KindValidation {
		t.Fatalf("expected validation kind, got %s", kind)
	}
	if kind := KindOf(errors.New("mystery")); kind != KindRemoteCallFailed {
		t.Fatalf("expected remote fallback, got %s", kind)
	}
}
