package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("connection refused")
	err := Wrap(internal, "store unavailable")

	if err.Error() != "store unavailable: connection refused" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	with := ErrInvalidCaptcha.WithInternal(stdErrors.New("token missing"))

	if with == ErrInvalidCaptcha {
		t.Fatal("expected WithInternal to return a copy")
	}

	if ErrInvalidCaptcha.Internal != nil {
		t.Fatal("expected shared error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	if out := FromError(ErrAlreadyVoted); out != ErrAlreadyVoted {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestAuthFailuresShareGenericShape(t *testing.T) {
	if ErrInvalidCredentials.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", ErrInvalidCredentials.StatusCode)
	}
	// The message must not distinguish unknown identifier from wrong password.
	if ErrInvalidCredentials.Message != "Invalid identifier or password" {
		t.Fatalf("unexpected message: %s", ErrInvalidCredentials.Message)
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("mobile number must be 10 digits")
	if err.Code != "VALIDATION_FAILED" {
		t.Fatalf("unexpected code: %s", err.Code)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
