package errors

import (
	"fmt"
	"testing"
)

func TestMiniwriterError_Error(t *testing.T) {
	err := &MiniwriterError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "draft not found",
	}

	expected := "NOT_FOUND: draft not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("title is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "title is required" {
		t.Errorf("Message = %q, want %q", err.Message, "title is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("/blog/hello")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "/blog/hello" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "/blog/hello")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("/blog/hello", "h2")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["current_fingerprint"] != "h2" {
		t.Errorf("Details[current_fingerprint] = %v, want h2", err.Details["current_fingerprint"])
	}
}

func TestNewRejected(t *testing.T) {
	t.Run("with message", func(t *testing.T) {
		err := NewRejected("Parent page not found")
		if err.Code != ErrRejected || err.Status != 422 {
			t.Errorf("got %s/%d, want REJECTED/422", err.Code, err.Status)
		}
		if err.Message != "Parent page not found" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("empty message", func(t *testing.T) {
		err := NewRejected("")
		if err.Message != "save rejected" {
			t.Errorf("Message = %q, want %q", err.Message, "save rejected")
		}
	})
}

func TestNewUnreachable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewUnreachable(cause)

	if err.Code != ErrUnreachable {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnreachable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the transport cause")
	}
}

func TestNewCorruptState(t *testing.T) {
	err := NewCorruptState("miniwriter:draft:abc", fmt.Errorf("unexpected end of JSON input"))

	if err.Code != ErrCorruptState {
		t.Errorf("Code = %q, want %q", err.Code, ErrCorruptState)
	}
	if err.Details["key"] != "miniwriter:draft:abc" {
		t.Errorf("Details[key] = %v", err.Details["key"])
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "database connection failed" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if Is(err, ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for plain error")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("flush: %w", NewUnreachable(nil))
		if !Is(wrapped, ErrUnreachable) {
			t.Error("Is() = false, want true for wrapped error")
		}
		if _, ok := As(wrapped); !ok {
			t.Error("As() = false, want true for wrapped error")
		}
	})
}
