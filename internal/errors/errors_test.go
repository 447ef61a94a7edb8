package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	tests := []struct {
		name   string
		err    *TodoError
		code   ErrorCode
		status int
	}{
		{"validation", NewValidation("Todo cannot be empty."), ErrValidation, http.StatusBadRequest},
		{"not found", NewNotFound("abc"), ErrNotFound, http.StatusNotFound},
		{"conflict", NewConflict("todo already exists"), ErrConflict, http.StatusConflict},
		{"storage", NewStorage("create", cause), ErrStorage, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Error() == "" {
				t.Error("Expected non-empty error string")
			}
		})
	}
}

func TestNewStorage_KeepsCodedErrors(t *testing.T) {
	t.Parallel()

	nf := NewNotFound("abc")
	wrapped := fmt.Errorf("update: %w", nf)

	got := NewStorage("update", wrapped)
	if got != nf {
		t.Errorf("Expected coded error to pass through, got %v", got)
	}
}

func TestStorage_Unwrap(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("connection refused")
	err := NewStorage("list", cause)
	if !stderrors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
}

func TestIs(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", NewValidation("too long"))
	if !Is(wrapped, ErrValidation) {
		t.Error("Expected wrapped validation error to match")
	}
	if Is(wrapped, ErrStorage) {
		t.Error("Expected validation error not to match storage code")
	}
	if Is(stderrors.New("plain"), ErrValidation) {
		t.Error("Expected plain error not to match")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Expected nil not to match")
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	if got := StatusOf(NewNotFound("x")); got != http.StatusNotFound {
		t.Errorf("StatusOf(not found) = %d", got)
	}
	if got := StatusOf(stderrors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("StatusOf(plain) = %d", got)
	}
}

func TestReason(t *testing.T) {
	t.Parallel()

	if got := Reason(NewValidation("Duplicate todo text.")); got != "Duplicate todo text." {
		t.Errorf("Reason() = %q", got)
	}
	if got := Reason(stderrors.New("boom")); got != "unexpected error" {
		t.Errorf("Reason(plain) = %q", got)
	}
}
