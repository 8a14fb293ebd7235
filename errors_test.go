package ds

import (
	"errors"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	base := errors.New("connection refused")

	e := &Error{msg: "ds: open failed", err: base}
	if got, want := e.Error(), "ds: open failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e = &Error{msg: "ds: open failed"}
	if got, want := e.Error(), "ds: open failed"; got != want {
		t.Errorf("Error() with no wrapped err = %q, want %q", got, want)
	}

	e = &Error{err: base}
	if got, want := e.Error(), "connection refused"; got != want {
		t.Errorf("Error() with no msg = %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := wrapErr("ds: setup", base)

	if !errors.Is(wrapped, base) {
		t.Fatalf("errors.Is(wrapped, base) = false, want true")
	}
	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatalf("errors.As(wrapped, *Error) = false, want true")
	}
}

func TestWrapErrNilPassthrough(t *testing.T) {
	if err := wrapErr("ds: setup", nil); err != nil {
		t.Fatalf("wrapErr(msg, nil) = %v, want nil", err)
	}
}
