package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestOfReportsKind(t *testing.T) {
	err := New(PathTraversal, "index.ValidatePath", fmt.Errorf("outside base"))

	kind, ok := Of(err)
	if !ok {
		t.Fatal("expected Of to recognize an *Error")
	}
	if kind != PathTraversal {
		t.Errorf("expected kind %q, got %q", PathTraversal, kind)
	}
}

func TestOfFalseForPlainError(t *testing.T) {
	_, ok := Of(errors.New("plain"))
	if ok {
		t.Error("expected Of to return false for a non-taxonomy error")
	}
}

func TestIsMatchesByKindOnly(t *testing.T) {
	err := New(SecurityViolation, "stage-a", errors.New("cause a"))
	target := New(SecurityViolation, "stage-b", errors.New("cause b"))

	if !errors.Is(err, target) {
		t.Error("expected errors.Is to match on Kind regardless of stage/cause")
	}

	other := New(StorageError, "stage-a", errors.New("cause a"))
	if errors.Is(err, other) {
		t.Error("expected errors.Is to not match a different Kind")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(StorageError, "store.Add", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the wrapped cause via Unwrap")
	}
}
