package data

import (
	"errors"
	"fmt"
	"testing"
)

// TestSentinelWrapping verifies wrapped operation errors still match
// their kind with errors.Is.
func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("no mount for path '/nope': %w", ErrNotMounted)
	if !errors.Is(err, ErrNotMounted) {
		t.Error("Expected wrapped error to match ErrNotMounted")
	}
	if errors.Is(err, ErrNotExist) {
		t.Error("Expected wrapped error not to match a different kind")
	}
}

func TestErrorsAggregation(t *testing.T) {
	var errs Errors

	if errs.Errors() != nil {
		t.Error("Expected empty aggregate to be nil")
	}

	errs.Add(nil)
	if errs.Errors() != nil {
		t.Error("Expected nil adds to be ignored")
	}

	first := errors.New("first")
	second := fmt.Errorf("second: %w", ErrReadOnly)
	errs.Add(first)
	errs.Add(second)

	combined := errs.Errors()
	if combined == nil {
		t.Fatal("Expected combined error")
	}
	if !errors.Is(combined, first) || !errors.Is(combined, ErrReadOnly) {
		t.Errorf("Expected aggregate to preserve each error, got %v", combined)
	}

	errs.Clear()
	if errs.Errors() != nil {
		t.Error("Expected cleared aggregate to be nil")
	}
}
