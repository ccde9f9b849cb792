package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	testCases := []struct {
		err      error
		expected RetCode
	}{
		{nil, RetCSuccess},
		{NewError(RetCUnsupportedOperation, "no scan"), RetCUnsupportedOperation},
		{fmt.Errorf("wrapped: %w", NewError(RetCInvalidOperation, "bad")), RetCInvalidOperation},
		{errors.New("plain"), RetCInternalError},
	}

	for _, tc := range testCases {
		if got := CodeOf(tc.err); got != tc.expected {
			t.Errorf("CodeOf(%v): expected %s, got %s", tc.err, tc.expected, got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(RetCInternalError, "timeout")
	if err.Error() != "store: InternalError: timeout" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if RetCode(42).String() != "Unknown(42)" {
		t.Errorf("unexpected name %q", RetCode(42).String())
	}
}

func TestGuardCheck(t *testing.T) {
	testCases := []struct {
		name     string
		guard    Guard
		value    []byte
		loaded   bool
		expected bool
	}{
		{"holds same value", Holds("k", []byte{1}), []byte{1}, true, true},
		{"holds other value", Holds("k", []byte{1}), []byte{2}, true, false},
		{"holds missing key", Holds("k", []byte{1}), nil, false, false},
		{"absent missing key", Absent("k"), nil, false, true},
		{"absent existing key", Absent("k"), []byte{1}, true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.guard.Check(tc.value, tc.loaded); got != tc.expected {
				t.Errorf("Check: expected %v, got %v", tc.expected, got)
			}
		})
	}

	if !IsConflict(fmt.Errorf("apply: %w", NewError(RetCConflict, "k"))) {
		t.Errorf("expected wrapped conflict to be detected")
	}
	if IsConflict(NewError(RetCInternalError, "io")) || IsConflict(nil) {
		t.Errorf("only conflicts are conflicts")
	}
}
