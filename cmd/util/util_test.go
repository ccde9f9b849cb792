package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d characters: %q", Wrap, line)
		}
	}
	if WrapString("") != "" {
		t.Error("expected empty string")
	}
}

func TestParseNumbers(t *testing.T) {
	testCases := []struct {
		args     []string
		expected []uint32
		err      bool
	}{
		{args: []string{"1", "2", "3"}, expected: []uint32{1, 2, 3}},
		{args: []string{"1,2", " 3 ,4"}, expected: []uint32{1, 2, 3, 4}},
		{args: []string{"1,,2"}, expected: []uint32{1, 2}},
		{args: []string{"one"}, err: true},
		{args: []string{"-1"}, err: true},
	}

	for _, tc := range testCases {
		numbers, err := ParseNumbers(tc.args)
		if tc.err {
			if err == nil {
				t.Errorf("%v: expected error", tc.args)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: unexpected error %v", tc.args, err)
			continue
		}
		if len(numbers) != len(tc.expected) {
			t.Errorf("%v: expected %v, got %v", tc.args, tc.expected, numbers)
			continue
		}
		for i := range numbers {
			if numbers[i] != tc.expected[i] {
				t.Errorf("%v: expected %v, got %v", tc.args, tc.expected, numbers)
				break
			}
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("ticket", "42"); err != nil || id != 42 {
		t.Errorf("expected 42, got %d (%v)", id, err)
	}
	if _, err := ParseID("ticket", "abc"); err == nil {
		t.Error("expected error")
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]int{"A": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "{\n  \"A\": 2\n}\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
