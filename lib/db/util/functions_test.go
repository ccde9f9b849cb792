package util

import "testing"

func TestHashStringSeed(t *testing.T) {
	if HashString("key", 1) == HashString("key", 2) {
		t.Error("Expected different seeds to produce different hashes")
	}
	if HashString("key", 7) != HashString("key", 7) {
		t.Error("Expected hashing to be deterministic")
	}
}

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix string
		end    string
		ok     bool
	}{
		{"r002/", "r0020", true},
		{"a", "b", true},
		{"a\xff", "b", true},
		{"\xff\xff", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		end, ok := PrefixEnd(tt.prefix)
		if ok != tt.ok || end != tt.end {
			t.Errorf("PrefixEnd(%q) = (%q, %v), want (%q, %v)", tt.prefix, end, ok, tt.end, tt.ok)
		}
	}
}
