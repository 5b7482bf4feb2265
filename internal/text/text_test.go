package text

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"  a  b ", "a b"},
		{"line one\nline two", "line one line two"},
		{"\tx\r\n\ny\f", "x y"},
	}
	for _, tc := range tests {
		if got := NormalizeText(tc.input); got != tc.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		input string
		fold  bool
		want  string
	}{
		{"ＥＤ－０１", true, "ED-01"},
		{"ＥＤ－０１", false, "ＥＤ－０１"},
		{"編集　A", true, "編集 A"},
		{"bad\ufffdrune", false, "badrune"},
		{"a\u00a0b", false, "a b"},
	}
	for _, tc := range tests {
		if got := NormalizeCell(tc.input, tc.fold); got != tc.want {
			t.Errorf("NormalizeCell(%q, %v) = %q, want %q", tc.input, tc.fold, got, tc.want)
		}
	}
}

func TestHasVisibleContent(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{" 　\t", false},
		{"編集", true},
		{"A", true},
	}
	for _, tc := range tests {
		if got := HasVisibleContent(tc.input); got != tc.want {
			t.Errorf("HasVisibleContent(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestRuneLen(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{" A ", 1},
		{"AB", 2},
		{"収録", 2},
	}
	for _, tc := range tests {
		if got := RuneLen(tc.input); got != tc.want {
			t.Errorf("RuneLen(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestContainsAny(t *testing.T) {
	markers := []string{"ED-", "MA-", ""}
	if !ContainsAny("Room ED-002", markers) {
		t.Error("expected ED- match")
	}
	if ContainsAny("XYZ-001", markers) {
		t.Error("empty marker must not match everything")
	}
}
