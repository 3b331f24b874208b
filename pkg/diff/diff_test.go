package diff

import (
	"bytes"
	"testing"
)

func TestLinesBasic(t *testing.T) {
	old := []byte("a\nb\nc\n")
	new := []byte("a\nx\nc\n")

	lines := Lines(old, new)
	var ops []Op
	for _, l := range lines {
		ops = append(ops, l.Op)
	}
	// a context, b removed, x added, c context (add/remove order may swap).
	adds, removes, ctx := 0, 0, 0
	for _, op := range ops {
		switch op {
		case Add:
			adds++
		case Remove:
			removes++
		case Context:
			ctx++
		}
	}
	if adds != 1 || removes != 1 || ctx != 2 {
		t.Errorf("ops: %d adds, %d removes, %d context", adds, removes, ctx)
	}
}

func TestLinesIdentical(t *testing.T) {
	content := []byte("same\nlines\n")
	r := Compare(content, content)
	if r.Changed() {
		t.Error("identical content should not report changes")
	}
	for _, l := range r.Lines {
		if l.Op != Context {
			t.Errorf("unexpected op %v for %q", l.Op, l.Content)
		}
	}
}

func TestLinesEmptySides(t *testing.T) {
	lines := Lines(nil, []byte("a\nb\n"))
	if len(lines) != 2 || lines[0].Op != Add || lines[1].Op != Add {
		t.Errorf("all-insert diff: %+v", lines)
	}

	lines = Lines([]byte("a\nb\n"), nil)
	if len(lines) != 2 || lines[0].Op != Remove || lines[1].Op != Remove {
		t.Errorf("all-delete diff: %+v", lines)
	}

	if len(Lines(nil, nil)) != 0 {
		t.Error("empty vs empty should be an empty script")
	}
}

func TestCompareNoTrailingNewline(t *testing.T) {
	r := Compare([]byte("a\nb"), []byte("a\nb\n"))
	if !r.OldNoEOL || r.NewNoEOL {
		t.Errorf("EOL flags: old=%v new=%v", r.OldNoEOL, r.NewNoEOL)
	}
	if !r.Changed() {
		t.Error("newline-only difference should count as changed")
	}
}

func TestApplyRoundTrip(t *testing.T) {
	cases := []struct{ old, new string }{
		{"a\nb\nc\n", "a\nx\nc\n"},
		{"", "new file\n"},
		{"gone\n", ""},
		{"1\n2\n3\n4\n5\n", "1\n3\n5\n6\n"},
		{"same\n", "same\n"},
		// Trailing-newline state survives the round trip in both
		// directions.
		{"one\ntwo\n", "one\nthree"},
		{"one\ntwo", "one\nthree\n"},
		{"end", "end"},
	}
	for _, tc := range cases {
		r := Compare([]byte(tc.old), []byte(tc.new))
		got, err := Apply([]byte(tc.old), r)
		if err != nil {
			t.Errorf("Apply(%q -> %q): %v", tc.old, tc.new, err)
			continue
		}
		if string(got) != tc.new {
			t.Errorf("Apply(%q): got %q, want %q", tc.old, got, tc.new)
		}
	}
}

func TestApplyRejectsWrongBase(t *testing.T) {
	r := Compare([]byte("a\nb\n"), []byte("a\nx\n"))
	if _, err := Apply([]byte("completely\ndifferent\n"), r); err == nil {
		t.Error("Apply against a different base should fail")
	}
}

func TestIsBinary(t *testing.T) {
	if IsBinary([]byte("plain text\nwith lines\n")) {
		t.Error("text flagged as binary")
	}
	if !IsBinary([]byte("PK\x03\x04\x00\x00binary")) {
		t.Error("NUL-bearing content not flagged as binary")
	}
	if IsBinary(nil) {
		t.Error("empty content flagged as binary")
	}
}

func TestMyersMinimality(t *testing.T) {
	// A single changed line among many should not churn the neighbors.
	old := []byte("1\n2\n3\n4\n5\n6\n7\n8\n9\n")
	new := bytes.Replace(old, []byte("5\n"), []byte("five\n"), 1)

	s := Stat(Lines(old, new))
	if s.Insertions != 1 || s.Deletions != 1 {
		t.Errorf("stat: %+v, want 1 insertion and 1 deletion", s)
	}
}
