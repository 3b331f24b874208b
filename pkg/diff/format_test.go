package diff

import (
	"strings"
	"testing"
)

func TestFormatUnified(t *testing.T) {
	old := []byte("a\nb\nc\n")
	new := []byte("a\nx\nc\n")

	out := FormatUnified("a/file.txt", "b/file.txt", Compare(old, new), 3)

	for _, want := range []string{
		"--- a/file.txt\n",
		"+++ b/file.txt\n",
		"@@ -1,3 +1,3 @@\n",
		"-b\n",
		"+x\n",
		" a\n",
		" c\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("unified output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatUnifiedUnchanged(t *testing.T) {
	content := []byte("same\n")
	if out := FormatUnified("a/f", "b/f", Compare(content, content), 3); out != "" {
		t.Errorf("unchanged file should render empty, got:\n%s", out)
	}
}

func TestFormatUnifiedNoNewlineMarker(t *testing.T) {
	out := FormatUnified("a/f", "b/f", Compare([]byte("a\nend"), []byte("a\nend!\n")), 3)
	if !strings.Contains(out, "\\ No newline at end of file") {
		t.Errorf("missing no-newline marker:\n%s", out)
	}
}

func TestFormatUnifiedNewlineOnlyChange(t *testing.T) {
	// Dropping only the trailing newline leaves an all-context edit
	// script; the rendering must still produce a hunk restating the
	// last line so the marker has somewhere to hang.
	out := FormatUnified("a/f", "b/f", Compare([]byte("a\n"), []byte("a")), 3)
	for _, want := range []string{
		"@@ -1,1 +1,1 @@\n",
		"-a\n",
		"+a\n\\ No newline at end of file\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("newline-only diff missing %q:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "+++ b/f\n") {
		t.Errorf("headers rendered without a hunk:\n%s", out)
	}

	// The other direction marks the old side instead.
	out = FormatUnified("a/f", "b/f", Compare([]byte("a"), []byte("a\n")), 3)
	if !strings.Contains(out, "-a\n\\ No newline at end of file\n") {
		t.Errorf("old-side marker missing:\n%s", out)
	}
}

func TestFormatColored(t *testing.T) {
	out := FormatColored("a/f", "b/f", Compare([]byte("a\n"), []byte("b\n")), 3)
	if !strings.Contains(out, colorRed+"-a"+colorReset) {
		t.Errorf("removal not colored red:\n%q", out)
	}
	if !strings.Contains(out, colorGreen+"+b"+colorReset) {
		t.Errorf("addition not colored green:\n%q", out)
	}
}

func TestStatBar(t *testing.T) {
	// Small changes render one character per line.
	s := Stats{Insertions: 3, Deletions: 2}
	if s.Bar() != "+++--" {
		t.Errorf("small bar: %q", s.Bar())
	}

	// Large changes scale down, never exceeding the budget.
	s = Stats{Insertions: 300, Deletions: 100}
	bar := s.Bar()
	if len(bar) > statBarWidth {
		t.Errorf("bar exceeds budget: %d chars", len(bar))
	}
	plus := strings.Count(bar, "+")
	minus := strings.Count(bar, "-")
	if plus != 30 || minus != 10 {
		t.Errorf("scaled bar: %d plus, %d minus", plus, minus)
	}

	// Flooring is consistent: a dominant side never rounds the other up.
	s = Stats{Insertions: 1000, Deletions: 1}
	bar = s.Bar()
	if strings.Count(bar, "-") != 0 {
		t.Errorf("tiny share should floor to zero: %q", bar)
	}
	if len(bar) > statBarWidth {
		t.Errorf("bar exceeds budget: %d chars", len(bar))
	}

	if (Stats{}).Bar() != "" {
		t.Error("zero stats should render an empty bar")
	}
}

func TestFormatStat(t *testing.T) {
	out := FormatStat([]StatEntry{
		{Path: "short.txt", Stats: Stats{Insertions: 2, Deletions: 1}},
		{Path: "much/longer/path.go", Stats: Stats{Insertions: 1}},
		{Path: "image.png", Binary: true},
	})

	if !strings.Contains(out, "short.txt") || !strings.Contains(out, "| 3 ++-") {
		t.Errorf("stat row wrong:\n%s", out)
	}
	if !strings.Contains(out, "| Bin") {
		t.Errorf("binary row wrong:\n%s", out)
	}
	if !strings.Contains(out, "3 files changed, 3 insertions(+), 1 deletions(-)") {
		t.Errorf("summary wrong:\n%s", out)
	}
}
