package diff

import (
	"fmt"
	"strings"
)

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorCyan  = "\x1b[36m"

	// statBarWidth caps the +/- bar in diffstat output.
	statBarWidth = 40
)

// FormatUnified renders a comparison in unified diff format with ---/+++
// headers and @@ hunk markers. Binary payloads should be filtered before
// calling; an unchanged result renders as an empty string.
func FormatUnified(oldPath, newPath string, r Result, context int) string {
	hunks := renderableHunks(r, context)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldPath)
	fmt.Fprintf(&b, "+++ %s\n", newPath)
	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		writeHunkLines(&b, h, r, false)
	}
	return b.String()
}

// FormatColored is FormatUnified with ANSI colors: removals red, additions
// green, hunk headers cyan.
func FormatColored(oldPath, newPath string, r Result, context int) string {
	hunks := renderableHunks(r, context)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldPath)
	fmt.Fprintf(&b, "+++ %s\n", newPath)
	for _, h := range hunks {
		fmt.Fprintf(&b, "%s@@ -%d,%d +%d,%d @@%s\n",
			colorCyan, h.OldStart, h.OldCount, h.NewStart, h.NewCount, colorReset)
		writeHunkLines(&b, h, r, true)
	}
	return b.String()
}

// renderableHunks builds the hunks for unified output. A comparison whose
// only change is the trailing newline has an all-context edit script, so
// BuildHunks yields nothing; unified output still needs a remove/add pair
// on the last line to carry the no-newline marker.
func renderableHunks(r Result, context int) []Hunk {
	hunks := BuildHunks(r.Lines, context)
	if len(hunks) > 0 || r.OldNoEOL == r.NewNoEOL || len(r.Lines) == 0 {
		return hunks
	}
	n := len(r.Lines)
	last := r.Lines[n-1].Content
	return []Hunk{{
		OldStart: n, OldCount: 1,
		NewStart: n, NewCount: 1,
		Lines: []Line{{Op: Remove, Content: last}, {Op: Add, Content: last}},
	}}
}

func writeHunkLines(b *strings.Builder, h Hunk, r Result, colored bool) {
	lastOld := h.OldStart + h.OldCount - 1
	lastNew := h.NewStart + h.NewCount - 1
	oldLine, newLine := h.OldStart, h.NewStart

	for _, l := range h.Lines {
		switch l.Op {
		case Remove:
			if colored {
				fmt.Fprintf(b, "%s-%s%s\n", colorRed, l.Content, colorReset)
			} else {
				fmt.Fprintf(b, "-%s\n", l.Content)
			}
			if r.OldNoEOL && oldLine == lastOld && oldLine == oldLineCount(r.Lines) {
				b.WriteString("\\ No newline at end of file\n")
			}
			oldLine++
		case Add:
			if colored {
				fmt.Fprintf(b, "%s+%s%s\n", colorGreen, l.Content, colorReset)
			} else {
				fmt.Fprintf(b, "+%s\n", l.Content)
			}
			if r.NewNoEOL && newLine == lastNew && newLine == newLineCount(r.Lines) {
				b.WriteString("\\ No newline at end of file\n")
			}
			newLine++
		case Context:
			fmt.Fprintf(b, " %s\n", l.Content)
			oldLine++
			newLine++
		}
	}
}

func oldLineCount(all []Line) int {
	count := 0
	for _, x := range all {
		if x.Op != Add {
			count++
		}
	}
	return count
}

func newLineCount(all []Line) int {
	count := 0
	for _, x := range all {
		if x.Op != Remove {
			count++
		}
	}
	return count
}

// Stats is a reduction of an edit script to counts.
type Stats struct {
	Insertions int
	Deletions  int
}

// Stat counts insertions and deletions in an edit script.
func Stat(lines []Line) Stats {
	var s Stats
	for _, l := range lines {
		switch l.Op {
		case Add:
			s.Insertions++
		case Remove:
			s.Deletions++
		}
	}
	return s
}

// Total returns insertions plus deletions.
func (s Stats) Total() int {
	return s.Insertions + s.Deletions
}

// Bar renders the proportional "+"/"-" bar for diffstat output. The bar
// never exceeds statBarWidth characters; when scaling is needed both
// halves are floored, so small changes can round to an empty bar.
func (s Stats) Bar() string {
	total := s.Total()
	if total == 0 {
		return ""
	}
	plus, minus := s.Insertions, s.Deletions
	if total > statBarWidth {
		plus = plus * statBarWidth / total
		minus = minus * statBarWidth / total
	}
	return strings.Repeat("+", plus) + strings.Repeat("-", minus)
}

// StatEntry is one file's line in a diffstat summary.
type StatEntry struct {
	Path  string
	Stats Stats
	// Binary entries render as "Bin" instead of counts.
	Binary bool
}

// FormatStat renders a git-style diffstat: one aligned row per file and a
// trailing summary line.
func FormatStat(entries []StatEntry) string {
	if len(entries) == 0 {
		return ""
	}

	pathWidth := 0
	for _, e := range entries {
		if len(e.Path) > pathWidth {
			pathWidth = len(e.Path)
		}
	}

	var b strings.Builder
	files, ins, del := 0, 0, 0
	for _, e := range entries {
		files++
		if e.Binary {
			fmt.Fprintf(&b, " %-*s | Bin\n", pathWidth, e.Path)
			continue
		}
		ins += e.Stats.Insertions
		del += e.Stats.Deletions
		fmt.Fprintf(&b, " %-*s | %d %s\n", pathWidth, e.Path, e.Stats.Total(), e.Stats.Bar())
	}
	fmt.Fprintf(&b, " %d files changed, %d insertions(+), %d deletions(-)\n", files, ins, del)
	return b.String()
}
