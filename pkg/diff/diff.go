package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Result is a line-level comparison of two text payloads.
type Result struct {
	Lines []Line
	// OldNoEOL and NewNoEOL record a missing trailing newline on either
	// side, surfaced in unified output as "\ No newline at end of file".
	OldNoEOL bool
	NewNoEOL bool
}

// Changed reports whether any line differs.
func (r Result) Changed() bool {
	if r.OldNoEOL != r.NewNoEOL {
		return true
	}
	for _, l := range r.Lines {
		if l.Op != Context {
			return true
		}
	}
	return false
}

// Compare computes a line diff between old and new.
func Compare(old, new []byte) Result {
	oldLines, oldEOL := splitLines(old)
	newLines, newEOL := splitLines(new)
	return Result{
		Lines:    myersLines(oldLines, newLines),
		OldNoEOL: !oldEOL && len(old) > 0,
		NewNoEOL: !newEOL && len(new) > 0,
	}
}

// Lines is a convenience wrapper returning only the edit script.
func Lines(old, new []byte) []Line {
	return Compare(old, new).Lines
}

// IsBinary reports whether content looks binary. A NUL byte in the first
// 8000 bytes is the classifier; binary payloads are reported, never
// line-diffed.
func IsBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// splitLines splits content into lines without their newlines. The second
// return reports whether the content ended with a newline.
func splitLines(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return nil, true
	}
	s := string(data)
	terminated := strings.HasSuffix(s, "\n")
	if terminated {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\n"), terminated
}

// Apply reconstructs the new content from the old content and a
// comparison result. Context and Remove lines are verified against the
// old content, so a result produced against different input fails
// instead of silently corrupting. The new side's trailing-newline state
// is carried over from the result.
func Apply(old []byte, r Result) ([]byte, error) {
	oldLines, _ := splitLines(old)

	var out []string
	oldIdx := 0
	for i, l := range r.Lines {
		switch l.Op {
		case Context:
			if oldIdx >= len(oldLines) || oldLines[oldIdx] != l.Content {
				return nil, fmt.Errorf("apply: context mismatch at script line %d", i)
			}
			out = append(out, l.Content)
			oldIdx++
		case Remove:
			if oldIdx >= len(oldLines) || oldLines[oldIdx] != l.Content {
				return nil, fmt.Errorf("apply: removed line mismatch at script line %d", i)
			}
			oldIdx++
		case Add:
			out = append(out, l.Content)
		}
	}
	if oldIdx != len(oldLines) {
		return nil, fmt.Errorf("apply: %d trailing old lines not covered by script", len(oldLines)-oldIdx)
	}

	if len(out) == 0 {
		return nil, nil
	}
	joined := strings.Join(out, "\n")
	if !r.NewNoEOL {
		joined += "\n"
	}
	return []byte(joined), nil
}
