package diff

import "bytes"

// MergeHunkKind classifies a hunk in a three-way merge result.
type MergeHunkKind int

const (
	MergeClean    MergeHunkKind = iota // Hunk was merged cleanly.
	MergeConflict                      // Hunk requires manual resolution.
)

// MergeHunk represents a contiguous section of the merge output.
type MergeHunk struct {
	Kind                       MergeHunkKind
	Base, Ours, Theirs, Merged []byte
}

// MergeResult holds the outcome of a three-way merge. The engine surfaces
// conflicts; it never auto-resolves them.
type MergeResult struct {
	Merged       []byte // Full merged content, with conflict markers if any.
	HasConflicts bool
	Hunks        []MergeHunk // Individual hunks in document order.
}

// Merge3 performs a three-way merge of base, ours, and theirs.
//
// Algorithm:
//  1. Split base, ours, theirs into lines.
//  2. Compute diff(base, ours) and diff(base, theirs).
//  3. Convert each diff into contiguous runs of unchanged or changed
//     regions relative to the base.
//  4. Walk base lines, consulting both run sequences to decide how each
//     base region is handled.
//  5. When both sides change the same base region differently, emit a
//     conflict.
func Merge3(base, ours, theirs []byte) MergeResult {
	baseLines, _ := splitLines(base)
	oursLines, _ := splitLines(ours)
	theirsLines, _ := splitLines(theirs)

	oursRuns := buildRuns(baseLines, oursLines)
	theirsRuns := buildRuns(baseLines, theirsLines)

	return mergeRuns(baseLines, oursRuns, theirsRuns)
}

// run represents a contiguous region relative to the base.
type run struct {
	baseStart, baseEnd int      // range [baseStart, baseEnd) in base
	lines              []string // replacement lines for this region
	changed            bool     // true if this region differs from base
}

// buildRuns converts a two-way diff (base -> side) into a list of runs.
func buildRuns(base, side []string) []run {
	script := myersLines(base, side)

	var runs []run
	baseIdx := 0

	i := 0
	for i < len(script) {
		l := script[i]

		if l.Op == Context {
			runs = append(runs, run{
				baseStart: baseIdx,
				baseEnd:   baseIdx + 1,
				lines:     []string{l.Content},
			})
			baseIdx++
			i++
			continue
		}

		// Accumulate a contiguous changed region.
		runStart := baseIdx
		var sideLines []string
		for i < len(script) && script[i].Op != Context {
			if script[i].Op == Remove {
				baseIdx++
			} else {
				sideLines = append(sideLines, script[i].Content)
			}
			i++
		}

		runs = append(runs, run{
			baseStart: runStart,
			baseEnd:   baseIdx,
			lines:     sideLines,
			changed:   true,
		})
	}

	return runs
}

// mergeRuns walks the two run sequences in parallel, aligned by base-line
// positions, producing the merge result.
func mergeRuns(baseLines []string, oursRuns, theirsRuns []run) MergeResult {
	var merged bytes.Buffer
	var hunks []MergeHunk
	hasConflicts := false

	oi, ti := 0, 0

	for oi < len(oursRuns) || ti < len(theirsRuns) {
		var oc, tc *run
		if oi < len(oursRuns) {
			oc = &oursRuns[oi]
		}
		if ti < len(theirsRuns) {
			tc = &theirsRuns[ti]
		}

		if oc == nil {
			writeRun(&merged, tc)
			hunks = append(hunks, cleanHunk(baseLines, tc))
			ti++
			continue
		}
		if tc == nil {
			writeRun(&merged, oc)
			hunks = append(hunks, cleanHunk(baseLines, oc))
			oi++
			continue
		}

		if oc.baseStart == tc.baseStart && oc.baseEnd == tc.baseEnd {
			switch {
			case !oc.changed && !tc.changed:
				writeRun(&merged, oc)
				hunks = append(hunks, cleanHunk(baseLines, oc))
			case oc.changed && !tc.changed:
				writeRun(&merged, oc)
				hunks = append(hunks, cleanHunk(baseLines, oc))
			case !oc.changed && tc.changed:
				writeRun(&merged, tc)
				hunks = append(hunks, cleanHunk(baseLines, tc))
			default:
				if stringsEqual(oc.lines, tc.lines) {
					// Identical change on both sides is clean.
					writeRun(&merged, oc)
					hunks = append(hunks, cleanHunk(baseLines, oc))
				} else {
					hasConflicts = true
					writeConflict(&merged, oc.lines, tc.lines)
					hunks = append(hunks, conflictHunk(baseLines, oc, tc))
				}
			}
			oi++
			ti++
			continue
		}

		// Misaligned runs: one side's change spans multiple base-aligned
		// runs on the other side. Collect every overlapping run from both
		// sides into one region.
		regionStart := minInt(oc.baseStart, tc.baseStart)
		regionEnd := maxInt(oc.baseEnd, tc.baseEnd)

		var oursRegion []run
		for oi < len(oursRuns) && oursRuns[oi].baseStart < regionEnd {
			oursRegion = append(oursRegion, oursRuns[oi])
			if oursRuns[oi].baseEnd > regionEnd {
				regionEnd = oursRuns[oi].baseEnd
			}
			oi++
		}

		var theirsRegion []run
		for ti < len(theirsRuns) && theirsRuns[ti].baseStart < regionEnd {
			theirsRegion = append(theirsRegion, theirsRuns[ti])
			if theirsRuns[ti].baseEnd > regionEnd {
				regionEnd = theirsRuns[ti].baseEnd
			}
			ti++
		}

		oursOut := assembleRegion(oursRegion)
		theirsOut := assembleRegion(theirsRegion)
		oursChanged := anyChanged(oursRegion)
		theirsChanged := anyChanged(theirsRegion)

		baseRegion := baseLines[regionStart:regionEnd]

		switch {
		case !oursChanged && !theirsChanged:
			writeStrings(&merged, baseRegion)
			hunks = append(hunks, MergeHunk{
				Kind:   MergeClean,
				Base:   joinLines(baseRegion),
				Merged: joinLines(baseRegion),
			})
		case oursChanged && !theirsChanged:
			writeStrings(&merged, oursOut)
			hunks = append(hunks, MergeHunk{
				Kind:   MergeClean,
				Base:   joinLines(baseRegion),
				Ours:   joinLines(oursOut),
				Merged: joinLines(oursOut),
			})
		case !oursChanged && theirsChanged:
			writeStrings(&merged, theirsOut)
			hunks = append(hunks, MergeHunk{
				Kind:   MergeClean,
				Base:   joinLines(baseRegion),
				Theirs: joinLines(theirsOut),
				Merged: joinLines(theirsOut),
			})
		default:
			if stringsEqual(oursOut, theirsOut) {
				writeStrings(&merged, oursOut)
				hunks = append(hunks, MergeHunk{
					Kind:   MergeClean,
					Base:   joinLines(baseRegion),
					Ours:   joinLines(oursOut),
					Merged: joinLines(oursOut),
				})
			} else {
				hasConflicts = true
				writeConflict(&merged, oursOut, theirsOut)
				hunks = append(hunks, MergeHunk{
					Kind:   MergeConflict,
					Base:   joinLines(baseRegion),
					Ours:   joinLines(oursOut),
					Theirs: joinLines(theirsOut),
				})
			}
		}
	}

	return MergeResult{
		Merged:       merged.Bytes(),
		HasConflicts: hasConflicts,
		Hunks:        hunks,
	}
}

func writeRun(buf *bytes.Buffer, c *run) {
	writeStrings(buf, c.lines)
}

func writeStrings(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func writeConflict(buf *bytes.Buffer, oursLines, theirsLines []string) {
	buf.WriteString("<<<<<<< ours\n")
	writeStrings(buf, oursLines)
	buf.WriteString("=======\n")
	writeStrings(buf, theirsLines)
	buf.WriteString(">>>>>>> theirs\n")
}

func cleanHunk(baseLines []string, c *run) MergeHunk {
	h := MergeHunk{
		Kind:   MergeClean,
		Merged: joinLines(c.lines),
	}
	if c.baseStart < c.baseEnd {
		h.Base = joinLines(baseLines[c.baseStart:c.baseEnd])
	}
	if c.changed {
		h.Ours = joinLines(c.lines)
	}
	return h
}

func conflictHunk(baseLines []string, oc, tc *run) MergeHunk {
	h := MergeHunk{
		Kind:   MergeConflict,
		Ours:   joinLines(oc.lines),
		Theirs: joinLines(tc.lines),
	}
	if oc.baseStart < oc.baseEnd {
		h.Base = joinLines(baseLines[oc.baseStart:oc.baseEnd])
	}
	return h
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	writeStrings(&buf, lines)
	return buf.Bytes()
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assembleRegion(runs []run) []string {
	var lines []string
	for _, c := range runs {
		lines = append(lines, c.lines...)
	}
	return lines
}

func anyChanged(runs []run) bool {
	for _, c := range runs {
		if c.changed {
			return true
		}
	}
	return false
}
