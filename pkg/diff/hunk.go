package diff

// DefaultContext is the number of unchanged lines kept around each change
// in hunk output.
const DefaultContext = 3

// Hunk is a contiguous run of changes with surrounding context. Starts are
// 1-based line numbers as rendered in "@@" headers; a zero count renders
// the start as the line before, matching unified diff conventions.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []Line
}

// BuildHunks groups an edit script into hunks with the given number of
// context lines (negative means DefaultContext). Changes whose context
// windows touch or overlap merge into a single hunk.
func BuildHunks(lines []Line, context int) []Hunk {
	if context < 0 {
		context = DefaultContext
	}

	// Indexes of non-context lines.
	var changed []int
	for i, l := range lines {
		if l.Op != Context {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	// Group changes whose context windows would run together.
	type span struct{ start, end int } // [start, end] into lines
	var spans []span
	cur := span{
		start: maxInt(0, changed[0]-context),
		end:   minInt(len(lines)-1, changed[0]+context),
	}
	for _, idx := range changed[1:] {
		winStart := maxInt(0, idx-context)
		if winStart <= cur.end+1 {
			cur.end = minInt(len(lines)-1, idx+context)
			continue
		}
		spans = append(spans, cur)
		cur = span{start: winStart, end: minInt(len(lines)-1, idx+context)}
	}
	spans = append(spans, cur)

	// Convert spans to hunks, tracking old/new line positions.
	var hunks []Hunk
	oldLine, newLine := 1, 1
	pos := 0
	for _, sp := range spans {
		for pos < sp.start {
			switch lines[pos].Op {
			case Context:
				oldLine++
				newLine++
			case Remove:
				oldLine++
			case Add:
				newLine++
			}
			pos++
		}

		h := Hunk{OldStart: oldLine, NewStart: newLine}
		for pos <= sp.end {
			l := lines[pos]
			h.Lines = append(h.Lines, l)
			switch l.Op {
			case Context:
				h.OldCount++
				h.NewCount++
				oldLine++
				newLine++
			case Remove:
				h.OldCount++
				oldLine++
			case Add:
				h.NewCount++
				newLine++
			}
			pos++
		}
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
