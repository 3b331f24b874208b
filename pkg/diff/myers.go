package diff

// Op classifies a line in an edit script.
type Op int

const (
	Context Op = iota // Line is unchanged between old and new.
	Add               // Line was inserted (present in new only).
	Remove            // Line was deleted (present in old only).
)

// Line is a single operation in an edit script.
type Line struct {
	Op      Op
	Content string
}

// myersLines computes the shortest edit script to transform a into b using
// the Myers diff algorithm operating on whole lines.
//
// The algorithm runs in O((N+M)*D) time where N and M are the lengths of a
// and b, and D is the size of the minimum edit script.
func myersLines(a, b []string) []Line {
	n := len(a)
	m := len(b)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		out := make([]Line, m)
		for i, line := range b {
			out[i] = Line{Op: Add, Content: line}
		}
		return out
	}
	if m == 0 {
		out := make([]Line, n)
		for i, line := range a {
			out[i] = Line{Op: Remove, Content: line}
		}
		return out
	}

	max := n + m
	size := 2*max + 1

	v := make([]int, size)

	// trace[d] holds a snapshot of v after processing edit distance d.
	var trace [][]int

	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			idx := k + max
			var x int
			if k == -d || (k != d && v[idx-1] < v[idx+1]) {
				x = v[idx+1] // move down (insert)
			} else {
				x = v[idx-1] + 1 // move right (delete)
			}
			y := x - k

			// Follow diagonal (equal lines).
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[idx] = x

			if x >= n && y >= m {
				snap := make([]int, size)
				copy(snap, v)
				trace = append(trace, snap)
				return backtrack(trace, a, b, d)
			}
		}

		snap := make([]int, size)
		copy(snap, v)
		trace = append(trace, snap)
	}

	// Unreachable for valid inputs.
	return nil
}

// backtrack reconstructs the edit script from the trace of v snapshots.
func backtrack(trace [][]int, a, b []string, dFinal int) []Line {
	n := len(a)
	m := len(b)
	max := n + m

	x := n
	y := m

	// Build the edit script in reverse.
	var out []Line

	for d := dFinal; d > 0; d-- {
		k := x - y
		idx := k + max

		vPrev := trace[d-1]

		var prevK int
		if k == -d || (k != d && vPrev[idx-1] < vPrev[idx+1]) {
			prevK = k + 1 // came from an insert (down move)
		} else {
			prevK = k - 1 // came from a delete (right move)
		}

		prevX := vPrev[prevK+max]
		prevY := prevX - prevK

		// Trace back along the diagonal (equal lines).
		for x > prevX && y > prevY {
			x--
			y--
			out = append(out, Line{Op: Context, Content: a[x]})
		}

		if k == prevK+1 {
			// Delete (right move).
			x--
			out = append(out, Line{Op: Remove, Content: a[x]})
		} else {
			// Insert (down move).
			y--
			out = append(out, Line{Op: Add, Content: b[y]})
		}
	}

	// Remaining diagonal at d=0.
	for x > 0 && y > 0 {
		x--
		y--
		out = append(out, Line{Op: Context, Content: a[x]})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}
