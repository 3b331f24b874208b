package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func TestLogFirstParent(t *testing.T) {
	r := testRepo(t)
	c0 := commitFileSet(t, r, map[string]string{"a.txt": "0"}, "c0")
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "1"}, "c1", c0)
	c2 := commitFileSet(t, r, map[string]string{"a.txt": "2"}, "c2", c1)

	entries, err := r.Log(c2, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Log entries: got %d, want 3", len(entries))
	}
	want := []object.Hash{c2, c1, c0}
	for i, e := range entries {
		if e.Hash != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, e.Hash.Short(), want[i].Short())
		}
	}

	limited, err := r.Log(c2, 2)
	if err != nil {
		t.Fatalf("Log limit: %v", err)
	}
	if len(limited) != 2 || limited[1].Hash != c1 {
		t.Errorf("limited log: %d entries", len(limited))
	}
}

func TestLogFollowsFirstParentOnly(t *testing.T) {
	r := testRepo(t)
	base := commitFileSet(t, r, map[string]string{"a.txt": "base"}, "base")
	side := commitFileSet(t, r, map[string]string{"a.txt": "side"}, "side", base)
	merge := commitFileSet(t, r, map[string]string{"a.txt": "merge"}, "merge", base, side)

	entries, err := r.Log(merge, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 2 || entries[0].Hash != merge || entries[1].Hash != base {
		t.Errorf("first-parent log should skip the side branch: %d entries", len(entries))
	}
}

func TestLogMissingParentIsBoundary(t *testing.T) {
	r := testRepo(t)
	c0 := commitFileSet(t, r, map[string]string{"a.txt": "0"}, "c0")
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "1"}, "c1", c0)

	// Delete the root commit to simulate a shallow history.
	p := filepath.Join(r.KeelDir, "objects", string(c0[:2]), string(c0[2:]))
	if err := os.Remove(p); err != nil {
		t.Fatalf("remove commit object: %v", err)
	}

	entries, err := r.Log(c1, 0)
	if err != nil {
		t.Fatalf("Log with missing parent: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != c1 {
		t.Errorf("boundary log: %d entries", len(entries))
	}
}

func TestWalkVisitsAllParents(t *testing.T) {
	r := testRepo(t)
	base := commitFileSet(t, r, map[string]string{"a.txt": "base"}, "base")
	left := commitFileSet(t, r, map[string]string{"a.txt": "left"}, "left", base)
	right := commitFileSet(t, r, map[string]string{"a.txt": "right"}, "right", base)
	merge := commitFileSet(t, r, map[string]string{"a.txt": "merge"}, "merge", left, right)

	entries, err := r.Walk(merge, 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Walk entries: got %d, want 4", len(entries))
	}
	seen := make(map[object.Hash]bool)
	for _, e := range entries {
		seen[e.Hash] = true
	}
	for _, h := range []object.Hash{base, left, right, merge} {
		if !seen[h] {
			t.Errorf("Walk missed %s", h.Short())
		}
	}
	// base is reachable twice but visited once.
	if entries[0].Hash != merge {
		t.Errorf("Walk should start at the tip")
	}
}

func TestMergeBase(t *testing.T) {
	r := testRepo(t)
	base := commitFileSet(t, r, map[string]string{"a.txt": "base"}, "base")
	left := commitFileSet(t, r, map[string]string{"a.txt": "left"}, "left", base)
	right := commitFileSet(t, r, map[string]string{"a.txt": "right"}, "right", base)

	got, err := r.MergeBase(left, right)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != base {
		t.Errorf("MergeBase(left, right) = %s, want %s", got.Short(), base.Short())
	}

	// An ancestor of the other side is itself the base.
	got, err = r.MergeBase(base, left)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != base {
		t.Errorf("MergeBase(base, left) = %s, want %s", got.Short(), base.Short())
	}

	// Disjoint histories share nothing.
	other := commitFileSet(t, r, map[string]string{"b.txt": "z"}, "other")
	got, err = r.MergeBase(left, other)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != r.Algorithm().ZeroHash() {
		t.Errorf("disjoint MergeBase = %s, want zero hash", got.Short())
	}
}

func TestIsAncestor(t *testing.T) {
	r := testRepo(t)
	c0 := commitFileSet(t, r, map[string]string{"a.txt": "0"}, "c0")
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "1"}, "c1", c0)
	other := commitFileSet(t, r, map[string]string{"b.txt": "z"}, "other")

	cases := []struct {
		ancestor, descendant object.Hash
		want                 bool
	}{
		{c0, c1, true},
		{c1, c1, true},
		{c1, c0, false},
		{other, c1, false},
	}
	for _, tc := range cases {
		got, err := r.IsAncestor(tc.ancestor, tc.descendant)
		if err != nil {
			t.Fatalf("IsAncestor: %v", err)
		}
		if got != tc.want {
			t.Errorf("IsAncestor(%s, %s): got %v, want %v",
				tc.ancestor.Short(), tc.descendant.Short(), got, tc.want)
		}
	}
}
