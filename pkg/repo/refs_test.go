package repo

import (
	"errors"
	"strings"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func TestHeadUnbornBranch(t *testing.T) {
	r := testRepo(t)
	head, err := r.Head()
	if !errors.Is(err, ErrUnbornBranch) {
		t.Fatalf("Head on fresh repo: got %v, want ErrUnbornBranch", err)
	}
	if head.Symbolic != "refs/heads/main" {
		t.Errorf("Symbolic: got %q", head.Symbolic)
	}
	if head.Target != object.SHA256.ZeroHash() {
		t.Errorf("Target: got %q, want zero hash", head.Target)
	}
}

func TestUpdateBranchAndResolve(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "hello"}, "init")

	if err := r.UpdateBranch("main", c); err != nil {
		t.Fatalf("UpdateBranch: %v", err)
	}

	for _, name := range []string{"HEAD", "main", "refs/heads/main"} {
		got, err := r.ResolveRef(name)
		if err != nil {
			t.Fatalf("ResolveRef(%q): %v", name, err)
		}
		if got != c {
			t.Errorf("ResolveRef(%q): got %s, want %s", name, got, c)
		}
	}
}

func TestUpdateBranchRejectsMissingObject(t *testing.T) {
	r := testRepo(t)
	fake := object.Hash(strings.Repeat("a", 64))
	if err := r.UpdateBranch("main", fake); err == nil {
		t.Error("UpdateBranch with unknown object should fail")
	}
}

func TestResolveRefHashPrefix(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")

	got, err := r.ResolveRef(string(c[:10]))
	if err != nil {
		t.Fatalf("ResolveRef by prefix: %v", err)
	}
	if got != c {
		t.Errorf("prefix resolution: got %s, want %s", got, c)
	}
}

func TestResolveRefRelative(t *testing.T) {
	r := testRepo(t)
	c0 := commitFileSet(t, r, map[string]string{"a.txt": "v0"}, "c0")
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "v1"}, "c1", c0)
	c2 := commitFileSet(t, r, map[string]string{"a.txt": "v2"}, "c2", c1)
	if err := r.UpdateBranch("main", c2); err != nil {
		t.Fatalf("UpdateBranch: %v", err)
	}

	cases := []struct {
		expr string
		want object.Hash
	}{
		{"HEAD~0", c2},
		{"HEAD~1", c1},
		{"HEAD~", c1},
		{"HEAD~2", c0},
		{"main~2", c0},
		{string(c2) + "~1", c1},
	}
	for _, tc := range cases {
		got, err := r.ResolveRef(tc.expr)
		if err != nil {
			t.Errorf("ResolveRef(%q): %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveRef(%q): got %s, want %s", tc.expr, got.Short(), tc.want.Short())
		}
	}

	if _, err := r.ResolveRef("HEAD~3"); !errors.Is(err, ErrPastRoot) {
		t.Errorf("HEAD~3 past root: got %v, want ErrPastRoot", err)
	}
}

func TestResolveRefNotFoundSuggestions(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")
	if err := r.UpdateBranch("main", c); err != nil {
		t.Fatalf("UpdateBranch: %v", err)
	}

	_, err := r.ResolveRef("mian")
	if !errors.Is(err, ErrRefNotFound) {
		t.Fatalf("ResolveRef(mian): got %v, want ErrRefNotFound", err)
	}
	var nf *RefNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error is not *RefNotFoundError: %v", err)
	}
	found := false
	for _, s := range nf.Suggestions {
		if s == "main" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions should include main: %v", nf.Suggestions)
	}
}

func TestUpdateRefCAS(t *testing.T) {
	r := testRepo(t)
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "1"}, "c1")
	c2 := commitFileSet(t, r, map[string]string{"a.txt": "2"}, "c2", c1)

	// Creation with empty expected old succeeds once.
	if err := r.UpdateRefCAS("refs/heads/feature", c1, ""); err != nil {
		t.Fatalf("CAS create: %v", err)
	}
	if err := r.UpdateRefCAS("refs/heads/feature", c2, ""); !errors.Is(err, ErrRefCASMismatch) {
		t.Errorf("CAS create against existing ref: got %v, want ErrRefCASMismatch", err)
	}

	// Matching old hash succeeds.
	if err := r.UpdateRefCAS("refs/heads/feature", c2, c1); err != nil {
		t.Fatalf("CAS advance: %v", err)
	}
	// Stale old hash loses.
	if err := r.UpdateRefCAS("refs/heads/feature", c1, c1); !errors.Is(err, ErrRefCASMismatch) {
		t.Errorf("stale CAS: got %v, want ErrRefCASMismatch", err)
	}
}

func TestDetachedHead(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")

	if err := r.SetHeadDetached(c); err != nil {
		t.Fatalf("SetHeadDetached: %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !head.Detached() || head.Target != c {
		t.Errorf("detached head state: %+v", head)
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "" {
		t.Errorf("CurrentBranch while detached: got %q", branch)
	}

	if err := r.SetHeadBranch("main"); err != nil {
		t.Fatalf("SetHeadBranch: %v", err)
	}
	branch, _ = r.CurrentBranch()
	if branch != "main" {
		t.Errorf("CurrentBranch after reattach: got %q", branch)
	}
}

func TestSetHeadDetachedRejectsMissingObject(t *testing.T) {
	r := testRepo(t)
	if err := r.SetHeadDetached(object.Hash(strings.Repeat("b", 64))); err == nil {
		t.Error("SetHeadDetached with unknown object should fail")
	}
}

func TestReflogRecordsUpdates(t *testing.T) {
	r := testRepo(t)
	c1 := commitFileSet(t, r, map[string]string{"a.txt": "1"}, "c1")
	c2 := commitFileSet(t, r, map[string]string{"a.txt": "2"}, "c2", c1)

	if err := r.UpdateBranch("main", c1); err != nil {
		t.Fatalf("UpdateBranch 1: %v", err)
	}
	if err := r.UpdateBranch("main", c2); err != nil {
		t.Fatalf("UpdateBranch 2: %v", err)
	}

	entries, err := r.ReadReflog("main", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("reflog entries: got %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].NewHash != c2 || entries[0].OldHash != c1 {
		t.Errorf("newest entry: %+v", entries[0])
	}
	if entries[1].NewHash != c1 || entries[1].OldHash != object.SHA256.ZeroHash() {
		t.Errorf("oldest entry: %+v", entries[1])
	}

	limited, err := r.ReadReflog("main", 1)
	if err != nil {
		t.Fatalf("ReadReflog limit: %v", err)
	}
	if len(limited) != 1 || limited[0].NewHash != c2 {
		t.Errorf("limited reflog: %+v", limited)
	}
}

func TestListRefs(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")
	if err := r.UpdateBranch("main", c); err != nil {
		t.Fatalf("UpdateBranch: %v", err)
	}
	if err := r.CreateTag("v1", c, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	refs, err := r.ListRefs("")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if refs["heads/main"] != c || refs["tags/v1"] != c {
		t.Errorf("ListRefs: %v", refs)
	}
}
