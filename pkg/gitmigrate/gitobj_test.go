package gitmigrate

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"
)

func rawTree(t *testing.T, entries []gitTreeEntry) []byte {
	t.Helper()
	var b bytes.Buffer
	for _, e := range entries {
		raw, err := hex.DecodeString(e.ID)
		if err != nil {
			t.Fatalf("bad test hash %q: %v", e.ID, err)
		}
		fmt.Fprintf(&b, "%s %s\x00", e.Mode, e.Name)
		b.Write(raw)
	}
	return b.Bytes()
}

func TestParseGitTree(t *testing.T) {
	want := []gitTreeEntry{
		{Mode: "100644", Name: "README.md", ID: "aa9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35"},
		{Mode: "40000", Name: "src", ID: "d564d0bc3dd917926892c55e3706cc116d5b165e"},
	}
	entries, err := parseGitTree(rawTree(t, want))
	if err != nil {
		t.Fatalf("parseGitTree: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseGitTreeTruncated(t *testing.T) {
	data := rawTree(t, []gitTreeEntry{
		{Mode: "100644", Name: "a.txt", ID: "aa9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35"},
	})
	if _, err := parseGitTree(data[:len(data)-5]); err == nil {
		t.Fatal("expected error for truncated tree")
	}
}

func TestParseGitCommit(t *testing.T) {
	data := []byte("tree d564d0bc3dd917926892c55e3706cc116d5b165e\n" +
		"parent aa9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35\n" +
		"parent bb9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35\n" +
		"author Alice <alice@example.com> 1700000000 +0200\n" +
		"committer Bob <bob@example.com> 1700000100 +0000\n" +
		"\n" +
		"Merge feature branch\n")

	c, err := parseGitCommit(data)
	if err != nil {
		t.Fatalf("parseGitCommit: %v", err)
	}
	if c.Tree != "d564d0bc3dd917926892c55e3706cc116d5b165e" {
		t.Errorf("tree = %s", c.Tree)
	}
	if len(c.Parents) != 2 {
		t.Fatalf("got %d parents, want 2", len(c.Parents))
	}
	if c.Author.Name != "Alice" || c.Author.When != 1700000000 || c.Author.TZ != "+0200" {
		t.Errorf("author = %+v", c.Author)
	}
	if c.Committer.Email != "bob@example.com" {
		t.Errorf("committer = %+v", c.Committer)
	}
	if c.Message != "Merge feature branch\n" {
		t.Errorf("message = %q", c.Message)
	}
}

func TestParseGitCommitDropsSignature(t *testing.T) {
	data := []byte("tree d564d0bc3dd917926892c55e3706cc116d5b165e\n" +
		"author Alice <alice@example.com> 1700000000 +0000\n" +
		"committer Alice <alice@example.com> 1700000000 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" line one of the signature\n" +
		" line two of the signature\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"signed commit\n")

	c, err := parseGitCommit(data)
	if err != nil {
		t.Fatalf("parseGitCommit: %v", err)
	}
	if c.Message != "signed commit\n" {
		t.Errorf("message = %q", c.Message)
	}
	if c.Author.Name != "Alice" {
		t.Errorf("author = %+v", c.Author)
	}
}

func TestParseGitCommitMissingTree(t *testing.T) {
	data := []byte("author Alice <alice@example.com> 1700000000 +0000\n" +
		"committer Alice <alice@example.com> 1700000000 +0000\n" +
		"\nno tree\n")
	if _, err := parseGitCommit(data); err == nil {
		t.Fatal("expected error for commit without tree")
	}
}

func TestParseGitTag(t *testing.T) {
	data := []byte("object aa9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger Alice <alice@example.com> 1700000000 +0000\n" +
		"\n" +
		"first release\n")

	tag, err := parseGitTag(data)
	if err != nil {
		t.Fatalf("parseGitTag: %v", err)
	}
	if tag.Object != "aa9b0cf6a88f77bfd1d8d9ca09ac09d1563bbe35" {
		t.Errorf("object = %s", tag.Object)
	}
	if tag.Type != "commit" || tag.Name != "v1.0.0" {
		t.Errorf("type/name = %s/%s", tag.Type, tag.Name)
	}
	if tag.Message != "first release\n" {
		t.Errorf("message = %q", tag.Message)
	}
}

func TestHashGitObject(t *testing.T) {
	// Well-known: `echo -n "" | git hash-object --stdin`.
	if got := hashGitObject("blob", nil); got != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Errorf("empty blob hash = %s", got)
	}
	// `echo "hello" | git hash-object --stdin`.
	if got := hashGitObject("blob", []byte("hello\n")); got != "ce013625030ba8dba906f756967f9e9ca394464a" {
		t.Errorf("hello blob hash = %s", got)
	}
}

func TestSplitLooseHeader(t *testing.T) {
	objType, data, err := splitLooseHeader([]byte("blob 6\x00hello\n"))
	if err != nil {
		t.Fatalf("splitLooseHeader: %v", err)
	}
	if objType != "blob" || string(data) != "hello\n" {
		t.Errorf("got %s %q", objType, data)
	}

	if _, _, err := splitLooseHeader([]byte("blob 99\x00hello\n")); err == nil {
		t.Error("expected size mismatch error")
	}
	if _, _, err := splitLooseHeader([]byte("no terminator")); err == nil {
		t.Error("expected missing terminator error")
	}
}
