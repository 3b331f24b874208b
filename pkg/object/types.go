package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Hash is a lowercase hex-encoded digest. Its length depends on the
// repository's Algorithm: 40 characters for SHA-1, 64 for SHA-256.
type Hash string

// Short returns an abbreviated hash for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// ParseObjectType validates a type tag read from an envelope.
func ParseObjectType(s string) (ObjectType, error) {
	switch ObjectType(s) {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return ObjectType(s), nil
	}
	return "", fmt.Errorf("unknown object type %q", s)
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	ModeDir        = "40000"
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Hash references a blob for files
// and another tree for directories.
type TreeEntry struct {
	Name string
	Mode string
	Hash Hash
}

// IsDir reports whether the entry references a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == ModeDir }

// TreeObj holds a list of tree entries, sorted by Name in canonical form.
type TreeObj struct {
	Entries []TreeEntry
}

// Ident identifies the author or committer of a commit, or the tagger of an
// annotated tag.
type Ident struct {
	Name  string
	Email string
	When  int64  // unix seconds
	TZ    string // offset like "+0000"
}

// String renders the canonical header form "Name <email> 1700000000 +0000".
func (i Ident) String() string {
	tz := i.TZ
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", i.Name, i.Email, i.When, tz)
}

// ParseIdent parses the canonical header form back into an Ident.
func ParseIdent(s string) (Ident, error) {
	open := strings.LastIndex(s, "<")
	close := strings.LastIndex(s, ">")
	if open < 0 || close < open {
		return Ident{}, fmt.Errorf("malformed ident %q", s)
	}

	ident := Ident{
		Name:  strings.TrimSpace(s[:open]),
		Email: s[open+1 : close],
	}

	rest := strings.Fields(s[close+1:])
	if len(rest) >= 1 {
		when, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return Ident{}, fmt.Errorf("malformed ident timestamp in %q: %w", s, err)
		}
		ident.When = when
	}
	if len(rest) >= 2 {
		ident.TZ = rest[1]
	}
	return ident, nil
}

// CommitObj represents a commit pointing to a tree with metadata. Parents is
// empty only for a root commit; merge commits carry two or more.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Ident
	Committer Ident
	Signature string // optional encoded crypto signature
	Message   string
}

// TagObj is an annotated tag: a stored object pointing at a target, as
// opposed to a lightweight tag which is only a ref.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     Ident
	Signature  string
	Message    string
}
