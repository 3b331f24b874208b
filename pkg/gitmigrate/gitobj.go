package gitmigrate

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// foreignObject is one decoded object from a Git repository. ID is the
// object's SHA-1 hex as Git computed it; Data is the raw payload without
// the "type size\0" header.
type foreignObject struct {
	ID   string
	Type string // "blob", "tree", "commit", "tag"
	Data []byte
}

// objectSource enumerates and reads foreign objects. Loose directories and
// pack files implement it; the migration walks them through one interface
// and never sees the encoding difference.
type objectSource interface {
	// ids lists every object ID the source holds.
	ids() ([]string, error)
	// read returns the decoded object, or an error naming the ID.
	read(id string) (*foreignObject, error)
}

var (
	_ objectSource = (*looseSource)(nil)
	_ objectSource = (*packSource)(nil)
	_ objectSource = (*gitRepo)(nil)
)

// hashGitObject computes the SHA-1 Git assigns to a payload.
func hashGitObject(objType string, data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// gitTreeEntry is one entry of a binary Git tree.
type gitTreeEntry struct {
	Mode string
	Name string
	ID   string
}

// parseGitTree decodes Git's binary tree encoding: repeated
// "mode name\0" followed by a 20-byte raw hash.
func parseGitTree(data []byte) ([]gitTreeEntry, error) {
	var entries []gitTreeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("tree entry: missing mode terminator")
		}
		mode := string(data[:sp])
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("tree entry: missing name terminator")
		}
		name := string(data[:nul])
		data = data[nul+1:]

		if len(data) < sha1.Size {
			return nil, fmt.Errorf("tree entry %q: truncated hash", name)
		}
		id := hex.EncodeToString(data[:sha1.Size])
		data = data[sha1.Size:]

		entries = append(entries, gitTreeEntry{Mode: mode, Name: name, ID: id})
	}
	return entries, nil
}

// gitCommit is a parsed Git commit.
type gitCommit struct {
	Tree      string
	Parents   []string
	Author    object.Ident
	Committer object.Ident
	Message   string
}

func parseGitCommit(data []byte) (*gitCommit, error) {
	headers, message, err := splitHeaders(data)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	c := &gitCommit{Message: message}
	for _, h := range headers {
		switch h.key {
		case "tree":
			c.Tree = h.value
		case "parent":
			c.Parents = append(c.Parents, h.value)
		case "author":
			ident, err := object.ParseIdent(h.value)
			if err != nil {
				return nil, fmt.Errorf("commit author: %w", err)
			}
			c.Author = ident
		case "committer":
			ident, err := object.ParseIdent(h.value)
			if err != nil {
				return nil, fmt.Errorf("commit committer: %w", err)
			}
			c.Committer = ident
		}
		// gpgsig and unknown headers are dropped: the signature covers
		// SHA-1 content that no longer exists after rewriting.
	}
	if c.Tree == "" {
		return nil, fmt.Errorf("commit: missing tree header")
	}
	return c, nil
}

// gitTag is a parsed annotated Git tag.
type gitTag struct {
	Object  string
	Type    string
	Name    string
	Tagger  object.Ident
	Message string
}

func parseGitTag(data []byte) (*gitTag, error) {
	headers, message, err := splitHeaders(data)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	t := &gitTag{Message: message}
	for _, h := range headers {
		switch h.key {
		case "object":
			t.Object = h.value
		case "type":
			t.Type = h.value
		case "tag":
			t.Name = h.value
		case "tagger":
			ident, err := object.ParseIdent(h.value)
			if err != nil {
				return nil, fmt.Errorf("tagger: %w", err)
			}
			t.Tagger = ident
		}
	}
	if t.Object == "" || t.Type == "" {
		return nil, fmt.Errorf("tag: missing object or type header")
	}
	return t, nil
}

type header struct {
	key, value string
}

// splitHeaders splits "key value" header lines from the message after the
// first blank line. Continuation lines (leading space, used by gpgsig)
// fold into the previous header.
func splitHeaders(data []byte) ([]header, string, error) {
	sep := bytes.Index(data, []byte("\n\n"))
	if sep < 0 {
		return nil, "", fmt.Errorf("missing header/message separator")
	}
	headerBlock := string(data[:sep])
	message := string(data[sep+2:])

	var headers []header
	for _, line := range strings.Split(headerBlock, "\n") {
		if strings.HasPrefix(line, " ") {
			if len(headers) == 0 {
				return nil, "", fmt.Errorf("continuation line with no header")
			}
			headers[len(headers)-1].value += "\n" + line[1:]
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, "", fmt.Errorf("malformed header line %q", line)
		}
		headers = append(headers, header{key: key, value: value})
	}
	return headers, message, nil
}
