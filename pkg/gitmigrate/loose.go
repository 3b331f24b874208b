package gitmigrate

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

// looseSource reads zlib-deflated loose objects from
// <gitDir>/objects/<2-hex>/<38-hex>.
type looseSource struct {
	objectsDir string
}

func newLooseSource(gitDir string) *looseSource {
	return &looseSource{objectsDir: filepath.Join(gitDir, "objects")}
}

func (s *looseSource) ids() ([]string, error) {
	shards, err := os.ReadDir(s.objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loose objects: %w", err)
	}

	var out []string
	for _, shard := range shards {
		name := shard.Name()
		if !shard.IsDir() || len(name) != 2 || !isHex(name) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.objectsDir, name))
		if err != nil {
			return nil, fmt.Errorf("loose objects: shard %s: %w", name, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			id := name + f.Name()
			if len(id) == 40 && isHex(id) {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (s *looseSource) read(id string) (*foreignObject, error) {
	if len(id) != 40 {
		return nil, fmt.Errorf("loose object %q: bad id length", id)
	}
	path := filepath.Join(s.objectsDir, id[:2], id[2:])
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: %w", id, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: zlib: %w", id, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: inflate: %w", id, err)
	}

	objType, data, err := splitLooseHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: %w", id, err)
	}
	if got := hashGitObject(objType, data); got != id {
		return nil, fmt.Errorf("loose object %s: content hashes to %s", id, got)
	}
	return &foreignObject{ID: id, Type: objType, Data: data}, nil
}

// splitLooseHeader parses the "type size\0" header of an inflated loose
// object.
func splitLooseHeader(raw []byte) (string, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("missing header terminator")
	}
	objType, sizeStr, ok := bytes.Cut(raw[:nul], []byte(" "))
	if !ok {
		return "", nil, fmt.Errorf("malformed header %q", raw[:nul])
	}
	size, err := strconv.Atoi(string(sizeStr))
	if err != nil {
		return "", nil, fmt.Errorf("bad size %q", sizeStr)
	}
	data := raw[nul+1:]
	if len(data) != size {
		return "", nil, fmt.Errorf("size mismatch: header=%d payload=%d", size, len(data))
	}
	return string(objType), data, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return len(s) > 0
}
