package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	Mode     string
	BlobHash object.Hash
}

// FileSet maps forward-slash paths to blob hashes with their modes. It is
// the flat form trees are built from and flattened to.
type FileSet map[string]FileState

type FileState struct {
	BlobHash object.Hash
	Mode     string
}

// BuildTree converts a flat file set into a hierarchical tree structure,
// writing TreeObj objects to the store bottom-up and returning the root
// hash. Identical subtrees across commits hash identically and dedup in
// the store.
func (r *Repo) BuildTree(files FileSet) (object.Hash, error) {
	return r.buildTreeDir(files, "")
}

func (r *Repo) buildTreeDir(files FileSet, prefix string) (object.Hash, error) {
	// Collect direct children: files and subdirectory names.
	direct := make(map[string]FileState)
	subdirs := make(map[string]struct{})

	for p, state := range files {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			direct[rel] = state
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(direct)+len(subdirs))
	for name := range direct {
		names = append(names, name)
	}
	for name := range subdirs {
		if _, isFile := direct[name]; isFile {
			return "", fmt.Errorf("build tree: %q is both a file and a directory", path.Join(prefix, name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if state, isFile := direct[name]; isFile {
			mode := state.Mode
			if mode == "" {
				mode = object.ModeFile
			}
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: mode,
				Hash: state.BlobHash,
			})
		} else {
			childPrefix := name
			if prefix != "" {
				childPrefix = prefix + "/" + name
			}
			subHash, err := r.buildTreeDir(files, childPrefix)
			if err != nil {
				return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
			}
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: object.ModeDir,
				Hash: subHash,
			})
		}
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full forward-slash paths.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path:     fullPath,
				Mode:     entry.Mode,
				BlobHash: entry.Hash,
			})
		}
	}
	return result, nil
}
