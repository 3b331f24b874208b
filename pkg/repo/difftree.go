package repo

import (
	"fmt"
	"sort"

	"github.com/keelvcs/keel/pkg/object"
)

// ChangeKind classifies a path-level difference between two commits.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeDeleted
	ChangeModified
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeDeleted:
		return "deleted"
	case ChangeModified:
		return "modified"
	}
	return "unknown"
}

// TreeChange is one path-level difference between two commits.
type TreeChange struct {
	Path    string
	Kind    ChangeKind
	OldHash object.Hash // empty for added
	NewHash object.Hash // empty for deleted
}

// DiffCommits flattens both commit trees to path maps and classifies every
// path as added, deleted, or modified. Paths whose blob hashes are equal on
// both sides never load blob content. Results are sorted by path.
func (r *Repo) DiffCommits(oldCommit, newCommit object.Hash) ([]TreeChange, error) {
	oldFiles, err := r.commitFiles(oldCommit)
	if err != nil {
		return nil, fmt.Errorf("diff commits: %w", err)
	}
	newFiles, err := r.commitFiles(newCommit)
	if err != nil {
		return nil, fmt.Errorf("diff commits: %w", err)
	}

	var changes []TreeChange
	for path, oldEntry := range oldFiles {
		newEntry, exists := newFiles[path]
		if !exists {
			changes = append(changes, TreeChange{Path: path, Kind: ChangeDeleted, OldHash: oldEntry.BlobHash})
			continue
		}
		if oldEntry.BlobHash != newEntry.BlobHash || oldEntry.Mode != newEntry.Mode {
			changes = append(changes, TreeChange{
				Path: path, Kind: ChangeModified,
				OldHash: oldEntry.BlobHash, NewHash: newEntry.BlobHash,
			})
		}
	}
	for path, newEntry := range newFiles {
		if _, exists := oldFiles[path]; !exists {
			changes = append(changes, TreeChange{Path: path, Kind: ChangeAdded, NewHash: newEntry.BlobHash})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// commitFiles flattens a commit's tree to path -> entry. An empty commit
// hash yields an empty map, so diffing against the empty history works.
func (r *Repo) commitFiles(commitHash object.Hash) (map[string]TreeFileEntry, error) {
	files := make(map[string]TreeFileEntry)
	if commitHash == "" {
		return files, nil
	}

	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", commitHash.Short(), err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		files[e.Path] = e
	}
	return files, nil
}
