package repo

import (
	"errors"
	"fmt"

	"github.com/keelvcs/keel/pkg/object"
)

// LogEntry pairs a commit with its hash during history walks.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks first-parent history from start, newest first, up to limit
// entries (limit <= 0 means unlimited). A parent that is missing from the
// store marks a history boundary, not an error; the walk simply stops
// there. Shallow migrated repositories hit this on their oldest commit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	cur := start
	for cur != "" {
		if limit > 0 && len(entries) >= limit {
			break
		}
		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) && len(entries) > 0 {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", cur.Short(), err)
		}
		entries = append(entries, LogEntry{Hash: cur, Commit: commit})

		if len(commit.Parents) == 0 {
			break
		}
		cur = commit.Parents[0]
	}
	return entries, nil
}

// Walk traverses all parents breadth-first from start, visiting each commit
// once, up to limit entries (limit <= 0 means unlimited). Missing parents
// are treated as history boundaries.
func (r *Repo) Walk(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	seen := map[object.Hash]bool{start: true}
	queue := []object.Hash{start}

	for len(queue) > 0 {
		if limit > 0 && len(entries) >= limit {
			break
		}
		cur := queue[0]
		queue = queue[1:]

		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) && len(entries) > 0 {
				continue
			}
			return nil, fmt.Errorf("walk: read commit %s: %w", cur.Short(), err)
		}
		entries = append(entries, LogEntry{Hash: cur, Commit: commit})

		for _, p := range commit.Parents {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return entries, nil
}

// MergeBase returns the nearest common ancestor of a and b, walking all
// parents breadth-first so the closest shared commit wins. Returns the
// zero hash when the two histories share no commit.
func (r *Repo) MergeBase(a, b object.Hash) (object.Hash, error) {
	ancestorsOfA := map[object.Hash]bool{a: true}
	queue := []object.Hash{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) {
				continue
			}
			return "", fmt.Errorf("merge base: read commit %s: %w", cur.Short(), err)
		}
		for _, p := range commit.Parents {
			if !ancestorsOfA[p] {
				ancestorsOfA[p] = true
				queue = append(queue, p)
			}
		}
	}

	seen := map[object.Hash]bool{b: true}
	queue = []object.Hash{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if ancestorsOfA[cur] {
			return cur, nil
		}

		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) {
				continue
			}
			return "", fmt.Errorf("merge base: read commit %s: %w", cur.Short(), err)
		}
		for _, p := range commit.Parents {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return r.Algorithm().ZeroHash(), nil
}

// IsAncestor reports whether ancestor is reachable from descendant by
// following parents. A commit is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	seen := map[object.Hash]bool{descendant: true}
	queue := []object.Hash{descendant}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) {
				continue
			}
			return false, fmt.Errorf("is ancestor: read commit %s: %w", cur.Short(), err)
		}
		for _, p := range commit.Parents {
			if p == ancestor {
				return true, nil
			}
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}
