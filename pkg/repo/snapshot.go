package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/keelvcs/keel/pkg/object"
)

// Snapshot records the entire working directory as a new commit on the
// current branch. Blobs go through the chunking write path, so large files
// land as manifests without the caller noticing. On a branch the branch ref
// advances; on a detached HEAD the HEAD file itself moves.
func (r *Repo) Snapshot(message string, author object.Ident) (object.Hash, error) {
	files, err := r.scanWorktree()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	var parents []object.Hash
	head, err := r.Head()
	switch {
	case err == nil:
		parents = []object.Hash{head.Target}
	case errors.Is(err, ErrUnbornBranch):
		// First commit on this branch.
	default:
		return "", fmt.Errorf("snapshot: %w", err)
	}

	commitHash, err := r.CommitFiles(files, message, author, parents)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	if head.Symbolic != "" {
		branch := head.Symbolic[len("refs/heads/"):]
		if err := r.UpdateBranch(branch, commitHash); err != nil {
			return "", fmt.Errorf("snapshot: %w", err)
		}
	} else {
		if err := r.SetHeadDetached(commitHash); err != nil {
			return "", fmt.Errorf("snapshot: %w", err)
		}
	}
	return commitHash, nil
}

// CommitFiles writes a commit for the given file set without touching any
// ref. Callers decide where the commit lands.
func (r *Repo) CommitFiles(files FileSet, message string, author object.Ident, parents []object.Hash) (object.Hash, error) {
	treeHash, err := r.BuildTree(files)
	if err != nil {
		return "", err
	}

	if author.When == 0 {
		now := time.Now()
		author.When = now.Unix()
		author.TZ = formatTimezoneOffset(now)
	}
	if author.Name == "" {
		author.Name = "unknown"
	}

	commitHash, err := r.Store.WriteCommit(&object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Committer: author,
		Message:   message,
	})
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	return commitHash, nil
}

// scanWorktree walks the working directory, writing every regular file's
// content as a blob and returning the resulting file set. The metadata
// directory is skipped.
func (r *Repo) scanWorktree() (FileSet, error) {
	files := make(FileSet)
	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == r.KeelDir {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		var content []byte
		mode := object.ModeFile
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", name, err)
			}
			content = []byte(target)
			mode = object.ModeSymlink
		case info.Mode().IsRegular():
			content, err = os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			if info.Mode()&0o111 != 0 {
				mode = object.ModeExecutable
			}
		default:
			// Sockets, devices and such are not versionable.
			return nil
		}

		blobHash, err := r.Store.WriteBlobData(content)
		if err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		files[name] = FileState{BlobHash: blobHash, Mode: mode}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
