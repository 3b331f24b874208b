package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/keelvcs/keel/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Head describes the current HEAD state. Symbolic holds the ref path
// ("refs/heads/main") when HEAD points at a branch, and is empty when HEAD
// is detached. Target is the resolved commit hash; for an unborn branch it
// is the all-zeros hash.
type Head struct {
	Symbolic string
	Target   object.Hash
}

// Detached reports whether HEAD points directly at a commit.
func (h Head) Detached() bool {
	return h.Symbolic == ""
}

func (r *Repo) readHeadFile() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.KeelDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Head reads .keel/HEAD and resolves it. An unborn branch (symbolic HEAD at
// a branch with no ref file) yields the zero hash and ErrUnbornBranch.
func (r *Repo) Head() (Head, error) {
	content, err := r.readHeadFile()
	if err != nil {
		return Head{}, err
	}

	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		h, err := readRefHash(filepath.Join(r.KeelDir, filepath.FromSlash(ref)))
		if err != nil {
			return Head{}, fmt.Errorf("head: %w", err)
		}
		if h == "" {
			return Head{Symbolic: ref, Target: r.Algorithm().ZeroHash()}, ErrUnbornBranch
		}
		return Head{Symbolic: ref, Target: h}, nil
	}
	return Head{Target: object.Hash(content)}, nil
}

// CurrentBranch returns the branch name HEAD points at, or "" when HEAD is
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	content, err := r.readHeadFile()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if name, ok := strings.CutPrefix(content, "ref: refs/heads/"); ok {
		return name, nil
	}
	return "", nil
}

// SetHeadBranch points HEAD at the named branch. The branch may be unborn.
func (r *Repo) SetHeadBranch(name string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	content := "ref: refs/heads/" + name + "\n"
	if err := os.WriteFile(filepath.Join(r.KeelDir, "HEAD"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}

// SetHeadDetached points HEAD directly at a commit. The object must exist
// in the store.
func (r *Repo) SetHeadDetached(h object.Hash) error {
	if !r.Store.Has(h) {
		return fmt.Errorf("set head: object %s not in store", h)
	}
	if err := os.WriteFile(filepath.Join(r.KeelDir, "HEAD"), []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}

// ListRefs lists references under .keel/refs. Names are returned relative
// to refs root, e.g. "heads/main", "tags/v1".
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(r.KeelDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs[name] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

// ResolveRef resolves a revision expression to an object hash.
//
// Resolution order:
//  1. "HEAD" resolves through the HEAD file (symbolic or detached).
//  2. Names starting with "refs/" read .keel/<name>.
//  3. Bare names try "refs/heads/<name>", then "refs/tags/<name>".
//  4. Hex strings of four or more characters try a unique object prefix.
//
// A "~<n>" suffix walks n first-parent steps from whatever the base
// resolves to; walking past a root commit yields ErrPastRoot.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	base, steps, err := splitRelative(name)
	if err != nil {
		return "", err
	}

	h, err := r.resolveBase(base)
	if err != nil {
		return "", err
	}
	for i := 0; i < steps; i++ {
		commit, err := r.Store.ReadCommit(h)
		if err != nil {
			return "", fmt.Errorf("resolve %q: read commit %s: %w", name, h.Short(), err)
		}
		if len(commit.Parents) == 0 {
			return "", fmt.Errorf("resolve %q: %w at %s", name, ErrPastRoot, h.Short())
		}
		h = commit.Parents[0]
	}
	return h, nil
}

func splitRelative(name string) (string, int, error) {
	idx := strings.Index(name, "~")
	if idx < 0 {
		return name, 0, nil
	}
	base := name[:idx]
	suffix := name[idx+1:]
	if base == "" {
		return "", 0, &RefNotFoundError{Name: name}
	}
	if suffix == "" {
		return base, 1, nil
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("resolve %q: bad ancestry count %q", name, suffix)
	}
	return base, n, nil
}

func (r *Repo) resolveBase(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		return head.Target, nil
	}

	if strings.HasPrefix(name, "refs/") {
		h, err := readRefHash(filepath.Join(r.KeelDir, filepath.FromSlash(name)))
		if err != nil {
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}
		if h == "" {
			return "", r.notFound(name)
		}
		return h, nil
	}

	for _, prefix := range []string{"refs/heads/", "refs/tags/"} {
		h, err := readRefHash(filepath.Join(r.KeelDir, filepath.FromSlash(prefix+name)))
		if err != nil {
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}
		if h != "" {
			return h, nil
		}
	}

	if object.ValidHex(name) {
		h, err := r.Store.FindPrefix(name)
		if err == nil {
			return h, nil
		}
		if errors.Is(err, object.ErrAmbiguousPrefix) {
			return "", err
		}
	}

	return "", r.notFound(name)
}

func (r *Repo) notFound(name string) error {
	return &RefNotFoundError{Name: name, Suggestions: r.suggestRefs(name)}
}

// suggestRefs collects branch and tag names within a small edit distance of
// the requested name.
func (r *Repo) suggestRefs(name string) []string {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil
	}
	var out []string
	for full := range refs {
		short := full
		short = strings.TrimPrefix(short, "heads/")
		short = strings.TrimPrefix(short, "tags/")
		if short == name {
			continue
		}
		if editDistance(name, short) <= 2 || strings.Contains(short, name) {
			out = append(out, short)
		}
	}
	sort.Strings(out)
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// UpdateBranch points refs/heads/<name> at hash. The hash must exist in the
// store so a crashed writer can never publish a dangling ref.
func (r *Repo) UpdateBranch(name string, h object.Hash) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	if !r.Store.Has(h) {
		return fmt.Errorf("update branch %q: object %s not in store", name, h)
	}
	return r.UpdateRef("refs/heads/"+name, h)
}

// UpdateRef writes a hash to the named ref file under .keel/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .keel/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it; an empty
// expected hash means the ref must not exist yet.
//
// Reflog append happens after the ref rename; if reflog append fails, the
// ref update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	refPath := filepath.Join(r.KeelDir, filepath.FromSlash(name))

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			wantOldHash,
			oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, "update"); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

func validateRefName(name string) error {
	if name == "" {
		return fmt.Errorf("ref name is required")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid ref name %q", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid ref name %q", name)
	}
	if strings.ContainsAny(name, " \t\n\r~^:?*[\\") {
		return fmt.Errorf("invalid ref name %q", name)
	}
	return nil
}
