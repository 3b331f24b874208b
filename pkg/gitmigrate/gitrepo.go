package gitmigrate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// gitRepo is a read-only view of a Git repository's object database and
// references, combining loose and packed objects behind one objectSource.
type gitRepo struct {
	dir    string
	loose  *looseSource
	packed *packSource
}

func openGitRepo(gitDir string) (*gitRepo, error) {
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("open git repo: %s is not a directory", gitDir)
	}
	if _, err := os.Stat(filepath.Join(gitDir, "objects")); err != nil {
		return nil, fmt.Errorf("open git repo: no objects directory in %s", gitDir)
	}

	loose := newLooseSource(gitDir)
	packed, err := newPackSource(gitDir, loose.read)
	if err != nil {
		return nil, fmt.Errorf("open git repo: %w", err)
	}
	return &gitRepo{dir: gitDir, loose: loose, packed: packed}, nil
}

// ids lists every object in the repository, loose and packed, sorted for
// deterministic walks.
func (g *gitRepo) ids() ([]string, error) {
	looseIDs, err := g.loose.ids()
	if err != nil {
		return nil, err
	}
	packedIDs, err := g.packed.ids()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(looseIDs)+len(packedIDs))
	var out []string
	for _, id := range append(looseIDs, packedIDs...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// read prefers the packed copy: packs are checksummed as a whole, and a
// repacked repository may hold stale loose duplicates.
func (g *gitRepo) read(id string) (*foreignObject, error) {
	if obj, err := g.packed.read(id); err == nil {
		return obj, nil
	}
	return g.loose.read(id)
}

// refs returns "refs/..." name to SHA-1 for every branch and tag,
// combining loose ref files with packed-refs. Loose files win, matching
// Git's own precedence.
func (g *gitRepo) refs() (map[string]string, error) {
	out := make(map[string]string)

	if data, err := os.ReadFile(filepath.Join(g.dir, "packed-refs")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
				// "^" lines carry peeled tag targets; the tag object
				// itself is migrated, so they are redundant here.
				continue
			}
			hash, name, ok := strings.Cut(line, " ")
			if !ok || len(hash) != 40 || !isHex(hash) {
				continue
			}
			out[name] = hash
		}
	}

	refsRoot := filepath.Join(g.dir, "refs")
	err := filepath.WalkDir(refsRoot, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(g.dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := strings.TrimSpace(string(data))
		if len(hash) == 40 && isHex(hash) {
			out[filepath.ToSlash(rel)] = hash
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("walk refs: %w", err)
	}
	return out, nil
}

// head returns the symbolic target ("refs/heads/main") or the detached
// hash, with a flag telling the two apart.
func (g *gitRepo) head() (target string, symbolic bool, err error) {
	data, err := os.ReadFile(filepath.Join(g.dir, "HEAD"))
	if err != nil {
		return "", false, fmt.Errorf("read HEAD: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		return ref, true, nil
	}
	return content, false, nil
}
