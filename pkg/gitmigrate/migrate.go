package gitmigrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

// Phase names one stage of a migration run.
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseObjects  Phase = "objects"
	PhaseRefs     Phase = "refs"
	PhaseHead     Phase = "head"
	PhaseComplete Phase = "complete"
)

// Progress is one event on a migration's event stream.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	Item    string
}

// Options configures a migration run.
type Options struct {
	// GitDir is the source .git directory.
	GitDir string
	// TargetDir is where the new repository is created.
	TargetDir string
	// Algorithm selects the target hash. Empty means sha256.
	Algorithm object.Algorithm
	// ChunkThreshold overrides the target's large-file threshold.
	ChunkThreshold int64
	// OnProgress, when set, receives every event during Migrate.
	OnProgress func(Progress)
}

// ObjectError records a single object that could not be migrated. These
// are collected, never fatal: one unreadable object does not abort the
// run.
type ObjectError struct {
	ID   string
	Kind string
	Err  error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("migrate %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// Result summarizes a completed migration.
type Result struct {
	Blobs    int
	Trees    int
	Commits  int
	Tags     int
	Branches int
	TagRefs  int
	Errors   []ObjectError
}

// Job is a running migration. Events delivers a finite stream of Progress
// values and closes when the run ends; Wait blocks for the outcome. A Job
// is not restartable.
type Job struct {
	events chan Progress
	done   chan struct{}
	result *Result
	err    error
}

// Events returns the progress stream. The channel closes when the
// migration finishes or fails.
func (j *Job) Events() <-chan Progress {
	return j.events
}

// Wait blocks until the migration ends and returns its outcome.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.result, j.err
}

// Run starts a migration and returns immediately. The caller must drain
// Events (or ignore it; the channel is buffered against slow consumers
// only up to its window) and then Wait.
func Run(ctx context.Context, opts Options) *Job {
	j := &Job{
		events: make(chan Progress, 64),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(j.done)
		defer close(j.events)
		j.result, j.err = run(ctx, opts, j)
	}()
	return j
}

// Migrate runs a migration to completion, feeding events to
// opts.OnProgress. A fatal error removes whatever the run created under
// the target directory; a directory or repository that existed before
// the run is never touched.
func Migrate(ctx context.Context, opts Options) (*Result, error) {
	dirExisted := pathExists(opts.TargetDir)
	keelDir := filepath.Join(opts.TargetDir, ".keel")
	repoExisted := pathExists(keelDir)

	j := Run(ctx, opts)
	for p := range j.Events() {
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}
	result, err := j.Wait()
	if err != nil {
		switch {
		case !dirExisted:
			_ = os.RemoveAll(opts.TargetDir)
		case !repoExisted:
			_ = os.RemoveAll(keelDir)
		}
		return nil, err
	}
	return result, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (j *Job) emit(ctx context.Context, p Progress) error {
	select {
	case j.events <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func run(ctx context.Context, opts Options, j *Job) (*Result, error) {
	src, err := openGitRepo(opts.GitDir)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}

	ids, err := src.ids()
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	if err := j.emit(ctx, Progress{Phase: PhaseScanning, Total: len(ids)}); err != nil {
		return nil, err
	}

	result := &Result{}

	// Load every readable object up front, grouped by type. Unreadable
	// objects become collected errors here and are simply absent later.
	objects := make(map[string]*foreignObject, len(ids))
	var blobs, trees, commits, tags []string
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obj, err := src.read(id)
		if err != nil {
			result.Errors = append(result.Errors, ObjectError{ID: id, Kind: "object", Err: err})
			continue
		}
		objects[id] = obj
		switch obj.Type {
		case "blob":
			blobs = append(blobs, id)
		case "tree":
			trees = append(trees, id)
		case "commit":
			commits = append(commits, id)
		case "tag":
			tags = append(tags, id)
		default:
			result.Errors = append(result.Errors, ObjectError{
				ID: id, Kind: "object",
				Err: fmt.Errorf("unsupported type %q", obj.Type),
			})
		}
		if err := j.emit(ctx, Progress{Phase: PhaseScanning, Current: i + 1, Total: len(ids), Item: id}); err != nil {
			return nil, err
		}
	}

	target, err := repo.Init(opts.TargetDir, repo.Options{
		Algorithm:      opts.Algorithm,
		ChunkThreshold: opts.ChunkThreshold,
	})
	if err != nil {
		return nil, err
	}

	m := &migration{
		objects: objects,
		target:  target,
		mapping: NewMapping(),
		result:  result,
	}

	// Strict dependency order: blobs carry no references, trees reference
	// blobs and subtrees, commits reference trees and parent commits,
	// tags reference any of the above.
	total := len(blobs) + len(trees) + len(commits) + len(tags)
	current := 0
	step := func(id string) error {
		current++
		return j.emit(ctx, Progress{Phase: PhaseObjects, Current: current, Total: total, Item: id})
	}

	for _, id := range blobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.migrateBlob(id)
		if err := step(id); err != nil {
			return nil, err
		}
	}
	for _, id := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.migrateTree(id)
		if err := step(id); err != nil {
			return nil, err
		}
	}
	for _, id := range sortCommitsTopologically(commits, objects) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.migrateCommit(id)
		if err := step(id); err != nil {
			return nil, err
		}
	}
	for _, id := range sortTagsTopologically(tags, objects) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.migrateTag(id)
		if err := step(id); err != nil {
			return nil, err
		}
	}
	// Refs phase: branches and tag refs point at mapped objects.
	refs, err := src.refs()
	if err != nil {
		return nil, fmt.Errorf("refs: %w", err)
	}
	refNames := make([]string, 0, len(refs))
	for name := range refs {
		refNames = append(refNames, name)
	}
	sort.Strings(refNames)

	for i, name := range refNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mapped, ok := m.mapping.Lookup(refs[name])
		if !ok {
			result.Errors = append(result.Errors, ObjectError{
				ID: refs[name], Kind: "ref",
				Err: fmt.Errorf("ref %s points at unmigrated object", name),
			})
		} else {
			switch {
			case strings.HasPrefix(name, "refs/heads/"):
				if err := target.UpdateRef(name, mapped); err != nil {
					return nil, fmt.Errorf("refs: %w", err)
				}
				result.Branches++
			case strings.HasPrefix(name, "refs/tags/"):
				if err := target.UpdateRef(name, mapped); err != nil {
					return nil, fmt.Errorf("refs: %w", err)
				}
				result.TagRefs++
			}
			// Remote-tracking and other ref namespaces are not carried.
		}
		if err := j.emit(ctx, Progress{Phase: PhaseRefs, Current: i + 1, Total: len(refNames), Item: name}); err != nil {
			return nil, err
		}
	}

	// Head phase.
	headTarget, symbolic, err := src.head()
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}
	switch {
	case symbolic && strings.HasPrefix(headTarget, "refs/heads/"):
		if err := target.SetHeadBranch(strings.TrimPrefix(headTarget, "refs/heads/")); err != nil {
			return nil, fmt.Errorf("head: %w", err)
		}
	case !symbolic:
		if mapped, ok := m.mapping.Lookup(headTarget); ok {
			if err := target.SetHeadDetached(mapped); err != nil {
				return nil, fmt.Errorf("head: %w", err)
			}
		}
	}
	if err := j.emit(ctx, Progress{Phase: PhaseHead, Current: 1, Total: 1, Item: headTarget}); err != nil {
		return nil, err
	}

	if err := m.mapping.Save(target.KeelDir); err != nil {
		return nil, err
	}

	if err := j.emit(ctx, Progress{Phase: PhaseComplete, Current: total, Total: total}); err != nil {
		return nil, err
	}
	return result, nil
}

// migration carries the per-run state of the objects phase.
type migration struct {
	objects map[string]*foreignObject
	target  *repo.Repo
	mapping *Mapping
	result  *Result
}

func (m *migration) fail(id, kind string, err error) {
	m.result.Errors = append(m.result.Errors, ObjectError{ID: id, Kind: kind, Err: err})
}

func (m *migration) migrateBlob(id string) {
	obj := m.objects[id]
	h, err := m.target.Store.WriteBlobData(obj.Data)
	if err != nil {
		m.fail(id, "blob", err)
		return
	}
	if err := m.mapping.Add("blob", id, h); err != nil {
		m.fail(id, "blob", err)
		return
	}
	m.result.Blobs++
}

func (m *migration) migrateTree(id string) {
	if _, done := m.mapping.Lookup(id); done {
		return
	}
	obj := m.objects[id]

	entries, err := parseGitTree(obj.Data)
	if err != nil {
		m.fail(id, "tree", err)
		return
	}

	var out []object.TreeEntry
	for _, e := range entries {
		if e.Mode == "160000" {
			// Submodule pointer: the commit lives in another repository.
			m.fail(id, "tree", fmt.Errorf("submodule entry %q dropped", e.Name))
			continue
		}
		// Subtrees listed after this tree in scan order migrate on
		// demand so children always map before their parent.
		if e.Mode == "40000" || e.Mode == "040000" {
			if _, done := m.mapping.Lookup(e.ID); !done {
				if sub, ok := m.objects[e.ID]; ok && sub.Type == "tree" {
					m.migrateTree(e.ID)
				}
			}
		}
		mapped, ok := m.mapping.Lookup(e.ID)
		if !ok {
			m.fail(id, "tree", fmt.Errorf("entry %q references unmigrated object %s", e.Name, e.ID))
			return
		}
		out = append(out, object.TreeEntry{
			Name: e.Name,
			Mode: normalizeMode(e.Mode),
			Hash: mapped,
		})
	}

	h, err := m.target.Store.WriteTree(&object.TreeObj{Entries: out})
	if err != nil {
		m.fail(id, "tree", err)
		return
	}
	if err := m.mapping.Add("tree", id, h); err != nil {
		m.fail(id, "tree", err)
		return
	}
	m.result.Trees++
}

func (m *migration) migrateCommit(id string) {
	obj := m.objects[id]

	c, err := parseGitCommit(obj.Data)
	if err != nil {
		m.fail(id, "commit", err)
		return
	}

	tree, ok := m.mapping.Lookup(c.Tree)
	if !ok {
		m.fail(id, "commit", fmt.Errorf("tree %s not migrated", c.Tree))
		return
	}

	var parents []object.Hash
	for _, p := range c.Parents {
		mapped, ok := m.mapping.Lookup(p)
		if !ok {
			if _, exists := m.objects[p]; exists {
				// Parent present in the source but failed to migrate;
				// this commit cannot be represented faithfully.
				m.fail(id, "commit", fmt.Errorf("parent %s not migrated", p))
				return
			}
			// Parent absent from the source entirely (shallow clone):
			// drop it and leave a history boundary.
			m.fail(p, "commit", fmt.Errorf("parent of %s missing from source", id))
			continue
		}
		parents = append(parents, mapped)
	}

	h, err := m.target.Store.WriteCommit(&object.CommitObj{
		TreeHash:  tree,
		Parents:   parents,
		Author:    c.Author,
		Committer: c.Committer,
		Message:   c.Message,
	})
	if err != nil {
		m.fail(id, "commit", err)
		return
	}
	if err := m.mapping.Add("commit", id, h); err != nil {
		m.fail(id, "commit", err)
		return
	}
	m.result.Commits++
}

func (m *migration) migrateTag(id string) {
	obj := m.objects[id]

	t, err := parseGitTag(obj.Data)
	if err != nil {
		m.fail(id, "tag", err)
		return
	}

	mapped, ok := m.mapping.Lookup(t.Object)
	if !ok {
		m.fail(id, "tag", fmt.Errorf("target %s not migrated", t.Object))
		return
	}
	targetType, err := object.ParseObjectType(t.Type)
	if err != nil {
		m.fail(id, "tag", err)
		return
	}

	h, err := m.target.Store.WriteTag(&object.TagObj{
		TargetHash: mapped,
		TargetType: targetType,
		Name:       t.Name,
		Tagger:     t.Tagger,
		Message:    t.Message,
	})
	if err != nil {
		m.fail(id, "tag", err)
		return
	}
	if err := m.mapping.Add("tag", id, h); err != nil {
		m.fail(id, "tag", err)
		return
	}
	m.result.Tags++
}

// sortCommitsTopologically orders commits parents-first. Commits whose
// parents are outside the set sort as roots.
func sortCommitsTopologically(commits []string, objects map[string]*foreignObject) []string {
	inSet := make(map[string]bool, len(commits))
	for _, id := range commits {
		inSet[id] = true
	}

	visited := make(map[string]bool, len(commits))
	var out []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		if c, err := parseGitCommit(objects[id].Data); err == nil {
			for _, p := range c.Parents {
				if inSet[p] {
					visit(p)
				}
			}
		}
		out = append(out, id)
	}
	for _, id := range commits {
		visit(id)
	}
	return out
}

// sortTagsTopologically orders tags target-first, so a tag wrapping
// another tag migrates after the tag it points at regardless of scan
// order. Targets outside the tag set sort as leaves.
func sortTagsTopologically(tags []string, objects map[string]*foreignObject) []string {
	inSet := make(map[string]bool, len(tags))
	for _, id := range tags {
		inSet[id] = true
	}

	visited := make(map[string]bool, len(tags))
	var out []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		if t, err := parseGitTag(objects[id].Data); err == nil && inSet[t.Object] {
			visit(t.Object)
		}
		out = append(out, id)
	}
	for _, id := range tags {
		visit(id)
	}
	return out
}

func normalizeMode(mode string) string {
	switch mode {
	case "40000", "040000":
		return object.ModeDir
	case "100755":
		return object.ModeExecutable
	case "120000":
		return object.ModeSymlink
	default:
		return object.ModeFile
	}
}
