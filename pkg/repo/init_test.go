package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

// commitFileSet writes a commit from a file map without touching refs.
func commitFileSet(t *testing.T, r *Repo, files map[string]string, message string, parents ...object.Hash) object.Hash {
	t.Helper()
	fs := make(FileSet)
	for path, content := range files {
		h, err := r.Store.WriteBlobData([]byte(content))
		if err != nil {
			t.Fatalf("WriteBlobData %s: %v", path, err)
		}
		fs[path] = FileState{BlobHash: h}
	}
	who := object.Ident{Name: "Test", Email: "test@example.com", When: 1700000000, TZ: "+0000"}
	h, err := r.CommitFiles(fs, message, who, parents)
	if err != nil {
		t.Fatalf("CommitFiles: %v", err)
	}
	return h
}

func TestInitCreatesStructure(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, sub := range []string{"objects", "refs/heads", "refs/tags", "logs"} {
		p := filepath.Join(r.KeelDir, filepath.FromSlash(sub))
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("Missing directory %s", sub)
		}
	}

	head, err := os.ReadFile(filepath.Join(r.KeelDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if string(head) != "ref: refs/heads/main\n" {
		t.Errorf("HEAD: got %q", head)
	}

	if r.Algorithm() != object.SHA256 {
		t.Errorf("default algorithm: got %q", r.Algorithm())
	}
}

func TestInitTwiceFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Init(dir, Options{}); err == nil {
		t.Error("Second Init should fail")
	}
}

func TestInitSHA1(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, Options{Algorithm: object.SHA1})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if r.Algorithm() != object.SHA1 {
		t.Errorf("algorithm: got %q, want sha1", r.Algorithm())
	}

	// The choice persists through the config file.
	opened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Algorithm() != object.SHA1 {
		t.Errorf("reopened algorithm: got %q, want sha1", opened.Algorithm())
	}
}

func TestInitRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := Init(t.TempDir(), Options{Algorithm: "md5"}); err == nil {
		t.Error("Init should reject an unknown algorithm")
	}
}

func TestOpenWalksUpward(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	nested := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r, err := Open(nested)
	if err != nil {
		t.Fatalf("Open from nested dir: %v", err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir: got %q, want %q", r.RootDir, dir)
	}
}

func TestOpenOutsideRepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open outside a repository should fail")
	}
}

func TestOpenCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfgPath := filepath.Join(r.KeelDir, "config")
	if err := os.WriteFile(cfgPath, []byte("[core\nhash ="), 0o644); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}

	_, err = Open(dir)
	if !errors.Is(err, ErrRepositoryCorrupted) {
		t.Fatalf("Open with mangled config: got %v, want ErrRepositoryCorrupted", err)
	}
	var corrupt *RepositoryCorruptedError
	if !errors.As(err, &corrupt) || corrupt.Path != cfgPath {
		t.Errorf("corrupted error path = %+v", corrupt)
	}
}

func TestOpenUnknownConfiguredAlgorithm(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfg := "[core]\nhash = \"md5\"\nchunk_threshold = 1024\n"
	if err := os.WriteFile(filepath.Join(r.KeelDir, "config"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	if _, err := Open(dir); !errors.Is(err, ErrRepositoryCorrupted) {
		t.Errorf("Open with unknown algorithm: got %v, want ErrRepositoryCorrupted", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, Options{ChunkThreshold: 1234, MaxBlobSize: 9999})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if r.Config.Core.ChunkThreshold != 1234 || r.Config.Core.MaxBlobSize != 9999 {
		t.Errorf("config after init: %+v", r.Config.Core)
	}

	opened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Config.Core.ChunkThreshold != 1234 {
		t.Errorf("chunk_threshold lost on reopen: %+v", opened.Config.Core)
	}
	if opened.Config.Core.Hash != "sha256" {
		t.Errorf("hash lost on reopen: %+v", opened.Config.Core)
	}
}
