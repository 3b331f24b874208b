package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keelvcs/keel/pkg/object"
)

// Options controls repository creation.
type Options struct {
	// Algorithm selects the content hash. Empty means sha256.
	Algorithm object.Algorithm
	// ChunkThreshold overrides the size above which blobs are chunked.
	// Zero keeps the default.
	ChunkThreshold int64
	// MaxBlobSize rejects blobs larger than this many bytes. Zero means
	// unlimited.
	MaxBlobSize int64
}

// Init creates a new Keel repository at path. It creates the .keel/
// directory structure: HEAD, config, objects/, refs/heads/, refs/tags/,
// and logs/. Returns an error if a .keel/ directory already exists.
func Init(path string, opts Options) (*Repo, error) {
	keelDir := filepath.Join(path, ".keel")

	if _, err := os.Stat(keelDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", keelDir)
	}

	algo := opts.Algorithm
	if algo == "" {
		algo = object.SHA256
	}
	if _, err := object.ParseAlgorithm(string(algo)); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	dirs := []string{
		filepath.Join(keelDir, "objects"),
		filepath.Join(keelDir, "refs", "heads"),
		filepath.Join(keelDir, "refs", "tags"),
		filepath.Join(keelDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	cfg := defaultConfig(algo)
	if opts.ChunkThreshold > 0 {
		cfg.Core.ChunkThreshold = opts.ChunkThreshold
	}
	if opts.MaxBlobSize > 0 {
		cfg.Core.MaxBlobSize = opts.MaxBlobSize
	}
	if err := writeConfig(keelDir, cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	headPath := filepath.Join(keelDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir: path,
		KeelDir: keelDir,
		Config:  cfg,
		Store:   newStore(keelDir, cfg, algo),
	}, nil
}

// Open searches upward from path for a .keel/ directory and opens the
// repository. Returns an error if no .keel/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		keelDir := filepath.Join(cur, ".keel")
		info, err := os.Stat(keelDir)
		if err == nil && info.IsDir() {
			cfg, err := readConfig(keelDir)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			algo, _ := cfg.Algorithm()
			return &Repo{
				RootDir: cur,
				KeelDir: keelDir,
				Config:  cfg,
				Store:   newStore(keelDir, cfg, algo),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root without finding .keel/.
			return nil, fmt.Errorf("open: not a keel repository (or any parent up to /)")
		}
		cur = parent
	}
}

func newStore(keelDir string, cfg *Config, algo object.Algorithm) *object.Store {
	return object.NewStore(keelDir, algo, object.StoreConfig{
		ChunkThreshold: cfg.Core.ChunkThreshold,
		MaxBlobSize:    cfg.Core.MaxBlobSize,
	})
}
