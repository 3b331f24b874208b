package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/keelvcs/keel/pkg/object"
)

// Config stores repository-local settings. The hash algorithm is chosen at
// init and never changes afterward; threshold and size limits may be edited
// by hand between runs.
type Config struct {
	Core CoreConfig `toml:"core"`
}

type CoreConfig struct {
	Hash           string `toml:"hash"`
	ChunkThreshold int64  `toml:"chunk_threshold"`
	MaxBlobSize    int64  `toml:"max_blob_size"`
}

// Algorithm parses the configured hash algorithm.
func (c *Config) Algorithm() (object.Algorithm, error) {
	return object.ParseAlgorithm(c.Core.Hash)
}

func defaultConfig(algo object.Algorithm) *Config {
	return &Config{Core: CoreConfig{
		Hash:           string(algo),
		ChunkThreshold: object.DefaultChunkThreshold,
		MaxBlobSize:    0,
	}}
}

func configPath(keelDir string) string {
	return filepath.Join(keelDir, "config")
}

func readConfig(keelDir string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath(keelDir), &cfg); err != nil {
		return nil, &RepositoryCorruptedError{
			Path:   configPath(keelDir),
			Reason: "unreadable config",
			Err:    err,
		}
	}
	if _, err := cfg.Algorithm(); err != nil {
		return nil, &RepositoryCorruptedError{
			Path:   configPath(keelDir),
			Reason: "unrecognized hash algorithm",
			Err:    err,
		}
	}
	if cfg.Core.ChunkThreshold <= 0 {
		cfg.Core.ChunkThreshold = object.DefaultChunkThreshold
	}
	return &cfg, nil
}

// writeConfig atomically writes the TOML config file.
func writeConfig(keelDir string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(keelDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, configPath(keelDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// WriteConfig persists the repository config.
func (r *Repo) WriteConfig(cfg *Config) error {
	if err := writeConfig(r.KeelDir, cfg); err != nil {
		return err
	}
	r.Config = cfg
	return nil
}
