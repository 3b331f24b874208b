package gitmigrate

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CanMigrate reports whether gitDir looks like a migratable Git
// repository. The issues list explains a false result.
func CanMigrate(gitDir string) (bool, []string) {
	var issues []string

	info, err := os.Stat(gitDir)
	if err != nil {
		issues = append(issues, fmt.Sprintf("%s: %v", gitDir, err))
		return false, issues
	}
	if !info.IsDir() {
		issues = append(issues, fmt.Sprintf("%s is not a directory", gitDir))
		return false, issues
	}

	if info, err := os.Stat(filepath.Join(gitDir, "objects")); err != nil || !info.IsDir() {
		issues = append(issues, "no objects directory")
	}
	if _, err := os.Stat(filepath.Join(gitDir, "HEAD")); err != nil {
		issues = append(issues, "no HEAD file")
	}

	return len(issues) == 0, issues
}

// RepoStats summarizes a Git repository before migration.
type RepoStats struct {
	ObjectCount  int
	Branches     int
	Tags         int
	HasPackFiles bool
}

// Stats inspects a Git repository without reading object contents.
// Packed objects are counted from the pack index fanout table, so large
// repositories stay cheap to survey.
func Stats(gitDir string) (*RepoStats, error) {
	g, err := openGitRepo(gitDir)
	if err != nil {
		return nil, err
	}

	stats := &RepoStats{}

	looseIDs, err := g.loose.ids()
	if err != nil {
		return nil, err
	}
	stats.ObjectCount = len(looseIDs)

	packDir := filepath.Join(gitDir, "objects", "pack")
	if entries, err := os.ReadDir(packDir); err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".idx") {
				continue
			}
			stats.HasPackFiles = true
			n, err := packIndexObjectCount(filepath.Join(packDir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("pack index %s: %w", e.Name(), err)
			}
			stats.ObjectCount += n
		}
	}

	refs, err := g.refs()
	if err != nil {
		return nil, err
	}
	for name := range refs {
		switch {
		case strings.HasPrefix(name, "refs/heads/"):
			stats.Branches++
		case strings.HasPrefix(name, "refs/tags/"):
			stats.Tags++
		}
	}
	return stats, nil
}

// packIndexObjectCount reads the last fanout slot of a v2 pack index,
// which holds the total object count.
func packIndexObjectCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var header [8]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if string(header[:4]) != "\xfftOc" {
		return 0, fmt.Errorf("bad index magic")
	}
	if version := binary.BigEndian.Uint32(header[4:8]); version != 2 {
		return 0, fmt.Errorf("unsupported index version %d", version)
	}

	// Fanout table: 256 big-endian uint32 starting at byte 8; slot 255
	// is cumulative over all first bytes.
	var last [4]byte
	if _, err := f.ReadAt(last[:], 8+255*4); err != nil {
		return 0, fmt.Errorf("read fanout: %w", err)
	}
	return int(binary.BigEndian.Uint32(last[:])), nil
}
