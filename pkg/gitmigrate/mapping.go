package gitmigrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// mappingFile is the per-repository table of migrated objects, stored in
// the metadata directory. One line per object: "<type> <source> <target>".
const mappingFile = "gitmap"

// Mapping records source SHA-1 to target hash for every migrated object.
// A source hash maps to exactly one target.
type Mapping struct {
	types   map[string]string      // source -> object type
	targets map[string]object.Hash // source -> target hash
}

func NewMapping() *Mapping {
	return &Mapping{
		types:   make(map[string]string),
		targets: make(map[string]object.Hash),
	}
}

// Add records one migrated object. Re-adding a source with a different
// target is an error; an identical re-add is a no-op.
func (m *Mapping) Add(objType, source string, target object.Hash) error {
	if existing, ok := m.targets[source]; ok {
		if existing == target {
			return nil
		}
		return fmt.Errorf("mapping: source %s already mapped to %s", source, existing)
	}
	m.types[source] = objType
	m.targets[source] = target
	return nil
}

// Lookup returns the target hash for a source SHA-1.
func (m *Mapping) Lookup(source string) (object.Hash, bool) {
	h, ok := m.targets[source]
	return h, ok
}

// Len returns the number of mapped objects.
func (m *Mapping) Len() int {
	return len(m.targets)
}

// Save writes the table under the metadata directory, sorted by source
// hash so the file is diffable across runs.
func (m *Mapping) Save(keelDir string) error {
	sources := make([]string, 0, len(m.targets))
	for s := range m.targets {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "%s %s %s\n", m.types[s], s, m.targets[s])
	}

	path := filepath.Join(keelDir, mappingFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

// LoadMapping reads a previously saved table.
func LoadMapping(keelDir string) (*Mapping, error) {
	f, err := os.Open(filepath.Join(keelDir, mappingFile))
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}
	defer f.Close()

	m := NewMapping()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 3 {
			return nil, fmt.Errorf("load mapping: malformed line %d", lineNo)
		}
		if err := m.Add(parts[0], parts[1], object.Hash(parts[2])); err != nil {
			return nil, fmt.Errorf("load mapping: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}
	return m, nil
}
