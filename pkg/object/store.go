package object

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Objects are immutable and addressed solely by content, so writes are
// idempotent and concurrent readers are always safe. A reader never observes
// a half-written object: writes go to a temp file and are renamed into place.
type Store struct {
	root string
	algo Algorithm

	chunkThreshold int64
	chunkSize      int64
	maxBlobSize    int64
}

// StoreConfig carries the tunables recorded in repository config. Zero
// values select the defaults (MaxBlobSize zero means unlimited).
type StoreConfig struct {
	ChunkThreshold int64
	ChunkSize      int64
	MaxBlobSize    int64
}

// NewStore creates a Store rooted at the given directory, hashing with the
// given algorithm. The objects/ subdirectory is created lazily on first
// write.
func NewStore(root string, algo Algorithm, cfg StoreConfig) *Store {
	s := &Store{
		root:           root,
		algo:           algo,
		chunkThreshold: cfg.ChunkThreshold,
		chunkSize:      cfg.ChunkSize,
		maxBlobSize:    cfg.MaxBlobSize,
	}
	if s.chunkThreshold <= 0 {
		s.chunkThreshold = DefaultChunkThreshold
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	return s
}

// Algorithm returns the digest algorithm every object in this store uses.
func (s *Store) Algorithm() Algorithm { return s.algo }

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash,
// without deserializing it.
func (s *Store) Has(h Hash) bool {
	if len(h) != s.algo.HexLen() {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. The on-disk format
// is "type len\0content". Writing an object that already exists is a no-op;
// that is the dedup guarantee.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	envelope := fmt.Sprintf("%s %d\x00", objType, len(data))
	raw := append([]byte(envelope), data...)

	h := HashObject(s.algo, objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	// Atomic write via temp + rename.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	dest := s.objectPath(h)
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// Every read re-hashes the stored bytes; a mismatch is a CorruptError and
// is never silently recovered.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if len(h) != s.algo.HexLen() {
		return "", nil, &NotFoundError{Hash: h}
	}
	path := s.objectPath(h)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, &NotFoundError{Hash: h}
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	// Parse envelope: "type len\0content"
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, &CorruptError{Hash: h, Path: path, Reason: "invalid format (no NUL)"}
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, &CorruptError{Hash: h, Path: path, Reason: fmt.Sprintf("invalid header %q", header)}
	}
	objType, err := ParseObjectType(parts[0])
	if err != nil {
		return "", nil, &CorruptError{Hash: h, Path: path, Reason: err.Error()}
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, &CorruptError{Hash: h, Path: path, Reason: fmt.Sprintf("invalid length %q", parts[1])}
	}
	if len(content) != length {
		return "", nil, &CorruptError{
			Hash: h, Path: path,
			Reason: fmt.Sprintf("length mismatch (header=%d, actual=%d)", length, len(content)),
		}
	}

	if got := HashObject(s.algo, objType, content); got != h {
		return "", nil, &CorruptError{
			Hash: h, Path: path,
			Reason: fmt.Sprintf("content re-hashes to %s", got),
		}
	}

	return objType, content, nil
}

// FindPrefix resolves a unique hash prefix (at least 4 hex characters) to a
// full object hash. Returns NotFoundError when nothing matches and
// ErrAmbiguousPrefix when more than one object does.
func (s *Store) FindPrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) == s.algo.HexLen() && ValidHex(prefix) {
		h := Hash(prefix)
		if s.Has(h) {
			return h, nil
		}
		return "", &NotFoundError{Hash: h}
	}
	if len(prefix) < 4 || len(prefix) > s.algo.HexLen() || !ValidHex(prefix) {
		return "", &NotFoundError{Hash: Hash(prefix)}
	}

	dir := filepath.Join(s.root, "objects", prefix[:2])
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Hash: Hash(prefix)}
		}
		return "", fmt.Errorf("find prefix %q: %w", prefix, err)
	}

	rest := prefix[2:]
	var found Hash
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), rest) {
			continue
		}
		if found != "" {
			return "", fmt.Errorf("prefix %q: %w", prefix, ErrAmbiguousPrefix)
		}
		found = Hash(prefix[:2] + e.Name())
	}
	if found == "" {
		return "", &NotFoundError{Hash: Hash(prefix)}
	}
	return found, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, &TypeMismatchError{Hash: h, Got: objType, Want: want}
	}
	return data, nil
}

// WriteBlob serializes and stores a Blob directly, bypassing the chunker.
// Most callers want WriteBlobData.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob without manifest expansion.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Write(TypeTree, data)
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Write(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	data, err := s.readTyped(h, TypeTag)
	if err != nil {
		return nil, err
	}
	return UnmarshalTag(data)
}
