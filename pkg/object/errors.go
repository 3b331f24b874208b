package object

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks across the engine. The typed errors
// below carry the identifying data (hashes, paths) the CLI layer needs to
// render actionable messages.
var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrObjectCorrupted = errors.New("object corrupted")
	ErrTypeMismatch    = errors.New("object type mismatch")
	ErrChunkNotFound   = errors.New("chunk not found")
	ErrFileTooLarge    = errors.New("file exceeds maximum blob size")
	ErrAmbiguousPrefix = errors.New("ambiguous object prefix")
)

// NotFoundError reports a hash with no stored object.
type NotFoundError struct {
	Hash Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s: not found", e.Hash)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrObjectNotFound }

// CorruptError reports stored bytes that fail the integrity re-hash. It is
// never silently recovered; the hash and path support external repair flows.
type CorruptError struct {
	Hash   Hash
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("object %s: corrupted at %s: %s", e.Hash, e.Path, e.Reason)
}

func (e *CorruptError) Is(target error) bool { return target == ErrObjectCorrupted }

// TypeMismatchError reports a typed read against an object of another kind.
type TypeMismatchError struct {
	Hash Hash
	Got  ObjectType
	Want ObjectType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("object %s: type mismatch: got %q, want %q", e.Hash, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// ChunkError reports a chunk referenced by a manifest that could not be
// read back.
type ChunkError struct {
	Manifest Hash
	Chunk    Hash
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("manifest %s: chunk %s: %v", e.Manifest, e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

func (e *ChunkError) Is(target error) bool { return target == ErrChunkNotFound }

// FileTooLargeError reports a blob write rejected by the configured limit.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("blob of %d bytes exceeds maximum blob size %d", e.Size, e.Limit)
}

func (e *FileTooLargeError) Is(target error) bool { return target == ErrFileTooLarge }
