package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

var (
	// ErrRefCASMismatch reports a compare-and-swap update that lost to a
	// concurrent writer.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")
	// ErrRefUpdatedButReflogAppendFailed marks updates whose ref rename
	// succeeded but whose reflog entry could not be written.
	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")
	// ErrUnbornBranch is returned when HEAD points at a branch that has no
	// commits yet.
	ErrUnbornBranch = errors.New("branch has no commits yet")
	// ErrPastRoot is returned when a relative revision walks beyond a root
	// commit.
	ErrPastRoot = errors.New("revision walks past a root commit")
	// ErrRefNotFound is the sentinel behind RefNotFoundError.
	ErrRefNotFound = errors.New("ref not found")
	// ErrProtectedRef reports a ref change rejected by protection rules.
	ErrProtectedRef = errors.New("ref is protected")
	// ErrRepositoryCorrupted is the sentinel behind RepositoryCorruptedError.
	ErrRepositoryCorrupted = errors.New("repository corrupted")
)

// RefNotFoundError reports an unresolvable revision, with close-match
// suggestions when any exist.
type RefNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *RefNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("ref %q not found", e.Name)
	}
	return fmt.Sprintf("ref %q not found (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

func (e *RefNotFoundError) Is(target error) bool {
	return target == ErrRefNotFound
}

// RepositoryCorruptedError reports repository metadata that cannot be
// read or validated. Corruption is surfaced, never silently repaired;
// Path names the offending file for external recovery.
type RepositoryCorruptedError struct {
	Path   string
	Reason string
	Err    error
}

func (e *RepositoryCorruptedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository corrupted: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("repository corrupted: %s: %s", e.Path, e.Reason)
}

func (e *RepositoryCorruptedError) Unwrap() error { return e.Err }

func (e *RepositoryCorruptedError) Is(target error) bool {
	return target == ErrRepositoryCorrupted
}

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}
