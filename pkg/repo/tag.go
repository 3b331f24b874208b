package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/keelvcs/keel/pkg/object"
)

// TagSigner signs canonical tag payload bytes and returns an encoded
// signature string to be persisted in TagObj.Signature.
type TagSigner func(payload []byte) (string, error)

// CreateTag creates or updates a lightweight tag ref under refs/tags/.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	if !r.Store.Has(target) {
		return fmt.Errorf("create tag: object %s not in store", target)
	}

	if !force && r.TagExists(name) {
		return fmt.Errorf("create tag: tag %q already exists", name)
	}
	if err := r.UpdateRef("refs/tags/"+name, target); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// CreateAnnotatedTag creates or updates an annotated tag ref under
// refs/tags/. The ref points at a stored tag object, which in turn points
// at target. A non-nil signer produces a signed tag.
func (r *Repo) CreateAnnotatedTag(name string, target object.Hash, tagger object.Ident, message string, signer TagSigner, force bool) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if err := validateRefName(name); err != nil {
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("create annotated tag: message is required")
	}
	if tagger.Name == "" {
		tagger.Name = "unknown"
	}
	if tagger.When == 0 {
		now := time.Now()
		tagger.When = now.Unix()
		tagger.TZ = formatTimezoneOffset(now)
	}

	targetType, _, err := r.Store.Read(target)
	if err != nil {
		return "", fmt.Errorf("create annotated tag: read target %s: %w", target, err)
	}

	if !force && r.TagExists(name) {
		return "", fmt.Errorf("create annotated tag: tag %q already exists", name)
	}

	tagObj := &object.TagObj{
		TargetHash: target,
		TargetType: targetType,
		Name:       name,
		Tagger:     tagger,
		Message:    message + "\n",
	}
	if signer != nil {
		payload := object.TagSigningPayload(tagObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("create annotated tag: sign: %w", err)
		}
		tagObj.Signature = signature
	}

	tagHash, err := r.Store.WriteTag(tagObj)
	if err != nil {
		return "", fmt.Errorf("create annotated tag: write tag object: %w", err)
	}

	if err := r.UpdateRef("refs/tags/"+name, tagHash); err != nil {
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	return tagHash, nil
}

// DeleteTag removes a tag ref from refs/tags/.
func (r *Repo) DeleteTag(name string) error {
	name = strings.TrimSpace(name)
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	refPath := filepath.Join(r.KeelDir, "refs", "tags", filepath.FromSlash(name))
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete tag: tag %q does not exist", name)
		}
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// TagExists reports whether refs/tags/<name> exists.
func (r *Repo) TagExists(name string) bool {
	h, err := readRefHash(filepath.Join(r.KeelDir, "refs", "tags", filepath.FromSlash(name)))
	return err == nil && h != ""
}

// ResolveTag resolves a tag name under refs/tags/.
func (r *Repo) ResolveTag(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if err := validateRefName(name); err != nil {
		return "", fmt.Errorf("resolve tag: %w", err)
	}
	return r.ResolveRef("refs/tags/" + name)
}

// ResolveTagCommit resolves a tag name to the commit it ultimately points
// at, peeling an annotated tag object when present.
func (r *Repo) ResolveTagCommit(name string) (object.Hash, error) {
	h, err := r.ResolveTag(name)
	if err != nil {
		return "", err
	}
	tag, err := r.Store.ReadTag(h)
	if err == nil {
		return tag.TargetHash, nil
	}
	return h, nil
}

// ListTags lists tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	names := make([]string, 0, len(refs))
	for full := range refs {
		names = append(names, full[len("tags/"):])
	}
	sort.Strings(names)
	return names, nil
}

func formatTimezoneOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	minutes := (offset % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, hours, minutes)
}
