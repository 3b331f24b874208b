package repo

import (
	"fmt"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func TestLightweightTag(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")

	if err := r.CreateTag("v1.0.0", c, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.CreateTag("v1.0.0", c, false); err == nil {
		t.Error("duplicate tag without force should fail")
	}
	if err := r.CreateTag("v1.0.0", c, true); err != nil {
		t.Errorf("force re-tag: %v", err)
	}

	got, err := r.ResolveTag("v1.0.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if got != c {
		t.Errorf("ResolveTag: got %s, want %s", got, c)
	}
}

func TestAnnotatedTag(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")

	tagger := object.Ident{Name: "Rel", Email: "rel@example.com", When: 1700000000, TZ: "+0000"}
	tagHash, err := r.CreateAnnotatedTag("v2.0.0", c, tagger, "second release", nil, false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}

	// The ref points at the tag object, which points at the commit.
	refTarget, err := r.ResolveTag("v2.0.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if refTarget != tagHash {
		t.Errorf("tag ref target: got %s, want tag object %s", refTarget, tagHash)
	}

	tag, err := r.Store.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != c || tag.TargetType != object.TypeCommit || tag.Name != "v2.0.0" {
		t.Errorf("tag object: %+v", tag)
	}

	peeled, err := r.ResolveTagCommit("v2.0.0")
	if err != nil {
		t.Fatalf("ResolveTagCommit: %v", err)
	}
	if peeled != c {
		t.Errorf("ResolveTagCommit: got %s, want %s", peeled, c)
	}
}

func TestSignedAnnotatedTag(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")

	var signedPayload []byte
	signer := func(payload []byte) (string, error) {
		signedPayload = payload
		return fmt.Sprintf("fake-sig-%d", len(payload)), nil
	}

	tagger := object.Ident{Name: "Rel", Email: "rel@example.com", When: 1700000000, TZ: "+0000"}
	tagHash, err := r.CreateAnnotatedTag("v3.0.0", c, tagger, "signed", signer, false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag signed: %v", err)
	}
	if len(signedPayload) == 0 {
		t.Fatal("signer was not invoked")
	}

	tag, err := r.Store.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.Signature == "" {
		t.Error("signature not persisted")
	}
	// The payload the signer saw excludes the signature itself.
	if string(object.TagSigningPayload(tag)) != string(signedPayload) {
		t.Error("signing payload differs from persisted tag payload")
	}
}

func TestDeleteTag(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")
	if err := r.CreateTag("gone", c, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.DeleteTag("gone"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if r.TagExists("gone") {
		t.Error("tag still exists after delete")
	}
	if err := r.DeleteTag("gone"); err == nil {
		t.Error("DeleteTag on missing tag should fail")
	}
}

func TestListTags(t *testing.T) {
	r := testRepo(t)
	c := commitFileSet(t, r, map[string]string{"a.txt": "x"}, "init")
	for _, name := range []string{"v2", "v1", "v10"} {
		if err := r.CreateTag(name, c, false); err != nil {
			t.Fatalf("CreateTag %s: %v", name, err)
		}
	}
	names, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(names) != 3 || names[0] != "v1" || names[1] != "v10" || names[2] != "v2" {
		t.Errorf("ListTags: %v", names)
	}
}
