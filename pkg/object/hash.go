package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Algorithm selects the digest function used for every object and ref in a
// repository. It is chosen once at init time, recorded in repository config,
// and never mixed: migration re-hashes instead.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// ParseAlgorithm validates a config string and returns the Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case SHA1:
		return SHA1, nil
	case SHA256:
		return SHA256, nil
	}
	return "", fmt.Errorf("unsupported hash algorithm %q (want %q or %q)", s, SHA1, SHA256)
}

// New returns a fresh hash.Hash for the algorithm. Panics on an unknown
// algorithm; callers go through ParseAlgorithm first.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	}
	panic(fmt.Sprintf("object: unknown algorithm %q", string(a)))
}

// HexLen returns the length of a hex-encoded digest: 40 for SHA-1, 64 for
// SHA-256.
func (a Algorithm) HexLen() int {
	switch a {
	case SHA1:
		return 40
	case SHA256:
		return 64
	}
	panic(fmt.Sprintf("object: unknown algorithm %q", string(a)))
}

// HashBytes computes the raw digest of data and returns it as a lowercase
// hex-encoded Hash.
func (a Algorithm) HashBytes(data []byte) Hash {
	h := a.New()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// ZeroHash returns the all-zero hash used as the "no object" marker in
// reflogs and mapping records.
func (a Algorithm) ZeroHash() Hash {
	b := make([]byte, a.HexLen())
	for i := range b {
		b[i] = '0'
	}
	return Hash(b)
}

// HashObject computes the digest of the envelope "type len\0content",
// mirroring Git's object hashing with a pluggable algorithm.
func HashObject(a Algorithm, objType ObjectType, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := a.New()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// ValidHex reports whether s is a plausible hex digest fragment.
func ValidHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
