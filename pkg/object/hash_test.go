package object

import "testing"

func TestParseAlgorithm(t *testing.T) {
	if _, err := ParseAlgorithm("sha1"); err != nil {
		t.Errorf("ParseAlgorithm(sha1): %v", err)
	}
	if _, err := ParseAlgorithm("sha256"); err != nil {
		t.Errorf("ParseAlgorithm(sha256): %v", err)
	}
	if _, err := ParseAlgorithm("md5"); err == nil {
		t.Error("ParseAlgorithm(md5) should fail")
	}
}

func TestHashBytesDeterminism(t *testing.T) {
	data := []byte("hello world")
	h1 := SHA256.HashBytes(data)
	h2 := SHA256.HashBytes(data)
	if h1 != h2 {
		t.Errorf("HashBytes not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("SHA256 hash length: got %d, want 64", len(h1))
	}
	if len(SHA1.HashBytes(data)) != 40 {
		t.Errorf("SHA1 hash length: got %d, want 40", len(SHA1.HashBytes(data)))
	}
}

func TestHashObjectEnvelope(t *testing.T) {
	data := []byte("hello")
	h1 := HashObject(SHA256, TypeBlob, data)
	h2 := SHA256.HashBytes(data)
	if h1 == h2 {
		t.Error("HashObject should differ from HashBytes due to envelope")
	}

	// Same type+data => same hash
	h3 := HashObject(SHA256, TypeBlob, data)
	if h1 != h3 {
		t.Error("HashObject not deterministic")
	}

	// Different type => different hash
	h4 := HashObject(SHA256, TypeCommit, data)
	if h1 == h4 {
		t.Error("Different types should produce different hashes")
	}

	// Different algorithm => different length
	h5 := HashObject(SHA1, TypeBlob, data)
	if len(h5) != 40 {
		t.Errorf("SHA1 envelope hash length: got %d, want 40", len(h5))
	}
}

func TestZeroHash(t *testing.T) {
	if len(SHA1.ZeroHash()) != 40 || len(SHA256.ZeroHash()) != 64 {
		t.Error("ZeroHash length mismatch")
	}
	for _, c := range string(SHA256.ZeroHash()) {
		if c != '0' {
			t.Errorf("ZeroHash contains non-zero character %c", c)
		}
	}
}

func TestHashIsLowerHex(t *testing.T) {
	h := SHA256.HashBytes([]byte("test"))
	if !ValidHex(string(h)) {
		t.Errorf("Hash is not lowercase hex: %q", h)
	}
	if ValidHex("XYZ") {
		t.Error("ValidHex accepted non-hex input")
	}
	if ValidHex("") {
		t.Error("ValidHex accepted empty input")
	}
}
