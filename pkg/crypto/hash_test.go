package crypto

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("note"))
	b := Hash([]byte("note"))
	if a != b {
		t.Error("Hash() should be deterministic")
	}
	if a == Hash([]byte("other")) {
		t.Error("different inputs should hash differently")
	}
}

func TestHashParts_LengthPrefixed(t *testing.T) {
	a := HashParts([]byte("ab"), []byte("c"))
	b := HashParts([]byte("a"), []byte("bc"))
	if a == b {
		t.Error("part boundaries must affect the hash")
	}
	if HashParts([]byte("abc")) == Hash([]byte("abc")) {
		t.Error("HashParts of one part should differ from plain Hash")
	}
}
