package hasher

import (
	"bytes"
	"testing"

	"github.com/veilchain/coretree/core/types"
)

func TestStringHasherCombineFormat(t *testing.T) {
	h := StringHasher{}
	got := h.Combine(0, "a", "b")
	want := "<a|b-0>"
	if got != want {
		t.Fatalf("Combine() = %q, want %q", got, want)
	}
}

func TestStringHasherScenario1(t *testing.T) {
	// spec §8 scenario 1: add "a","b"; rootHash with D=3 structure-hasher.
	h := StringHasher{}
	a, b := h.Hash("a"), h.Hash("b")
	depth0 := h.Combine(0, a, b)
	depth1 := h.Combine(1, depth0, depth0)
	depth2 := h.Combine(2, depth1, depth1)
	want := "<<<a|b-0>|<a|b-0>-1>|<<a|b-0>|<a|b-0>-1>-2>"
	if depth2 != want {
		t.Fatalf("got %q, want %q", depth2, want)
	}
}

func TestSHA256HasherLeafVsNodeDomainSeparation(t *testing.T) {
	h := SHA256Hasher{}
	leaf := h.Hash([]byte{0xaa})
	node := h.Combine(0, leaf, leaf)
	if leaf == node {
		t.Fatal("leaf and node hashes of the same bytes must differ (domain separation)")
	}
}

func TestSHA256HasherDeterministic(t *testing.T) {
	h := SHA256Hasher{}
	a := h.Hash([]byte("note"))
	b := h.Hash([]byte("note"))
	if a != b {
		t.Fatal("hashing the same element twice must produce the same hash")
	}
}

func TestSHA256HasherSerializeRoundTrip(t *testing.T) {
	h := SHA256Hasher{}
	hv := h.Hash([]byte("x"))
	raw := h.SerializeHash(hv)
	got, err := h.DeserializeHash(raw)
	if err != nil || got != hv {
		t.Fatalf("round-trip failed: got %v, err %v", got, err)
	}
}

func TestSHA256HasherDeserializeWrongSize(t *testing.T) {
	h := SHA256Hasher{}
	if _, err := h.DeserializeHash([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for wrong-size hash bytes")
	}
}

func TestKeccakHasherDomainSeparation(t *testing.T) {
	h := KeccakHasher{}
	leaf := h.Hash([]byte{0xbb})
	node := h.Combine(0, leaf, leaf)
	if leaf == node {
		t.Fatal("leaf and node hashes must differ under domain separation")
	}
}

func TestKeccakHasherDiffersFromSHA256(t *testing.T) {
	sh := SHA256Hasher{}.Hash([]byte("same"))
	kh := KeccakHasher{}.Hash([]byte("same"))
	if bytes.Equal(sh.Bytes(), kh.Bytes()) {
		t.Fatal("SHA256Hasher and KeccakHasher should not agree on the same input")
	}
}

func TestSHA256HasherZeroHash(t *testing.T) {
	h := SHA256Hasher{}
	if !h.ZeroHash().IsZero() {
		t.Fatal("ZeroHash should be the zero types.Hash")
	}
	var _ types.Hash = h.ZeroHash()
}
