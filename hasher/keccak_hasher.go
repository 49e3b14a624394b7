package hasher

import (
	"fmt"

	"github.com/veilchain/coretree/core/types"
	"github.com/veilchain/coretree/crypto"
)

// Domain-separation tags following the same scheme as sha256_hasher.go
// (one leaf tag, one node tag) but with their own byte values, so the
// two example hashers are structurally identical apart from the
// underlying primitive and the tag values.
const (
	keccakDomainLeaf byte = 0x20
	keccakDomainNode byte = 0x21
)

// KeccakHasher hashes arbitrary byte-slice elements with
// domain-separated Keccak-256, grounded on the teacher's
// crypto/keccak.go (sha3.NewLegacyKeccak256). This is the hasher a
// caller would plug in when notes or nullifiers need to be
// bit-compatible with Ethereum-style Keccak hashing elsewhere in a
// larger node.
type KeccakHasher struct{}

var _ Hasher[[]byte, types.Hash] = KeccakHasher{}

func (KeccakHasher) Hash(element []byte) types.Hash {
	return crypto.Keccak256Hash([]byte{keccakDomainLeaf}, element)
}

func (KeccakHasher) Combine(depth int, left, right types.Hash) types.Hash {
	return crypto.Keccak256Hash([]byte{keccakDomainNode, byte(depth)}, left.Bytes(), right.Bytes())
}

func (KeccakHasher) SerializeElement(element []byte) []byte {
	out := make([]byte, len(element))
	copy(out, element)
	return out
}

func (KeccakHasher) DeserializeElement(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (KeccakHasher) SerializeHash(h types.Hash) []byte { return h.Bytes() }

func (KeccakHasher) DeserializeHash(b []byte) (types.Hash, error) {
	if len(b) != types.HashLength {
		return types.Hash{}, fmt.Errorf("hasher: expected %d-byte hash, got %d", types.HashLength, len(b))
	}
	return types.BytesToHash(b), nil
}

func (KeccakHasher) Equal(a, b types.Hash) bool { return a == b }

func (KeccakHasher) ZeroHash() types.Hash { return types.Hash{} }

// ElementSize/HashSize mirror SHA256Hasher: variable-width elements,
// fixed 32-byte hash output.
func (KeccakHasher) ElementSize() int { return 0 }
func (KeccakHasher) HashSize() int    { return types.HashLength }
