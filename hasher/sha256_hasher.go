package hasher

import (
	"crypto/sha256"
	"fmt"

	"github.com/veilchain/coretree/core/types"
)

// Domain-separation tags for SHA256Hasher, grounded on the teacher's
// crypto/commitment_tree.go (ctDomainLeaf = 0x10, ctDomainNode = 0x11):
// leaves and interior nodes hash under distinct one-byte prefixes so a
// leaf hash can never collide with an interior node hash of the same
// bytes.
const (
	sha256DomainLeaf byte = 0x10
	sha256DomainNode byte = 0x11
)

// SHA256Hasher hashes arbitrary byte-slice elements (a serialized
// note, a nullifier) with domain-separated SHA-256. Depth is folded
// into the node domain tag as a single big-endian byte, sufficient for
// any tree depth used in practice (spec's default D = 32).
type SHA256Hasher struct{}

var _ Hasher[[]byte, types.Hash] = SHA256Hasher{}

func (SHA256Hasher) Hash(element []byte) types.Hash {
	h := sha256.New()
	h.Write([]byte{sha256DomainLeaf})
	h.Write(element)
	return types.BytesToHash(h.Sum(nil))
}

func (SHA256Hasher) Combine(depth int, left, right types.Hash) types.Hash {
	h := sha256.New()
	h.Write([]byte{sha256DomainNode, byte(depth)})
	h.Write(left.Bytes())
	h.Write(right.Bytes())
	return types.BytesToHash(h.Sum(nil))
}

func (SHA256Hasher) SerializeElement(element []byte) []byte {
	out := make([]byte, len(element))
	copy(out, element)
	return out
}

func (SHA256Hasher) DeserializeElement(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (SHA256Hasher) SerializeHash(h types.Hash) []byte { return h.Bytes() }

func (SHA256Hasher) DeserializeHash(b []byte) (types.Hash, error) {
	if len(b) != types.HashLength {
		return types.Hash{}, fmt.Errorf("hasher: expected %d-byte hash, got %d", types.HashLength, len(b))
	}
	return types.BytesToHash(b), nil
}

func (SHA256Hasher) Equal(a, b types.Hash) bool { return a == b }

func (SHA256Hasher) ZeroHash() types.Hash { return types.Hash{} }

// ElementSize reports 0: this generic hasher accepts arbitrary-length
// byte elements, so the leaf record falls back to a length-prefixed
// encoding for the element field. HashSize is always 32 (types.Hash).
func (SHA256Hasher) ElementSize() int { return 0 }
func (SHA256Hasher) HashSize() int    { return types.HashLength }
