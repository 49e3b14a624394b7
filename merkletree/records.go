// Package merkletree implements the persistent, append-only,
// fixed-depth binary Merkle tree: the note-commitment/nullifier
// accumulator described in spec §3 and §4.6-4.7. It is the hardest
// component of the core -- node layout and right-path rehashing encode
// a non-trivial invariant linking physical storage indices to
// conceptual positions in a balanced binary tree.
package merkletree

import (
	"encoding/binary"
	"fmt"

	"github.com/veilchain/coretree/encoding"
	"github.com/veilchain/coretree/hasher"
)

// Side identifies whether a node is the left or right child of its
// parent. Leaf parity determines a leaf's side implicitly (even =
// left, odd = right); interior nodes record it explicitly.
type Side uint8

const (
	Left  Side = 0
	Right Side = 1
)

func (s Side) String() string {
	if s == Left {
		return "Left"
	}
	return "Right"
}

// nodeIndexSentinel is the reserved node index 0, meaning "no parent"
// / "above the root" (spec §3.1).
const nodeIndexSentinel uint32 = 0

// LeafRecord is the per-leaf-index record of spec §3.2.
type LeafRecord[E, H any] struct {
	Element     E
	MerkleHash  H
	ParentIndex uint32
}

// NodeRecord is the per-node-index record of spec §3.3. OtherIndex is
// ParentIndex when Side == Left, and LeftIndex when Side == Right; the
// two are never both meaningful at once, matching the tagged,
// disjoint-payload discriminated union spec §9 calls for.
type NodeRecord[H any] struct {
	Side          Side
	HashOfSibling H
	OtherIndex    uint32
}

func framed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

func readFramed(b []byte) (field, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("merkletree: truncated length-framed field")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	if uint32(len(b)-4) < n {
		return nil, nil, fmt.Errorf("merkletree: length-framed field overruns buffer")
	}
	return b[4 : 4+n], b[4+n:], nil
}

// leafEncoding implements encoding.Encoding[LeafRecord[E,H]], producing
// the bit-exact layout of spec §6.2 -- serializeElement(element) ||
// hash(32B) || parentIndex(u32 LE, 4B) -- whenever the hasher reports
// fixed-width elements and hashes, and falling back to a
// length-prefixed framing of either field when it does not (exercised
// by hasher.StringHasher in tests).
type leafEncoding[E, H any] struct {
	h hasher.Hasher[E, H]
}

func (e leafEncoding[E, H]) Serialize(v LeafRecord[E, H]) []byte {
	el := e.h.SerializeElement(v.Element)
	if e.h.ElementSize() <= 0 {
		el = framed(el)
	}
	hb := e.h.SerializeHash(v.MerkleHash)
	if e.h.HashSize() <= 0 {
		hb = framed(hb)
	}
	out := make([]byte, 0, len(el)+len(hb)+4)
	out = append(out, el...)
	out = append(out, hb...)
	out = append(out, encoding.U32LE.Serialize(v.ParentIndex)...)
	return out
}

func (e leafEncoding[E, H]) Deserialize(b []byte) (LeafRecord[E, H], error) {
	var zero LeafRecord[E, H]
	if len(b) < 4 {
		return zero, fmt.Errorf("merkletree: leaf record too short")
	}
	parentIndex, err := encoding.U32LE.Deserialize(b[len(b)-4:])
	if err != nil {
		return zero, err
	}
	rest := b[:len(b)-4]

	var elBytes, hBytes []byte
	if es, hs := e.h.ElementSize(), e.h.HashSize(); es > 0 && hs > 0 {
		if len(rest) != es+hs {
			return zero, fmt.Errorf("merkletree: leaf record has unexpected length %d, want %d", len(rest), es+hs)
		}
		elBytes, hBytes = rest[:es], rest[es:]
	} else {
		if es > 0 {
			if len(rest) < es {
				return zero, fmt.Errorf("merkletree: leaf record truncated before fixed-width element")
			}
			elBytes, rest = rest[:es], rest[es:]
		} else {
			elBytes, rest, err = readFramed(rest)
			if err != nil {
				return zero, err
			}
		}
		if hs > 0 {
			if len(rest) != hs {
				return zero, fmt.Errorf("merkletree: leaf record has unexpected hash length %d, want %d", len(rest), hs)
			}
			hBytes = rest
		} else {
			hBytes, rest, err = readFramed(rest)
			if err != nil {
				return zero, err
			}
			if len(rest) != 0 {
				return zero, fmt.Errorf("merkletree: leaf record has trailing bytes after framed hash")
			}
		}
	}

	element, err := e.h.DeserializeElement(elBytes)
	if err != nil {
		return zero, err
	}
	hv, err := e.h.DeserializeHash(hBytes)
	if err != nil {
		return zero, err
	}
	return LeafRecord[E, H]{Element: element, MerkleHash: hv, ParentIndex: parentIndex}, nil
}

// hashCodec is the slice of Hasher[E,H] that node records need: node
// records never carry an element, so nodeEncoding is generic over H
// alone rather than threading a phantom E through it.
type hashCodec[H any] interface {
	SerializeHash(h H) []byte
	DeserializeHash(b []byte) (H, error)
	HashSize() int
}

// nodeEncoding implements encoding.Encoding[NodeRecord[H]]: hash(32B)
// || side(1B) || otherIndex(u32 LE, 4B), 37 bytes total for any fixed
// 32-byte hash -- spec §6.2.
type nodeEncoding[H any] struct {
	h hashCodec[H]
}

// newNodeEncoding builds a nodeEncoding from any Hasher[E,H]: its
// method set already satisfies hashCodec[H].
func newNodeEncoding[E, H any](h hasher.Hasher[E, H]) nodeEncoding[H] {
	return nodeEncoding[H]{h: h}
}

func (e nodeEncoding[H]) Serialize(v NodeRecord[H]) []byte {
	hb := e.h.SerializeHash(v.HashOfSibling)
	if e.h.HashSize() <= 0 {
		hb = framed(hb)
	}
	out := make([]byte, 0, len(hb)+1+4)
	out = append(out, hb...)
	out = append(out, byte(v.Side))
	out = append(out, encoding.U32LE.Serialize(v.OtherIndex)...)
	return out
}

func (e nodeEncoding[H]) Deserialize(b []byte) (NodeRecord[H], error) {
	var zero NodeRecord[H]
	if len(b) < 5 {
		return zero, fmt.Errorf("merkletree: node record too short")
	}
	otherIndex, err := encoding.U32LE.Deserialize(b[len(b)-4:])
	if err != nil {
		return zero, err
	}
	side := Side(b[len(b)-5])
	hashBytes := b[:len(b)-5]

	if hs := e.h.HashSize(); hs > 0 {
		if len(hashBytes) != hs {
			return zero, fmt.Errorf("merkletree: node record has unexpected hash length %d, want %d", len(hashBytes), hs)
		}
	} else {
		var rest []byte
		hashBytes, rest, err = readFramed(hashBytes)
		if err != nil {
			return zero, err
		}
		if len(rest) != 0 {
			return zero, fmt.Errorf("merkletree: node record has trailing bytes after framed hash")
		}
	}

	hv, err := e.h.DeserializeHash(hashBytes)
	if err != nil {
		return zero, err
	}
	return NodeRecord[H]{Side: side, HashOfSibling: hv, OtherIndex: otherIndex}, nil
}
