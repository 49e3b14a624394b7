package merkletree

// hashCombiner is the slice of Hasher[E,H] a Witness needs to verify
// and serialize itself, without needing to know the element type E.
type hashCombiner[H any] interface {
	Combine(depth int, left, right H) H
	Equal(a, b H) bool
	SerializeHash(h H) []byte
}

// PathEntry is one step of a Witness's authentication path: Side
// records which side the path-holder's own subtree sits on at this
// depth, SiblingHash is the hash of the other side (spec §4.6.7-4.7).
type PathEntry[H any] struct {
	Side        Side
	SiblingHash H
}

// Witness is the immutable authentication path produced by
// MerkleTree.Witness: spec §4.7. It carries no reference to the tree
// it was built from and can be verified or serialized independently.
type Witness[H any] struct {
	treeSize uint32
	rootHash H
	path     []PathEntry[H]
	h        hashCombiner[H]
}

// TreeSize is the tree's leaf count at the time the witness was
// generated.
func (w *Witness[H]) TreeSize() uint32 { return w.treeSize }

// RootHash is the root the witness proves membership against.
func (w *Witness[H]) RootHash() H { return w.rootHash }

// Path returns a defensive copy of the authentication path, depth 0
// first.
func (w *Witness[H]) Path() []PathEntry[H] {
	out := make([]PathEntry[H], len(w.path))
	copy(out, w.path)
	return out
}

// Verify folds elementHash up through the authentication path (spec
// §4.6.8) and reports whether the result equals RootHash.
func (w *Witness[H]) Verify(elementHash H) bool {
	current := elementHash
	for d, entry := range w.path {
		if entry.Side == Left {
			current = w.h.Combine(d, current, entry.SiblingHash)
		} else {
			current = w.h.Combine(d, entry.SiblingHash, current)
		}
	}
	return w.h.Equal(current, w.rootHash)
}

// Serialize renders the witness as treeSize(u32 BE) || rootHash ||
// one (side byte, siblingHash) pair per path entry, per spec §4.7
// ("serializing each sibling hash via the hasher's hash-serde; the
// side is one byte").
func (w *Witness[H]) Serialize() []byte {
	rootBytes := w.h.SerializeHash(w.rootHash)
	out := make([]byte, 0, 4+len(rootBytes)+len(w.path)*(1+len(rootBytes)))
	out = append(out, byte(w.treeSize>>24), byte(w.treeSize>>16), byte(w.treeSize>>8), byte(w.treeSize))
	out = append(out, rootBytes...)
	for _, entry := range w.path {
		out = append(out, byte(entry.Side))
		out = append(out, w.h.SerializeHash(entry.SiblingHash)...)
	}
	return out
}
