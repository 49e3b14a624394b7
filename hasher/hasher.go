// Package hasher defines the Hasher capability the merkle tree engine
// consumes (spec §2, §9 "polymorphism over the hasher") and supplies a
// handful of concrete example implementations. MerkleTree never
// imports this package's concrete types -- it is generic over the
// Hasher interface, monomorphized per instantiation so no dynamic
// dispatch sits on the hot insertion/rehash path.
package hasher

// Hasher is the external collaborator supplied by the caller: the
// concrete cryptographic hash itself is explicitly out of scope for
// the core (spec §1). E is the caller's element type (a note, a
// nullifier, a bare string in tests); H is the hash type it produces.
type Hasher[E, H any] interface {
	// Hash computes the leaf hash of an element.
	Hash(element E) H

	// Combine computes the hash of an interior node at the given depth
	// (0 = just above the leaves) from its left and right children.
	// Depth is part of the input so a hasher can domain-separate by
	// level if desired (most do, to avoid tree-structure ambiguity
	// attacks against a depth-oblivious hash).
	Combine(depth int, left, right H) H

	// SerializeElement / DeserializeElement round-trip an element to
	// its on-disk byte form (spec §6.2's hasher.serializeElement).
	SerializeElement(element E) []byte
	DeserializeElement(b []byte) (E, error)

	// SerializeHash / DeserializeHash round-trip a hash to its on-disk
	// byte form. A Hasher whose HashSize is non-zero must serialize every
	// hash to exactly that width (32 bytes for SHA256Hasher and
	// KeccakHasher; StringHasher is variable-width).
	SerializeHash(h H) []byte
	DeserializeHash(b []byte) (H, error)

	// Equal reports whether two hashes are the same value. The tree
	// never compares H with ==, since H need not be comparable in
	// general (e.g. a hash wrapping a slice).
	Equal(a, b H) bool

	// ZeroHash is the placeholder sibling hash written into freshly
	// allocated nodes before rehashing fills in the real value (spec
	// §4.6.1's defaultValue, §9's note that it is never observed by
	// witness/root APIs once rehashing runs to completion).
	ZeroHash() H

	// ElementSize is the fixed byte width SerializeElement always
	// produces (e.g. 275 bytes for an encrypted note, 32 for a
	// nullifier, per spec §6.2), or 0 if elements are variable-width
	// (the storage layer then falls back to a length-prefixed
	// encoding instead of the bit-exact fixed layout).
	ElementSize() int

	// HashSize is the fixed byte width SerializeHash always produces
	// (32 for SHA256Hasher and KeccakHasher), or 0 if variable-width
	// (StringHasher).
	HashSize() int
}
