package encoding

// PrefixEncoding composes a fixed-width prefix value P with a variable
// trailing key K into a single store key P||K. The prefix component
// must serialize to exactly prefixSize bytes -- this is what lets
// KeyRange below compute a tight [gte, lt) bound over every key sharing
// a given prefix without scanning the trailing component at all.
type PrefixEncoding[P, K any] struct {
	prefix     Encoding[P]
	key        Encoding[K]
	prefixSize int
}

// NewPrefixEncoding constructs a PrefixEncoding. prefixSize must match
// the byte length every value serialized by prefix produces; mismatches
// are caught at Serialize time via ErrPrefixSize.
func NewPrefixEncoding[P, K any](prefix Encoding[P], key Encoding[K], prefixSize int) *PrefixEncoding[P, K] {
	return &PrefixEncoding[P, K]{prefix: prefix, key: key, prefixSize: prefixSize}
}

// Serialize concatenates the serialized prefix and key components.
func (e *PrefixEncoding[P, K]) Serialize(p P, k K) ([]byte, error) {
	pb := e.prefix.Serialize(p)
	if len(pb) != e.prefixSize {
		return nil, ErrPrefixSize
	}
	kb := e.key.Serialize(k)
	out := make([]byte, 0, len(pb)+len(kb))
	out = append(out, pb...)
	out = append(out, kb...)
	return out, nil
}

// Deserialize splits a stored key back into its prefix and key
// components.
func (e *PrefixEncoding[P, K]) Deserialize(b []byte) (P, K, error) {
	var zp P
	var zk K
	if len(b) < e.prefixSize {
		return zp, zk, ErrPrefixSize
	}
	p, err := e.prefix.Deserialize(b[:e.prefixSize])
	if err != nil {
		return zp, zk, err
	}
	k, err := e.key.Deserialize(b[e.prefixSize:])
	if err != nil {
		return zp, zk, err
	}
	return p, k, nil
}

// KeyRange returns the half-open byte range [gte, lt) covering every
// serialized key whose prefix component equals p. Used by Store's
// prefix-scoped iteration to bound the underlying store's range scan
// instead of iterating every key in the namespace.
func (e *PrefixEncoding[P, K]) KeyRange(p P) (gte, lt []byte, err error) {
	pb := e.prefix.Serialize(p)
	if len(pb) != e.prefixSize {
		return nil, nil, ErrPrefixSize
	}
	gte = make([]byte, len(pb))
	copy(gte, pb)
	lt = IncrementBigEndian(pb)
	return gte, lt, nil
}

// PrefixArrayEncoding is PrefixEncoding specialized to a raw []byte key
// component -- the common case of a fixed-size prefix followed by an
// arbitrary-length byte string (e.g. a store name prefix followed by a
// caller-supplied key).
type PrefixArrayEncoding[P any] struct {
	*PrefixEncoding[P, []byte]
}

// NewPrefixArrayEncoding constructs a PrefixArrayEncoding using
// BufferEncoding for the trailing key component.
func NewPrefixArrayEncoding[P any](prefix Encoding[P], prefixSize int) *PrefixArrayEncoding[P] {
	return &PrefixArrayEncoding[P]{NewPrefixEncoding[P, []byte](prefix, BufferEncoding, prefixSize)}
}

// IncrementBigEndian returns the smallest byte slice strictly greater
// than every slice with prefix b, treating b as a big-endian integer
// and adding 1 with carry. If b is all 0xff (e.g. empty, or all-0xff
// bytes), it returns nil, meaning "no upper bound" -- the caller should
// treat a nil result as "scan to the end of the namespace".
//
// Grounded on core/rawdb/table.go's incrementBytes, generalized to
// return a new slice (PrefixEncoding callers must not mutate the
// caller-supplied prefix bytes in place).
func IncrementBigEndian(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out
		}
	}
	return nil
}
