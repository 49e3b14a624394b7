package store

import (
	"sort"

	"github.com/veilchain/coretree/encoding"
)

// KeyRange bounds a Store's iteration or Clear to keys k with
// Gte <= k < Lt, expressed in the store's own (unprefixed) encoded key
// space; Store re-prefixes both bounds with its 4-byte name prefix
// before touching the physical store. A nil Lt means "to the end of
// the store's own prefix range".
type KeyRange struct {
	Gte []byte
	Lt  []byte
}

// StoreOptions names a store and supplies the key/value encodings used
// to translate between caller types and raw bytes.
type StoreOptions[K, V any] struct {
	Name          string
	KeyEncoding   encoding.Encoding[K]
	ValueEncoding encoding.Encoding[V]
}

// Store is a typed view of a slice of the physical key/value
// namespace: spec §4.2. Every key it writes is its 4-byte name prefix
// concatenated with the serialized key, so many stores can coexist in
// one physical KeyValueStore.
type Store[K, V any] struct {
	db     *Database
	name   string
	prefix [4]byte
	keyEnc encoding.Encoding[K]
	valEnc encoding.Encoding[V]
}

func newStore[K, V any](db *Database, opts StoreOptions[K, V]) *Store[K, V] {
	return &Store[K, V]{
		db:     db,
		name:   opts.Name,
		prefix: namePrefix(opts.Name),
		keyEnc: opts.KeyEncoding,
		valEnc: opts.ValueEncoding,
	}
}

// Name returns the store's logical name.
func (s *Store[K, V]) Name() string { return s.name }

// Encode returns the fully prefixed raw key for k.
func (s *Store[K, V]) Encode(k K) []byte {
	raw := s.keyEnc.Serialize(k)
	out := make([]byte, 0, 4+len(raw))
	out = append(out, s.prefix[:]...)
	out = append(out, raw...)
	return out
}

// EncodeKV returns the fully prefixed raw key and the raw value for
// (k, v), used by batches and by iteration code to compare cache
// entries against physical keys.
func (s *Store[K, V]) EncodeKV(k K, v V) ([]byte, []byte) {
	return s.Encode(k), s.valEnc.Serialize(v)
}

func (s *Store[K, V]) checkTx(tx *Transaction) error {
	if tx != nil && tx.db != s.db {
		return ErrTransactionWrongDatabase
	}
	return nil
}

func (s *Store[K, V]) rawRead(rawKey []byte, tx *Transaction) ([]byte, bool, error) {
	if tx != nil {
		return tx.rawGet(rawKey)
	}
	return s.db.rawGet(rawKey)
}

// Get returns the stored value for k, or (zero, false, nil) if absent
// or if the stored bytes failed to decode (decode failure is treated
// as not-found, per spec §4.2).
func (s *Store[K, V]) Get(k K, tx *Transaction) (V, bool, error) {
	var zero V
	if err := s.checkTx(tx); err != nil {
		return zero, false, err
	}
	raw, found, err := s.rawRead(s.Encode(k), tx)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := s.valEnc.Deserialize(raw)
	if err != nil {
		return zero, false, nil
	}
	return v, true, nil
}

// Has reports whether k is present.
func (s *Store[K, V]) Has(k K, tx *Transaction) (bool, error) {
	if err := s.checkTx(tx); err != nil {
		return false, err
	}
	_, found, err := s.rawRead(s.Encode(k), tx)
	return found, err
}

// Put writes k -> v unconditionally.
func (s *Store[K, V]) Put(k K, v V, tx *Transaction) error {
	if err := s.checkTx(tx); err != nil {
		return err
	}
	rawKey, rawVal := s.EncodeKV(k, v)
	if tx != nil {
		return tx.rawPut(rawKey, rawVal)
	}
	return s.db.rawPut(rawKey, rawVal)
}

// Add writes k -> v, failing with ErrDuplicateKey if k already exists
// (including a pending write inside tx).
func (s *Store[K, V]) Add(k K, v V, tx *Transaction) error {
	if err := s.checkTx(tx); err != nil {
		return err
	}
	rawKey := s.Encode(k)
	_, found, err := s.rawRead(rawKey, tx)
	if err != nil {
		return err
	}
	if found {
		return ErrDuplicateKey
	}
	rawVal := s.valEnc.Serialize(v)
	if tx != nil {
		return tx.rawPut(rawKey, rawVal)
	}
	return s.db.rawPut(rawKey, rawVal)
}

// Del removes k.
func (s *Store[K, V]) Del(k K, tx *Transaction) error {
	if err := s.checkTx(tx); err != nil {
		return err
	}
	rawKey := s.Encode(k)
	if tx != nil {
		return tx.rawDel(rawKey)
	}
	return s.db.rawDel(rawKey)
}

// prefixRange returns the [gte, lt) bound covering every key under
// this store's own 4-byte prefix.
func (s *Store[K, V]) prefixRange() (gte, lt []byte) {
	p := append([]byte(nil), s.prefix[:]...)
	return p, encoding.IncrementBigEndian(p)
}

func (s *Store[K, V]) rangeBounds(r *KeyRange) (gte, lt []byte) {
	if r == nil {
		return s.prefixRange()
	}
	base := s.prefix[:]
	gte = append(append([]byte(nil), base...), r.Gte...)
	if r.Lt != nil {
		lt = append(append([]byte(nil), base...), r.Lt...)
	} else {
		_, lt = s.prefixRange()
	}
	return
}

// Clear deletes every key in the store's prefix, optionally
// intersected with r. When tx is non-nil, every deleted key is
// individually tombstoned so the transaction's own view agrees.
func (s *Store[K, V]) Clear(tx *Transaction, r *KeyRange) error {
	if err := s.checkTx(tx); err != nil {
		return err
	}
	gte, lt := s.rangeBounds(r)

	it, err := s.db.newIterator(gte, lt, false)
	if err != nil {
		return err
	}
	var physicalKeys [][]byte
	for it.Next() {
		physicalKeys = append(physicalKeys, append([]byte(nil), it.Key()...))
	}
	iterErr := it.Error()
	it.Release()
	if iterErr != nil {
		return iterErr
	}

	for _, k := range physicalKeys {
		if tx != nil {
			if err := tx.rawDel(k); err != nil {
				return err
			}
		} else if err := s.db.rawDel(k); err != nil {
			return err
		}
	}

	if tx != nil {
		for _, k := range tx.cacheKeysInRange(gte, lt) {
			if err := tx.rawDel([]byte(k)); err != nil {
				return err
			}
		}
	}
	return nil
}

// StoreIterator walks a range of decoded (key, value) pairs in key
// order, merging a transaction's cache with the physical store when a
// transaction is supplied.
type StoreIterator[K, V any] struct {
	inner     Iterator
	keyEnc    encoding.Encoding[K]
	valEnc    encoding.Encoding[V]
	prefixLen int
	err       error
}

func (it *StoreIterator[K, V]) Next() bool { return it.inner.Next() }

func (it *StoreIterator[K, V]) Key() K {
	var zero K
	raw := it.inner.Key()
	if len(raw) < it.prefixLen {
		it.err = ErrUnexpectedDatabaseState
		return zero
	}
	k, err := it.keyEnc.Deserialize(raw[it.prefixLen:])
	if err != nil {
		it.err = err
		return zero
	}
	return k
}

func (it *StoreIterator[K, V]) Value() V {
	var zero V
	v, err := it.valEnc.Deserialize(it.inner.Value())
	if err != nil {
		it.err = err
		return zero
	}
	return v
}

func (it *StoreIterator[K, V]) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}

func (it *StoreIterator[K, V]) Release() { it.inner.Release() }

// GetAllIter yields (k, v) pairs in key order (or reverse), merging
// the transaction's write-back cache with the underlying store per
// spec §4.2.
func (s *Store[K, V]) GetAllIter(tx *Transaction, r *KeyRange, reverse bool) (*StoreIterator[K, V], error) {
	if err := s.checkTx(tx); err != nil {
		return nil, err
	}
	gte, lt := s.rangeBounds(r)

	base, err := s.db.newIterator(gte, lt, reverse)
	if err != nil {
		return nil, err
	}

	if tx == nil {
		return &StoreIterator[K, V]{inner: base, keyEnc: s.keyEnc, valEnc: s.valEnc, prefixLen: len(s.prefix)}, nil
	}

	keys, values, tombs := tx.snapshotInRange(gte, lt)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}
	merged := newMergedIterator(base, keys, values, tombs, reverse)
	return &StoreIterator[K, V]{inner: merged, keyEnc: s.keyEnc, valEnc: s.valEnc, prefixLen: len(s.prefix)}, nil
}

// Keys collects every key in the given range. Provided as the "key
// projection" spec §4.2 calls for; callers iterating large stores
// should prefer GetAllIter.
func (s *Store[K, V]) Keys(tx *Transaction, r *KeyRange) ([]K, error) {
	it, err := s.GetAllIter(tx, r, false)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	var out []K
	for it.Next() {
		out = append(out, it.Key())
	}
	return out, it.Error()
}

// Values collects every value in the given range ("value projection").
func (s *Store[K, V]) Values(tx *Transaction, r *KeyRange) ([]V, error) {
	it, err := s.GetAllIter(tx, r, false)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	var out []V
	for it.Next() {
		out = append(out, it.Value())
	}
	return out, it.Error()
}
