// Package store implements the transactional key/value storage
// abstraction the merkle tree engine runs on: ordered byte-keyed
// stores, atomic batches, and serializable single-writer transactions
// guarded by a per-database FIFO lock.
//
// Grounded on the teacher's core/rawdb package (database.go, memorydb.go,
// table.go, batch.go): the KeyValueStore/Iterator/Batcher interfaces
// below are a direct generalization of rawdb's KeyValueStore/Iterator/
// Batch, widened to range-bounded iteration (gte/lt) instead of
// prefix-only, since Store needs to intersect a store's own prefix
// range with a caller-supplied sub-range (spec §4.2's clear/getAllIter
// range parameter).
package store

// KeyValueReader is the read half of a physical key/value backend.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter is the write half of a physical key/value backend.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator walks a range of keys in ascending or descending byte order.
// Grounded on core/rawdb/memorydb.go's memIterator and table.go's
// tableIterator, generalized to a half-open [gte, lt) bound instead of
// a bare prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// KeyValueStore is a physical, ordered key/value backend: the
// "leveldb-class" store spec §6.1 assumes. Concrete implementations
// live in memory.go (tests), pebbledb.go, and leveldbdb.go.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter

	// NewIterator returns an Iterator over keys k with gte <= k < lt.
	// A nil gte means "from the beginning"; a nil lt means "to the end".
	NewIterator(gte, lt []byte) (Iterator, error)

	// NewReverseIterator is the descending-order counterpart, used by
	// Store's reverse iteration option.
	NewReverseIterator(gte, lt []byte) (Iterator, error)

	// Compact is a hint; implementations without a native compaction
	// step treat it as a no-op.
	Compact(start, limit []byte) error

	// Size returns an approximate on-disk byte size.
	Size() (int64, error)

	Close() error
}

// KVBatch is an accumulator of Put/Delete operations flushed atomically
// to a KeyValueStore by Write. This is the physical-layer batch that
// package store's own logical Batch (batch.go) translates into when it
// commits; a Transaction writes to one directly.
type KVBatch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher is implemented by any KeyValueStore capable of producing a
// native atomic batch (MemoryDB, pebble and goleveldb all do). A store
// without one gets a batch that replays operations individually
// (replayBatch in batch.go).
type Batcher interface {
	NewBatch() KVBatch
}
