package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryDB is an in-memory KeyValueStore, used by tests and by callers
// that do not need persistence across process restarts. Grounded on
// core/rawdb/memorydb.go's MemoryDB: a mutex-guarded map plus a
// sorted-keys scan for iteration, generalized from prefix-only
// iteration to a [gte, lt) range bound.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryDB constructs an empty in-memory store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (db *MemoryDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	db.data[string(k)] = v
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemoryDB) Close() error { return nil }

func (db *MemoryDB) Compact(start, limit []byte) error { return nil }

func (db *MemoryDB) Size() (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var n int64
	for k, v := range db.data {
		n += int64(len(k) + len(v))
	}
	return n, nil
}

func (db *MemoryDB) sortedKeysInRange(gte, lt []byte) []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		kb := []byte(k)
		if gte != nil && bytes.Compare(kb, gte) < 0 {
			continue
		}
		if lt != nil && bytes.Compare(kb, lt) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (db *MemoryDB) NewIterator(gte, lt []byte) (Iterator, error) {
	keys := db.sortedKeysInRange(gte, lt)
	return &memIterator{db: db, keys: keys, pos: -1}, nil
}

func (db *MemoryDB) NewReverseIterator(gte, lt []byte) (Iterator, error) {
	keys := db.sortedKeysInRange(gte, lt)
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return &memIterator{db: db, keys: keys, pos: -1}, nil
}

type memIterator struct {
	db   *MemoryDB
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()
	v := it.db.data[it.keys[it.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (it *memIterator) Error() error { return nil }
func (it *memIterator) Release()     {}

// NewBatch implements Batcher.
func (db *MemoryDB) NewBatch() KVBatch {
	return &memBatch{db: db}
}

type memOp struct {
	del   bool
	key   []byte
	value []byte
}

type memBatch struct {
	db   *MemoryDB
	ops  []memOp
	size int
}

func (b *memBatch) Put(key, value []byte) error {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, memOp{key: k, value: v})
	b.size += len(k) + len(v)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, memOp{del: true, key: k})
	b.size += len(k)
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.del {
			delete(b.db.data, string(op.key))
		} else {
			b.db.data[string(op.key)] = op.value
		}
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}
