package store

import (
	"path/filepath"

	cockroacherrors "github.com/cockroachdb/errors"
	"github.com/syndtr/goleveldb/leveldb"
	levelerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is the alternative on-disk backend, demonstrating that
// package store's abstractions are genuinely backend-agnostic: the
// transaction and merkle tree layers above never see which of
// PebbleStore or LevelDBStore is underneath. Grounded the same way as
// pebbledb.go on core/rawdb/table.go's wrap-without-leaking pattern.
type LevelDBStore struct {
	db   *leveldb.DB
	lock *lockFile
}

// OpenLevelDBStore opens (creating if absent) a goleveldb store at dir.
func OpenLevelDBStore(dir string) (KeyValueStore, error) {
	lf, err := acquireLockFile(filepath.Join(dir, "LOCK.coretree"))
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		lf.release()
		if levelerrors.IsCorrupted(err) {
			return nil, cockroacherrors.Mark(err, ErrDatabaseIsCorrupt)
		}
		return nil, cockroacherrors.Mark(err, ErrDatabaseIsOpen)
	}
	return &LevelDBStore{db: db, lock: lf}, nil
}

func (l *LevelDBStore) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (l *LevelDBStore) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDBStore) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDBStore) NewIterator(gte, lt []byte) (Iterator, error) {
	it := l.db.NewIterator(&util.Range{Start: gte, Limit: lt}, nil)
	return &levelIterator{it: it, first: it.First, advance: it.Next}, nil
}

func (l *LevelDBStore) NewReverseIterator(gte, lt []byte) (Iterator, error) {
	it := l.db.NewIterator(&util.Range{Start: gte, Limit: lt}, nil)
	return &levelIterator{it: it, first: it.Last, advance: it.Prev}, nil
}

func (l *LevelDBStore) Compact(start, limit []byte) error {
	return l.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (l *LevelDBStore) Size() (int64, error) {
	sizes, err := l.db.SizeOf([]util.Range{{Start: nil, Limit: nil}})
	if err != nil {
		return 0, err
	}
	return sizes.Sum(), nil
}

func (l *LevelDBStore) Close() error {
	err := l.db.Close()
	l.lock.release()
	return err
}

func (l *LevelDBStore) NewBatch() KVBatch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

type levelIterator struct {
	it      iterator.Iterator
	started bool
	first   func() bool
	advance func() bool
}

func (li *levelIterator) Next() bool {
	if !li.started {
		li.started = true
		return li.first()
	}
	return li.advance()
}

func (li *levelIterator) Key() []byte {
	k := li.it.Key()
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

func (li *levelIterator) Value() []byte {
	v := li.it.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (li *levelIterator) Error() error { return li.it.Error() }
func (li *levelIterator) Release()     { li.it.Release() }

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *levelBatch) ValueSize() int { return len(b.batch.Dump()) }

func (b *levelBatch) Write() error { return b.db.Write(b.batch, nil) }

func (b *levelBatch) Reset() { b.batch.Reset() }
