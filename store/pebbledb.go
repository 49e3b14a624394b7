package store

import (
	"path/filepath"

	cockroacherrors "github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// PebbleStore is the primary on-disk KeyValueStore backend: an
// ordered, LSM-based store matching the "leveldb-class" assumption of
// spec §6.1. Grounded on the teacher's core/rawdb/table.go, which
// wraps a backing store without leaking its concrete type -- the same
// shape is followed here, translating pebble's own batch and iterator
// types to this package's KeyValueStore/KVBatch/Iterator interfaces.
type PebbleStore struct {
	db   *pebble.DB
	lock *lockFile
}

// OpenPebbleStore opens (creating if absent) a pebble store at dir,
// first taking the advisory lock file so a second process opening the
// same directory observes ErrDatabaseIsLocked (spec §4.5) instead of
// pebble's own, backend-specific lock error.
func OpenPebbleStore(dir string) (KeyValueStore, error) {
	lf, err := acquireLockFile(filepath.Join(dir, "LOCK.coretree"))
	if err != nil {
		return nil, err
	}
	opts := &pebble.Options{}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		lf.release()
		return nil, cockroacherrors.Mark(err, ErrDatabaseIsOpen)
	}
	return &PebbleStore{db: db, lock: lf}, nil
}

func (p *PebbleStore) Has(key []byte) (bool, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	_ = v
	return true, nil
}

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, nil
}

func (p *PebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleStore) NewIterator(gte, lt []byte) (Iterator, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: gte, UpperBound: lt})
	if err != nil {
		return nil, err
	}
	return &pebbleIterator{it: it, started: false, first: it.First}, nil
}

func (p *PebbleStore) NewReverseIterator(gte, lt []byte) (Iterator, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: gte, UpperBound: lt})
	if err != nil {
		return nil, err
	}
	return &pebbleIterator{it: it, started: false, first: it.Last, advance: it.Prev}, nil
}

func (p *PebbleStore) Compact(start, limit []byte) error {
	return p.db.Compact(start, limit, true)
}

func (p *PebbleStore) Size() (int64, error) {
	size, err := p.db.EstimateDiskUsage(nil, nil)
	return int64(size), err
}

func (p *PebbleStore) Close() error {
	err := p.db.Close()
	p.lock.release()
	return err
}

func (p *PebbleStore) NewBatch() KVBatch {
	return &pebbleBatch{db: p.db, batch: p.db.NewBatch()}
}

type pebbleIterator struct {
	it      *pebble.Iterator
	started bool
	first   func() bool
	advance func() bool // nil means forward (it.Next)
}

func (pi *pebbleIterator) Next() bool {
	if !pi.started {
		pi.started = true
		return pi.first()
	}
	if pi.advance != nil {
		return pi.advance()
	}
	return pi.it.Next()
}

func (pi *pebbleIterator) Key() []byte {
	k := pi.it.Key()
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

func (pi *pebbleIterator) Value() []byte {
	v := pi.it.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (pi *pebbleIterator) Error() error { return pi.it.Error() }
func (pi *pebbleIterator) Release()     { pi.it.Close() }

type pebbleBatch struct {
	db    *pebble.DB
	batch *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) error { return b.batch.Set(key, value, nil) }
func (b *pebbleBatch) Delete(key []byte) error      { return b.batch.Delete(key, nil) }
func (b *pebbleBatch) ValueSize() int               { return int(b.batch.Len()) }
func (b *pebbleBatch) Write() error                 { return b.batch.Commit(pebble.Sync) }
func (b *pebbleBatch) Reset()                       { b.batch.Reset() }
