package store

import "context"

// replayBatch is the Batcher fallback for a physical store that does
// not implement its own native atomic batch: operations are queued and
// then replayed individually against the store on Write. None of the
// three backends wired in (memory, pebble, goleveldb) actually need
// this path -- it exists so Database.newKVBatch never panics if a
// caller supplies a bespoke KeyValueStore that skips Batcher.
type replayBatch struct {
	db  *Database
	ops []memOp
}

func (b *replayBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

func (b *replayBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memOp{del: true, key: append([]byte(nil), key...)})
	return nil
}

func (b *replayBatch) ValueSize() int {
	n := 0
	for _, op := range b.ops {
		n += len(op.key) + len(op.value)
	}
	return n
}

func (b *replayBatch) Write() error {
	phys, err := b.db.activePhysical()
	if err != nil {
		return err
	}
	for _, op := range b.ops {
		if op.del {
			if err := phys.Delete(op.key); err != nil {
				return err
			}
		} else if err := phys.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *replayBatch) Reset() { b.ops = b.ops[:0] }

// BatchOp is one pending write in an explicit Batch: either a Put
// (Delete == false) or a Delete.
type BatchOp struct {
	Delete bool
	Key    []byte
	Value  []byte
}

// Batch is an append-only queue of put/del operations across one or
// more stores, committed atomically -- spec §4.4. Unlike a
// Transaction, a Batch carries no read cache: it is write-only, and is
// used directly by callers (explicit batches) and by CommitBatch. A
// Transaction does not use Batch; it accumulates its writes in a
// KVBatch of its own.
type Batch struct {
	db  *Database
	kv  KVBatch
	ops []BatchOp
}

// NewBatch returns a fresh, empty batch bound to db.
func (db *Database) NewBatch() *Batch {
	return &Batch{db: db, kv: db.newKVBatch()}
}

// Put enqueues a raw put.
func (b *Batch) Put(rawKey, rawValue []byte) error {
	b.ops = append(b.ops, BatchOp{Key: rawKey, Value: rawValue})
	return b.kv.Put(rawKey, rawValue)
}

// Delete enqueues a raw delete.
func (b *Batch) Delete(rawKey []byte) error {
	b.ops = append(b.ops, BatchOp{Delete: true, Key: rawKey})
	return b.kv.Delete(rawKey)
}

// Size returns the approximate accumulated byte size of the pending
// writes.
func (b *Batch) Size() int { return b.kv.ValueSize() }

// Len returns the number of pending operations.
func (b *Batch) Len() int { return len(b.ops) }

// Commit writes every pending operation atomically, under the
// database's write lock, and clears the queue.
func (b *Batch) Commit() error {
	if err := b.db.acquireWriteLock(context.Background()); err != nil {
		return err
	}
	defer b.db.releaseWriteLock()
	err := b.kv.Write()
	b.kv.Reset()
	b.ops = b.ops[:0]
	return err
}

// CommitBatch builds a batch from ops and commits it atomically --
// the "commits the supplied list atomically" half of spec §4.5's
// batch([writes]).
func (db *Database) CommitBatch(ops []BatchOp) error {
	b := db.NewBatch()
	for _, op := range ops {
		if op.Delete {
			if err := b.Delete(op.Key); err != nil {
				return err
			}
		} else if err := b.Put(op.Key, op.Value); err != nil {
			return err
		}
	}
	return b.Commit()
}
