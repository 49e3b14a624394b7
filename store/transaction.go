package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

type txState int

const (
	txActive txState = iota
	txCommitting
	txCommitted
	txAborted
)

// Transaction is a single-writer handle combining a batch with a
// write-back cache and a deletion tombstone set, per spec §4.3. While a
// transaction is live it owns the database's write lock; reads consult
// the cache before falling through to the underlying store.
type Transaction struct {
	db *Database

	mu           sync.Mutex
	state        txState
	lockAcquired bool
	batch        KVBatch
	cache        map[string][]byte
	tombstones   map[string]struct{}
}

func newTransaction(db *Database) *Transaction {
	return &Transaction{
		db:         db,
		state:      txActive,
		cache:      make(map[string][]byte),
		tombstones: make(map[string]struct{}),
	}
}

// acquireLock lazily takes the database's FIFO write lock on first
// read or write, so a transaction that is constructed and immediately
// aborted never blocks another writer.
func (tx *Transaction) acquireLock(ctx context.Context) error {
	tx.mu.Lock()
	already := tx.lockAcquired
	tx.mu.Unlock()
	if already {
		return nil
	}
	if err := tx.db.lock.Lock(ctx); err != nil {
		return err
	}
	tx.mu.Lock()
	tx.lockAcquired = true
	if tx.batch == nil {
		tx.batch = tx.db.newKVBatch()
	}
	tx.mu.Unlock()
	return nil
}

func (tx *Transaction) checkActive() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state == txCommitting || tx.state == txCommitted {
		return ErrTransactionCommitting
	}
	return nil
}

// rawGet consults tombstones, then the cache, then reads through to
// the underlying store, populating the cache with what it finds.
func (tx *Transaction) rawGet(rawKey []byte) ([]byte, bool, error) {
	if err := tx.checkActive(); err != nil {
		return nil, false, err
	}
	if err := tx.acquireLock(context.Background()); err != nil {
		return nil, false, err
	}

	key := string(rawKey)
	tx.mu.Lock()
	if _, tomb := tx.tombstones[key]; tomb {
		tx.mu.Unlock()
		return nil, false, nil
	}
	if v, ok := tx.cache[key]; ok {
		tx.mu.Unlock()
		return append([]byte(nil), v...), true, nil
	}
	tx.mu.Unlock()

	v, err := tx.db.physical.Get(rawKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	cp := append([]byte(nil), v...)
	tx.mu.Lock()
	tx.cache[key] = cp
	tx.mu.Unlock()
	return cp, true, nil
}

// rawPut updates the cache, enqueues a put on the batch, and clears
// any tombstone for the key.
func (tx *Transaction) rawPut(rawKey, rawValue []byte) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	if err := tx.acquireLock(context.Background()); err != nil {
		return err
	}
	key := string(rawKey)
	val := append([]byte(nil), rawValue...)
	tx.mu.Lock()
	tx.cache[key] = val
	delete(tx.tombstones, key)
	tx.mu.Unlock()
	return tx.batch.Put(rawKey, rawValue)
}

// rawDel enqueues a delete on the batch, marks the cache entry
// deleted, and tombstones the key.
func (tx *Transaction) rawDel(rawKey []byte) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	if err := tx.acquireLock(context.Background()); err != nil {
		return err
	}
	key := string(rawKey)
	tx.mu.Lock()
	tx.cache[key] = nil
	tx.tombstones[key] = struct{}{}
	tx.mu.Unlock()
	return tx.batch.Delete(rawKey)
}

// snapshotInRange returns the subset of the transaction's cache and
// tombstones whose raw key falls within [gte, lt).
func (tx *Transaction) snapshotInRange(gte, lt []byte) ([]string, map[string][]byte, map[string]struct{}) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	inRange := func(k []byte) bool {
		if gte != nil && bytes.Compare(k, gte) < 0 {
			return false
		}
		if lt != nil && bytes.Compare(k, lt) >= 0 {
			return false
		}
		return true
	}

	keys := make([]string, 0, len(tx.cache))
	values := make(map[string][]byte, len(tx.cache))
	for k, v := range tx.cache {
		if !inRange([]byte(k)) {
			continue
		}
		keys = append(keys, k)
		values[k] = v
	}

	tombs := make(map[string]struct{}, len(tx.tombstones))
	for k := range tx.tombstones {
		if !inRange([]byte(k)) {
			continue
		}
		tombs[k] = struct{}{}
	}
	return keys, values, tombs
}

func (tx *Transaction) cacheKeysInRange(gte, lt []byte) []string {
	keys, _, _ := tx.snapshotInRange(gte, lt)
	return keys
}

// Commit writes the accumulated batch atomically and releases the
// write lock. Idempotent: committing an already-aborted or
// already-committed transaction is a no-op.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	if tx.state == txAborted || tx.state == txCommitted {
		tx.mu.Unlock()
		return nil
	}
	tx.state = txCommitting
	batch := tx.batch
	lockHeld := tx.lockAcquired
	tx.mu.Unlock()

	var err error
	if batch != nil {
		err = batch.Write()
	}

	tx.mu.Lock()
	tx.state = txCommitted
	tx.mu.Unlock()

	if lockHeld {
		tx.db.lock.Unlock()
	}
	return err
}

// Abort discards the transaction's pending writes and releases the
// lock if held. Idempotent.
func (tx *Transaction) Abort() error {
	tx.mu.Lock()
	if tx.state == txAborted || tx.state == txCommitted {
		tx.mu.Unlock()
		return nil
	}
	lockHeld := tx.lockAcquired
	tx.state = txAborted
	tx.cache = nil
	tx.tombstones = nil
	tx.mu.Unlock()

	if lockHeld {
		tx.db.lock.Unlock()
	}
	return nil
}

// Update commits the pending batch without releasing the write lock,
// so a caller can persist intermediate state while retaining exclusive
// access -- a mid-transaction durability point for callers that need
// one. Writes flushed by Update are in the store from then on: a later
// Abort discards only the writes made after the last Update.
func (tx *Transaction) Update() error {
	tx.mu.Lock()
	if tx.state != txActive {
		tx.mu.Unlock()
		return ErrTransactionCommitting
	}
	batch := tx.batch
	tx.mu.Unlock()
	if batch == nil {
		return nil
	}
	if err := batch.Write(); err != nil {
		return err
	}
	batch.Reset()
	return nil
}
