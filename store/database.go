package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veilchain/coretree/encoding"
	"github.com/veilchain/coretree/log"
)

// Database owns the physical ordered key/value store, the FIFO write
// lock, the registry of stores, and a meta-store carrying the schema
// version -- spec §4.5. Grounded on core/rawdb/table.go's TableDB
// (a registry of named tables sharing one backing store) generalized
// with the locking and versioning spec §4.3/§4.5 require.
type Database struct {
	mu      sync.Mutex
	factory func() (KeyValueStore, error)

	physical KeyValueStore
	opened   bool

	cacheBytes int
	compress   bool

	lock *fifoLock

	storeNames  map[string]struct{}
	prefixNames map[[4]byte]string

	meta *Store[string, uint32]

	log *log.Logger
}

// Option configures optional wrapping of a Database's physical store
// at construction time.
type Option func(*Database)

// WithCache fronts the physical store with a bounded read-through
// byte cache (readcache.go), wrapping CompressedStore when both
// options are given. Intended for on-disk backends, where the merkle
// tree's right-spine interior nodes are re-read on almost every Add.
func WithCache(maxBytes int) Option {
	return func(db *Database) { db.cacheBytes = maxBytes }
}

// WithCompression Snappy-compresses values at or above
// compressionThreshold before they reach the physical store
// (compress.go).
func WithCompression() Option {
	return func(db *Database) { db.compress = true }
}

// wrapPhysical applies the configured Options around phys, cache
// outermost so a hit never pays the decompression cost.
func (db *Database) wrapPhysical(phys KeyValueStore) KeyValueStore {
	if db.compress {
		phys = NewCompressedStore(phys)
	}
	if db.cacheBytes > 0 {
		phys = NewCachedStore(phys, db.cacheBytes)
	}
	return phys
}

// NewDatabase wraps an already-open physical store. Used directly by
// tests and by callers that construct their own backend (e.g. a
// MemoryDB) ahead of time.
func NewDatabase(physical KeyValueStore, opts ...Option) *Database {
	db := &Database{
		opened:      physical != nil,
		lock:        newFifoLock(),
		storeNames:  make(map[string]struct{}),
		prefixNames: make(map[[4]byte]string),
		log:         log.Default().Module("store"),
	}
	for _, opt := range opts {
		opt(db)
	}
	if physical != nil {
		physical = db.wrapPhysical(physical)
	}
	db.physical = physical
	db.meta = mustAddStore(db, StoreOptions[string, uint32]{
		Name:          "meta",
		KeyEncoding:   encoding.StringEncoding,
		ValueEncoding: encoding.U32BE,
	})
	return db
}

// NewDatabaseWithFactory defers opening the physical store until
// Open is called, so that Open's error can be classified into
// ErrDatabaseIsOpen / ErrDatabaseIsLocked / ErrDatabaseIsCorrupt per
// spec §4.5.
func NewDatabaseWithFactory(factory func() (KeyValueStore, error), opts ...Option) *Database {
	db := &Database{
		factory:     factory,
		lock:        newFifoLock(),
		storeNames:  make(map[string]struct{}),
		prefixNames: make(map[[4]byte]string),
		log:         log.Default().Module("store"),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.meta = mustAddStore(db, StoreOptions[string, uint32]{
		Name:          "meta",
		KeyEncoding:   encoding.StringEncoding,
		ValueEncoding: encoding.U32BE,
	})
	return db
}

func mustAddStore[K, V any](db *Database, opts StoreOptions[K, V]) *Store[K, V] {
	s, err := AddStore(db, opts, true)
	if err != nil {
		// Only the database's own meta store is registered this way, at
		// construction time, against an empty registry -- collision is
		// impossible.
		panic(err)
	}
	return s
}

// AddStore registers a store against db before Open, per spec §4.5.
// It is a free function (not a method) because Go methods cannot
// carry their own type parameters beyond the receiver's.
func AddStore[K, V any](db *Database, opts StoreOptions[K, V], requireUnique bool) (*Store[K, V], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prefix := namePrefix(opts.Name)
	if requireUnique {
		if _, exists := db.storeNames[opts.Name]; exists {
			return nil, ErrStoreNameCollision
		}
		if other, exists := db.prefixNames[prefix]; exists && other != opts.Name {
			return nil, ErrStoreNameCollision
		}
	}
	db.storeNames[opts.Name] = struct{}{}
	db.prefixNames[prefix] = opts.Name
	return newStore(db, opts), nil
}

// Open opens the underlying physical store if it was constructed via
// NewDatabaseWithFactory; a no-op if already open.
func (db *Database) Open() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.opened {
		return nil
	}
	if db.physical == nil {
		if db.factory == nil {
			return ErrDatabaseIsOpen
		}
		phys, err := db.factory()
		if err != nil {
			if errors.Is(err, ErrDatabaseIsLocked) || errors.Is(err, ErrDatabaseIsCorrupt) {
				return err
			}
			return errors.Mark(err, ErrDatabaseIsOpen)
		}
		db.physical = db.wrapPhysical(phys)
	}
	db.opened = true
	return nil
}

// Close closes the underlying physical store; subsequent operations
// raise ErrDatabaseClosed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.opened || db.physical == nil {
		return ErrDatabaseClosed
	}
	err := db.physical.Close()
	db.opened = false
	return err
}

func (db *Database) activePhysical() (KeyValueStore, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.opened || db.physical == nil {
		return nil, ErrDatabaseClosed
	}
	return db.physical, nil
}

func (db *Database) rawGet(rawKey []byte) ([]byte, bool, error) {
	phys, err := db.activePhysical()
	if err != nil {
		return nil, false, err
	}
	v, err := phys.Get(rawKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (db *Database) rawPut(rawKey, rawValue []byte) error {
	phys, err := db.activePhysical()
	if err != nil {
		return err
	}
	return phys.Put(rawKey, rawValue)
}

func (db *Database) rawDel(rawKey []byte) error {
	phys, err := db.activePhysical()
	if err != nil {
		return err
	}
	return phys.Delete(rawKey)
}

func (db *Database) newIterator(gte, lt []byte, reverse bool) (Iterator, error) {
	phys, err := db.activePhysical()
	if err != nil {
		return nil, err
	}
	if reverse {
		return phys.NewReverseIterator(gte, lt)
	}
	return phys.NewIterator(gte, lt)
}

func (db *Database) newKVBatch() KVBatch {
	db.mu.Lock()
	phys := db.physical
	db.mu.Unlock()
	if b, ok := phys.(Batcher); ok {
		return b.NewBatch()
	}
	return &replayBatch{db: db}
}

// Transaction returns a new, lock-free-until-first-use transaction
// handle (spec §4.3).
func (db *Database) Transaction() *Transaction {
	return newTransaction(db)
}

// WithTransaction wraps an optional caller-provided transaction,
// creating one if absent and committing or aborting it accordingly; a
// caller-supplied transaction is left for the caller to commit/abort.
func (db *Database) WithTransaction(tx *Transaction, fn func(*Transaction) error) error {
	if tx != nil && tx.db != db {
		return ErrTransactionWrongDatabase
	}
	owned := tx == nil
	if owned {
		tx = db.Transaction()
	}
	err := fn(tx)
	if !owned {
		return err
	}
	if err != nil {
		if abortErr := tx.Abort(); abortErr != nil {
			return abortErr
		}
		return err
	}
	return tx.Commit()
}

// GetVersion reads the schema version from the meta store, 0 if never
// written.
func (db *Database) GetVersion(tx *Transaction) (uint32, error) {
	v, found, err := db.meta.Get("version", tx)
	if err != nil || !found {
		return 0, err
	}
	return v, nil
}

// PutVersion writes the schema version to the meta store.
func (db *Database) PutVersion(v uint32, tx *Transaction) error {
	return db.meta.Put("version", v, tx)
}

// Upgrade errors with DatabaseVersionError if the on-disk version does
// not match expected; the core never auto-migrates.
func (db *Database) Upgrade(expected uint32) error {
	current, err := db.GetVersion(nil)
	if err != nil {
		return err
	}
	if current != expected {
		return &DatabaseVersionError{Current: current, Expected: expected}
	}
	return nil
}

// Compact is a hint, a no-op if the backing store has none.
func (db *Database) Compact() error {
	phys, err := db.activePhysical()
	if err != nil {
		return err
	}
	return phys.Compact(nil, nil)
}

// Size returns the approximate on-disk byte size of the physical
// store.
func (db *Database) Size() (int64, error) {
	phys, err := db.activePhysical()
	if err != nil {
		return 0, err
	}
	return phys.Size()
}

// acquireWriteLock and releaseWriteLock expose the database's FIFO
// write lock to package-level helpers
// that need to serialize an explicit Batch commit alongside
// transactions (see batch.go). Not part of the public API surface a
// merkletree caller is expected to use directly.
func (db *Database) acquireWriteLock(ctx context.Context) error { return db.lock.Lock(ctx) }
func (db *Database) releaseWriteLock()                          { db.lock.Unlock() }
