package store

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by a KeyValueStore backend (never by Store,
// which translates "not found" into a zero value/false) when a raw key
// is absent.
var ErrNotFound = errors.New("store: not found")

var (
	// ErrDuplicateKey is returned by Store.Add when the key already
	// exists, either in the underlying store or in the transaction's
	// write-back cache.
	ErrDuplicateKey = errors.New("store: key already exists")

	// ErrTransactionWrongDatabase is returned when a transaction created
	// by one Database is used against a Store registered on another.
	ErrTransactionWrongDatabase = errors.New("store: transaction belongs to a different database")

	// ErrTransactionCommitting is returned by any read/write attempted on
	// a transaction that has already started committing.
	ErrTransactionCommitting = errors.New("store: transaction is being committed")

	// ErrDatabaseIsOpen is the I/O-error classification raised by
	// Database.Open when the backing store fails to open for reasons
	// other than a lock file or detected corruption.
	ErrDatabaseIsOpen = errors.New("store: database failed to open")

	// ErrDatabaseIsLocked is raised by Database.Open when an advisory
	// lock file shows another process already has the data directory
	// open.
	ErrDatabaseIsLocked = errors.New("store: database is locked by another process")

	// ErrDatabaseIsCorrupt is raised by Database.Open when the backing
	// store reports on-disk corruption.
	ErrDatabaseIsCorrupt = errors.New("store: database is corrupt")

	// ErrDatabaseClosed guards operations against a Database that has
	// been closed (or never opened).
	ErrDatabaseClosed = errors.New("store: database is closed")

	// ErrUnexpectedDatabaseState covers invariant violations detected by
	// callers above this package (inconsistent node linkage, etc.).
	// Within package store it is only reported by StoreIterator, for a
	// raw key shorter than the store's prefix. It is defined here
	// alongside the rest of the error surface in spec §6.3 so callers
	// have one place to import the whole taxonomy from.
	ErrUnexpectedDatabaseState = errors.New("store: unexpected database state")

	// ErrStoreNameCollision is returned by AddStore when
	// requireUnique is set and two stores hash to the same 4-byte
	// prefix or share a name already registered.
	ErrStoreNameCollision = errors.New("store: store name already registered")
)

// DatabaseVersionError is returned by Database.Upgrade when the
// on-disk schema version disagrees with the version the caller expects.
// The core never auto-migrates; the caller decides whether to run a
// migration or abort.
type DatabaseVersionError struct {
	Current  uint32
	Expected uint32
}

func (e *DatabaseVersionError) Error() string {
	return fmt.Sprintf("store: database version %d does not match expected version %d", e.Current, e.Expected)
}
