package store

import (
	"bytes"
	"testing"

	"github.com/veilchain/coretree/encoding"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	return NewDatabase(NewMemoryDB())
}

func newTestStore(t *testing.T, db *Database, name string) *Store[uint32, []byte] {
	t.Helper()
	s, err := AddStore(db, StoreOptions[uint32, []byte]{
		Name:          name,
		KeyEncoding:   encoding.U32BE,
		ValueEncoding: encoding.BufferEncoding,
	}, true)
	if err != nil {
		t.Fatalf("AddStore: %v", err)
	}
	return s
}

func TestStorePutGetNoTransaction(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")

	if err := s.Put(1, []byte("hello"), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, found, err := s.Get(1, nil)
	if err != nil || !found || !bytes.Equal(v, []byte("hello")) {
		t.Fatalf("Get: v=%v found=%v err=%v", v, found, err)
	}
}

func TestStoreGetAbsent(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	_, found, err := s.Get(42, nil)
	if err != nil || found {
		t.Fatalf("expected absent, got found=%v err=%v", found, err)
	}
}

func TestStoreAddDuplicateKey(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	if err := s.Add(1, []byte("a"), nil); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := s.Add(1, []byte("b"), nil); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestStoreDelAndHas(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	s.Put(1, []byte("x"), nil)
	if ok, _ := s.Has(1, nil); !ok {
		t.Fatal("expected Has true before delete")
	}
	if err := s.Del(1, nil); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := s.Has(1, nil); ok {
		t.Fatal("expected Has false after delete")
	}
}

func TestStorePrefixIsolation(t *testing.T) {
	db := newTestDatabase(t)
	a := newTestStore(t, db, "a")
	b := newTestStore(t, db, "b")
	a.Put(1, []byte("from-a"), nil)
	if ok, _ := b.Has(1, nil); ok {
		t.Fatal("store b should not see store a's key 1")
	}
}

func TestTransactionReadYourWrites(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	tx := db.Transaction()

	if err := s.Put(1, []byte("v1"), tx); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, found, err := s.Get(1, tx)
	if err != nil || !found || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("expected read-your-writes v1, got %v found=%v err=%v", v, found, err)
	}

	if err := s.Del(1, tx); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, found, _ := s.Get(1, tx); found {
		t.Fatal("expected absent after del within transaction")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, found, _ := s.Get(1, nil); found {
		t.Fatal("expected absent after committed delete")
	}
}

func TestTransactionAbortDiscardsWrites(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	tx := db.Transaction()

	if err := s.Put(1, []byte("v1"), tx); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tx.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if _, found, _ := s.Get(1, nil); found {
		t.Fatal("expected no writes visible after abort")
	}
}

func TestTransactionCommittingBlocksFurtherOps(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	tx := db.Transaction()
	s.Put(1, []byte("v1"), tx)

	tx.mu.Lock()
	tx.state = txCommitting
	tx.mu.Unlock()

	if err := s.Put(2, []byte("v2"), tx); err != ErrTransactionCommitting {
		t.Fatalf("expected ErrTransactionCommitting, got %v", err)
	}
}

func TestTransactionCrossDatabaseGuard(t *testing.T) {
	db1 := newTestDatabase(t)
	db2 := newTestDatabase(t)
	s := newTestStore(t, db1, "leaves")
	tx := db2.Transaction()

	if err := s.Put(1, []byte("x"), tx); err != ErrTransactionWrongDatabase {
		t.Fatalf("expected ErrTransactionWrongDatabase, got %v", err)
	}
}

func TestTransactionUpdatePersistsWithoutReleasingLock(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	tx := db.Transaction()
	s.Put(1, []byte("v1"), tx)

	if err := tx.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Visible outside the transaction now, without having committed.
	if _, found, _ := s.Get(1, nil); !found {
		t.Fatal("expected Update to flush the pending write")
	}
	// The transaction's own cache view is unaffected.
	if v, found, _ := s.Get(1, tx); !found || !bytes.Equal(v, []byte("v1")) {
		t.Fatal("expected transaction cache to retain its view after Update")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("final Commit: %v", err)
	}
}

func TestStoreGetAllIterMergesTransactionCache(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	s.Put(1, []byte("committed-1"), nil)
	s.Put(2, []byte("committed-2"), nil)

	tx := db.Transaction()
	s.Put(3, []byte("pending-3"), tx)
	s.Del(1, tx)

	it, err := s.GetAllIter(tx, nil, false)
	if err != nil {
		t.Fatalf("GetAllIter: %v", err)
	}
	defer it.Release()

	var got []uint32
	for it.Next() {
		got = append(got, it.Key())
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	want := []uint32{2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStoreClearAll(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")
	for i := uint32(0); i < 5; i++ {
		s.Put(i, []byte{byte(i)}, nil)
	}
	if err := s.Clear(nil, nil); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for i := uint32(0); i < 5; i++ {
		if ok, _ := s.Has(i, nil); ok {
			t.Fatalf("expected key %d cleared", i)
		}
	}
}

func TestDatabaseVersionRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.PutVersion(3, nil); err != nil {
		t.Fatalf("PutVersion: %v", err)
	}
	v, err := db.GetVersion(nil)
	if err != nil || v != 3 {
		t.Fatalf("GetVersion: v=%d err=%v", v, err)
	}
	if err := db.Upgrade(3); err != nil {
		t.Fatalf("Upgrade should succeed: %v", err)
	}
	err = db.Upgrade(4)
	vErr, ok := err.(*DatabaseVersionError)
	if !ok || vErr.Current != 3 || vErr.Expected != 4 {
		t.Fatalf("expected DatabaseVersionError{3,4}, got %v", err)
	}
}

func TestDatabaseWithTransactionCommitsOnSuccess(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")

	err := db.WithTransaction(nil, func(tx *Transaction) error {
		return s.Put(1, []byte("v"), tx)
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}
	if _, found, _ := s.Get(1, nil); !found {
		t.Fatal("expected write committed")
	}
}

func TestDatabaseWithTransactionAbortsOnError(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")

	sentinel := errBoom
	err := db.WithTransaction(nil, func(tx *Transaction) error {
		s.Put(1, []byte("v"), tx)
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, found, _ := s.Get(1, nil); found {
		t.Fatal("expected write rolled back on handler error")
	}
}

func TestBatchCommitIsAtomic(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestStore(t, db, "leaves")

	k1, v1 := s.EncodeKV(1, []byte("a"))
	k2, v2 := s.EncodeKV(2, []byte("b"))

	b := db.NewBatch()
	b.Put(k1, v1)
	b.Put(k2, v2)
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if ok, _ := s.Has(1, nil); !ok {
		t.Fatal("expected key 1 committed")
	}
	if ok, _ := s.Has(2, nil); !ok {
		t.Fatal("expected key 2 committed")
	}
}

func TestAddStoreDuplicateNameRejected(t *testing.T) {
	db := newTestDatabase(t)
	newTestStore(t, db, "dup")
	_, err := AddStore(db, StoreOptions[uint32, []byte]{
		Name:          "dup",
		KeyEncoding:   encoding.U32BE,
		ValueEncoding: encoding.BufferEncoding,
	}, true)
	if err != ErrStoreNameCollision {
		t.Fatalf("expected ErrStoreNameCollision, got %v", err)
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errBoom = sentinelError("boom")
