package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/veilchain/coretree/encoding"
)

func TestLevelDBStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "leveldb")
	phys, err := OpenLevelDBStore(dir)
	if err != nil {
		t.Fatalf("OpenLevelDBStore: %v", err)
	}
	db := NewDatabase(phys)
	defer db.Close()

	s := newTestStore(t, db, "leaves")
	if err := s.Put(1, []byte("hello"), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, found, err := s.Get(1, nil)
	if err != nil || !found || !bytes.Equal(v, []byte("hello")) {
		t.Fatalf("Get: v=%v found=%v err=%v", v, found, err)
	}

	b := db.NewBatch()
	k2, v2 := s.EncodeKV(2, []byte("batched"))
	if err := b.Put(k2, v2); err != nil {
		t.Fatalf("batch Put: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("batch Commit: %v", err)
	}
	if ok, _ := s.Has(2, nil); !ok {
		t.Fatal("expected key 2 committed via leveldb batch")
	}
}

func TestLevelDBStoreLockedOnSecondOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "leveldb")
	first, err := OpenLevelDBStore(dir)
	if err != nil {
		t.Fatalf("OpenLevelDBStore (first): %v", err)
	}
	defer first.Close()

	if _, err := OpenLevelDBStore(dir); err == nil {
		t.Fatal("expected second OpenLevelDBStore on the same dir to fail")
	}
}

func TestWithCacheServesReadsWithoutHittingStore(t *testing.T) {
	db := NewDatabase(NewMemoryDB(), WithCache(1<<16))
	s := newTestStore(t, db, "leaves")

	if err := s.Put(1, []byte("cached"), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cached, ok := db.physical.(*CachedStore)
	if !ok {
		t.Fatalf("expected physical store wrapped in *CachedStore, got %T", db.physical)
	}

	k, _ := s.EncodeKV(1, []byte("cached"))
	if _, ok := cached.cache.HasGet(nil, k); !ok {
		t.Fatal("expected key populated in the read-through cache after Put")
	}

	v, found, err := s.Get(1, nil)
	if err != nil || !found || !bytes.Equal(v, []byte("cached")) {
		t.Fatalf("Get: v=%v found=%v err=%v", v, found, err)
	}
}

func TestWithCompressionRoundTripsLargeAndSmallValues(t *testing.T) {
	db := NewDatabase(NewMemoryDB(), WithCompression())
	s, err := AddStore(db, StoreOptions[uint32, []byte]{
		Name:          "leaves",
		KeyEncoding:   encoding.U32BE,
		ValueEncoding: encoding.BufferEncoding,
	}, true)
	if err != nil {
		t.Fatalf("AddStore: %v", err)
	}

	small := []byte("hi")
	large := bytes.Repeat([]byte("note-payload"), 32)

	if err := s.Put(1, small, nil); err != nil {
		t.Fatalf("Put small: %v", err)
	}
	if err := s.Put(2, large, nil); err != nil {
		t.Fatalf("Put large: %v", err)
	}

	if _, ok := db.physical.(*CompressedStore); !ok {
		t.Fatalf("expected physical store wrapped in *CompressedStore, got %T", db.physical)
	}

	v1, found, err := s.Get(1, nil)
	if err != nil || !found || !bytes.Equal(v1, small) {
		t.Fatalf("Get small: v=%v found=%v err=%v", v1, found, err)
	}
	v2, found, err := s.Get(2, nil)
	if err != nil || !found || !bytes.Equal(v2, large) {
		t.Fatalf("Get large: v=%v found=%v err=%v", v2, found, err)
	}
}

func TestWithCacheAndCompressionCompose(t *testing.T) {
	db := NewDatabase(NewMemoryDB(), WithCompression(), WithCache(1<<16))
	s := newTestStore(t, db, "leaves")

	large := bytes.Repeat([]byte("x"), 256)
	if err := s.Put(1, large, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cached, ok := db.physical.(*CachedStore)
	if !ok {
		t.Fatalf("expected outermost wrapper *CachedStore, got %T", db.physical)
	}
	if _, ok := cached.KeyValueStore.(*CompressedStore); !ok {
		t.Fatalf("expected *CachedStore to wrap *CompressedStore, got %T", cached.KeyValueStore)
	}

	v, found, err := s.Get(1, nil)
	if err != nil || !found || !bytes.Equal(v, large) {
		t.Fatalf("Get: v=%v found=%v err=%v", v, found, err)
	}
}
