package store

import "github.com/VictoriaMetrics/fastcache"

// CachedStore fronts reads of a KeyValueStore with an in-process,
// bounded, GC-friendly byte cache. This is strictly a read-through
// cache beneath the transaction's write-back cache (spec §4.3): it
// never participates in atomicity and is kept current key-by-key on
// write (a put stores the new value, a delete evicts the key). Hot
// interior nodes -- the right spine is re-read on almost
// every add -- are the intended beneficiary.
type CachedStore struct {
	KeyValueStore
	cache *fastcache.Cache
}

// NewCachedStore wraps inner with a bounded read-through cache of
// maxBytes capacity.
func NewCachedStore(inner KeyValueStore, maxBytes int) *CachedStore {
	return &CachedStore{KeyValueStore: inner, cache: fastcache.New(maxBytes)}
}

func (c *CachedStore) Get(key []byte) ([]byte, error) {
	if v, ok := c.cache.HasGet(nil, key); ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	v, err := c.KeyValueStore.Get(key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v)
	return v, nil
}

func (c *CachedStore) Has(key []byte) (bool, error) {
	if _, ok := c.cache.HasGet(nil, key); ok {
		return true, nil
	}
	return c.KeyValueStore.Has(key)
}

func (c *CachedStore) Put(key, value []byte) error {
	if err := c.KeyValueStore.Put(key, value); err != nil {
		return err
	}
	c.cache.Set(key, value)
	return nil
}

func (c *CachedStore) Delete(key []byte) error {
	if err := c.KeyValueStore.Delete(key); err != nil {
		return err
	}
	c.cache.Del(key)
	return nil
}

func (c *CachedStore) NewBatch() KVBatch {
	inner := c.KeyValueStore.(Batcher).NewBatch()
	return &cachedBatch{inner: inner, cache: c.cache}
}

type cachedBatch struct {
	inner KVBatch
	cache *fastcache.Cache

	puts [][2][]byte
	dels [][]byte
}

func (b *cachedBatch) Put(key, value []byte) error {
	b.puts = append(b.puts, [2][]byte{key, value})
	return b.inner.Put(key, value)
}

func (b *cachedBatch) Delete(key []byte) error {
	b.dels = append(b.dels, key)
	return b.inner.Delete(key)
}

func (b *cachedBatch) ValueSize() int { return b.inner.ValueSize() }

func (b *cachedBatch) Write() error {
	if err := b.inner.Write(); err != nil {
		return err
	}
	for _, kv := range b.puts {
		b.cache.Set(kv[0], kv[1])
	}
	for _, k := range b.dels {
		b.cache.Del(k)
	}
	return nil
}

func (b *cachedBatch) Reset() {
	b.inner.Reset()
	b.puts = nil
	b.dels = nil
}
