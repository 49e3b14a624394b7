package store

import "github.com/golang/snappy"

// compressionThreshold is the minimum raw value size before Snappy
// compression is worth the per-value framing byte; small fixed-width
// records (the 37-byte node record and 4-byte counters of spec §6.2)
// opt out, while larger leaf records carrying caller-supplied elements
// (e.g. an encrypted note) opt in.
const compressionThreshold = 64

const (
	valueFlagRaw        byte = 0x00
	valueFlagCompressed byte = 0x01
)

// CompressedStore wraps a KeyValueStore, Snappy-compressing values at
// or above compressionThreshold before they cross the Put boundary and
// transparently decompressing on Get. Mirrors how pebble and goleveldb
// already use Snappy internally for their own SSTable blocks; wiring
// it a second time here lets this layer make its own size/compression
// tradeoff independent of the backend's block-level choice.
type CompressedStore struct {
	KeyValueStore
}

// NewCompressedStore wraps an existing KeyValueStore with transparent
// value compression.
func NewCompressedStore(inner KeyValueStore) *CompressedStore {
	return &CompressedStore{KeyValueStore: inner}
}

func (c *CompressedStore) Get(key []byte) ([]byte, error) {
	raw, err := c.KeyValueStore.Get(key)
	if err != nil {
		return nil, err
	}
	return decodeValue(raw)
}

func (c *CompressedStore) Put(key, value []byte) error {
	return c.KeyValueStore.Put(key, encodeValue(value))
}

func (c *CompressedStore) NewIterator(gte, lt []byte) (Iterator, error) {
	it, err := c.KeyValueStore.NewIterator(gte, lt)
	if err != nil {
		return nil, err
	}
	return &decompressingIterator{Iterator: it}, nil
}

func (c *CompressedStore) NewReverseIterator(gte, lt []byte) (Iterator, error) {
	it, err := c.KeyValueStore.NewReverseIterator(gte, lt)
	if err != nil {
		return nil, err
	}
	return &decompressingIterator{Iterator: it}, nil
}

func (c *CompressedStore) NewBatch() KVBatch {
	inner := c.KeyValueStore.(Batcher).NewBatch()
	return &compressedBatch{inner: inner}
}

func encodeValue(value []byte) []byte {
	if len(value) < compressionThreshold {
		out := make([]byte, 1+len(value))
		out[0] = valueFlagRaw
		copy(out[1:], value)
		return out
	}
	compressed := snappy.Encode(nil, value)
	out := make([]byte, 1+len(compressed))
	out[0] = valueFlagCompressed
	copy(out[1:], compressed)
	return out
}

func decodeValue(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	flag, body := raw[0], raw[1:]
	if flag == valueFlagCompressed {
		return snappy.Decode(nil, body)
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

type decompressingIterator struct {
	Iterator
}

func (it *decompressingIterator) Value() []byte {
	v, err := decodeValue(it.Iterator.Value())
	if err != nil {
		return nil
	}
	return v
}

type compressedBatch struct {
	inner KVBatch
}

func (b *compressedBatch) Put(key, value []byte) error {
	return b.inner.Put(key, encodeValue(value))
}
func (b *compressedBatch) Delete(key []byte) error { return b.inner.Delete(key) }
func (b *compressedBatch) ValueSize() int          { return b.inner.ValueSize() }
func (b *compressedBatch) Write() error            { return b.inner.Write() }
func (b *compressedBatch) Reset()                  { b.inner.Reset() }
