package store

import "bytes"

// mergedIterator zip-merges a transaction's write-back cache with the
// underlying store's iterator in key order, giving cache entries
// priority and suppressing tombstoned keys. Grounded on spec §4.2's
// requirement that prefix-scoped iteration "merge the transaction's
// cache with the underlying store while preserving ordering and
// de-duplication" and §9's design note to implement this as a
// zip-merge rather than by materializing the whole range.
type mergedIterator struct {
	underlying  Iterator
	cacheKeys   []string
	cacheValues map[string][]byte
	tombstones  map[string]struct{}
	reverse     bool

	idx int
	uOK bool

	curKey []byte
	curVal []byte
	err    error
}

func newMergedIterator(u Iterator, cacheKeys []string, cacheValues map[string][]byte, tombstones map[string]struct{}, reverse bool) *mergedIterator {
	return &mergedIterator{
		underlying:  u,
		cacheKeys:   cacheKeys,
		cacheValues: cacheValues,
		tombstones:  tombstones,
		reverse:     reverse,
		uOK:         u.Next(),
	}
}

func (m *mergedIterator) less(a, b []byte) bool {
	c := bytes.Compare(a, b)
	if m.reverse {
		return c > 0
	}
	return c < 0
}

func (m *mergedIterator) Next() bool {
	for {
		haveCache := m.idx < len(m.cacheKeys)
		haveU := m.uOK
		if !haveCache && !haveU {
			return false
		}

		pickCache := false
		switch {
		case haveCache && haveU:
			ck := []byte(m.cacheKeys[m.idx])
			uk := m.underlying.Key()
			switch {
			case bytes.Equal(ck, uk):
				pickCache = true
				m.uOK = m.underlying.Next()
			case m.less(ck, uk):
				pickCache = true
			default:
				pickCache = false
			}
		case haveCache:
			pickCache = true
		default:
			pickCache = false
		}

		if pickCache {
			key := m.cacheKeys[m.idx]
			m.idx++
			if _, tomb := m.tombstones[key]; tomb {
				continue
			}
			m.curKey = []byte(key)
			m.curVal = m.cacheValues[key]
			return true
		}

		key := append([]byte(nil), m.underlying.Key()...)
		val := append([]byte(nil), m.underlying.Value()...)
		m.uOK = m.underlying.Next()
		if _, tomb := m.tombstones[string(key)]; tomb {
			continue
		}
		m.curKey = key
		m.curVal = val
		return true
	}
}

func (m *mergedIterator) Key() []byte   { return m.curKey }
func (m *mergedIterator) Value() []byte { return m.curVal }
func (m *mergedIterator) Error() error {
	if m.err != nil {
		return m.err
	}
	return m.underlying.Error()
}
func (m *mergedIterator) Release() { m.underlying.Release() }
