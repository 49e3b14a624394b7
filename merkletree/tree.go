package merkletree

import (
	"math/bits"

	"github.com/veilchain/coretree/encoding"
	"github.com/veilchain/coretree/hasher"
	"github.com/veilchain/coretree/store"
)

// DefaultDepth is the tree depth used when a caller does not override
// it: spec §3.6's "Tree depth D is a construction parameter (default
// 32)".
const DefaultDepth = 32

const (
	counterLeaves = "Leaves"
	counterNodes  = "Nodes"
)

// MerkleTree is the persistent, append-only, fixed-depth binary
// Merkle tree: the hardest component of the core (spec §2, §4.6).
// It is generic over the caller's element type E and hash type H,
// monomorphized per Hasher instantiation so no dynamic dispatch sits
// on the insertion/rehash path (spec §9 "polymorphism over the
// hasher").
type MerkleTree[E, H any] struct {
	db     *store.Database
	hasher hasher.Hasher[E, H]
	depth  int

	counters    *store.Store[string, uint32]
	leaves      *store.Store[uint32, LeafRecord[E, H]]
	leavesIndex *store.Store[string, uint32]
	nodes       *store.Store[uint32, NodeRecord[H]]
}

// NewMerkleTree registers the four stores a tree needs -- {name}c,
// {name}l, {name}i, {name}n for counters, leaves, leaves-index and
// nodes respectively (spec §4.6.1) -- against db. depth <= 0 selects
// DefaultDepth. Must be called before db.Open(), per spec §4.5's
// addStore contract.
func NewMerkleTree[E, H any](db *store.Database, name string, h hasher.Hasher[E, H], depth int) (*MerkleTree[E, H], error) {
	if depth <= 0 {
		depth = DefaultDepth
	}

	counters, err := store.AddStore(db, store.StoreOptions[string, uint32]{
		Name:          name + "c",
		KeyEncoding:   encoding.StringEncoding,
		ValueEncoding: encoding.U32BE,
	}, true)
	if err != nil {
		return nil, err
	}
	leaves, err := store.AddStore(db, store.StoreOptions[uint32, LeafRecord[E, H]]{
		Name:          name + "l",
		KeyEncoding:   encoding.U32BE,
		ValueEncoding: leafEncoding[E, H]{h: h},
	}, true)
	if err != nil {
		return nil, err
	}
	leavesIndex, err := store.AddStore(db, store.StoreOptions[string, uint32]{
		Name:          name + "i",
		KeyEncoding:   encoding.StringEncoding,
		ValueEncoding: encoding.U32BE,
	}, true)
	if err != nil {
		return nil, err
	}
	nodes, err := store.AddStore(db, store.StoreOptions[uint32, NodeRecord[H]]{
		Name:          name + "n",
		KeyEncoding:   encoding.U32BE,
		ValueEncoding: newNodeEncoding(h),
	}, true)
	if err != nil {
		return nil, err
	}

	return &MerkleTree[E, H]{
		db:          db,
		hasher:      h,
		depth:       depth,
		counters:    counters,
		leaves:      leaves,
		leavesIndex: leavesIndex,
		nodes:       nodes,
	}, nil
}

// Depth reports the tree's fixed construction depth D.
func (t *MerkleTree[E, H]) Depth() int { return t.depth }

func (t *MerkleTree[E, H]) getCount(kind string, tx *store.Transaction) (uint32, error) {
	v, found, err := t.counters.Get(kind, tx)
	if err != nil {
		return 0, err
	}
	if found {
		return v, nil
	}
	var def uint32
	if kind == counterNodes {
		def = 1
	}
	if err := t.counters.Put(kind, def, tx); err != nil {
		return 0, err
	}
	return def, nil
}

// Size returns the current number of leaves.
func (t *MerkleTree[E, H]) Size(tx *store.Transaction) (uint32, error) {
	return t.getCount(counterLeaves, tx)
}

func (t *MerkleTree[E, H]) getLeaf(i uint32, tx *store.Transaction) (LeafRecord[E, H], error) {
	var zero LeafRecord[E, H]
	v, found, err := t.leaves.Get(i, tx)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, ErrNoLeafFound
	}
	return v, nil
}

func (t *MerkleTree[E, H]) putLeaf(i uint32, v LeafRecord[E, H], tx *store.Transaction) error {
	return t.leaves.Put(i, v, tx)
}

func (t *MerkleTree[E, H]) getNode(i uint32, tx *store.Transaction) (NodeRecord[H], error) {
	var zero NodeRecord[H]
	if i == nodeIndexSentinel {
		return zero, ErrUnexpectedDatabaseState
	}
	v, found, err := t.nodes.Get(i, tx)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, ErrNoNodeFound
	}
	return v, nil
}

func (t *MerkleTree[E, H]) putNode(i uint32, v NodeRecord[H], tx *store.Transaction) error {
	return t.nodes.Put(i, v, tx)
}

func (t *MerkleTree[E, H]) indexKey(h H) string {
	return string(t.hasher.SerializeHash(h))
}

// depthAtLeafCount is spec §3.6's minimal depth of a tree whose
// deepest leaf exists: 0 for an empty tree, 1 for a single leaf, else
// floor(log2(n-1)) + 2.
func depthAtLeafCount(n uint32) int {
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}
	return bits.Len(uint(n-1)) + 1
}

// Add appends element, running the structural insertion (spec
// §4.6.3) followed by right-path rehashing (§4.6.4) and the
// leaves-index update, all inside tx if supplied or a fresh
// transaction otherwise. Returns the new leaf's index.
func (t *MerkleTree[E, H]) Add(element E, tx *store.Transaction) (uint32, error) {
	h := t.hasher.Hash(element)
	var leafIndex uint32
	run := func(tx *store.Transaction) error {
		idx, err := t.addStructural(element, h, tx)
		if err != nil {
			return err
		}
		leafIndex = idx
		// Put, not Add: a caller adding the same element hash twice
		// (unusual, but not a contract violation at this layer) simply
		// advances the index to the newest occurrence.
		return t.leavesIndex.Put(t.indexKey(h), idx, tx)
	}
	if tx != nil {
		if err := run(tx); err != nil {
			return 0, err
		}
		return leafIndex, nil
	}
	if err := t.db.WithTransaction(nil, run); err != nil {
		return 0, err
	}
	return leafIndex, nil
}

// addStructural performs the index-layout step of spec §4.6.3 and
// then triggers right-path rehashing; h is the already-computed
// hasher.Hash(element), threaded through to avoid hashing twice.
func (t *MerkleTree[E, H]) addStructural(element E, h H, tx *store.Transaction) (uint32, error) {
	i, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return 0, err
	}

	switch {
	case i == 0:
		if err := t.putLeaf(0, LeafRecord[E, H]{Element: element, MerkleHash: h, ParentIndex: 0}, tx); err != nil {
			return 0, err
		}
		if err := t.counters.Put(counterLeaves, 1, tx); err != nil {
			return 0, err
		}
		return 0, nil

	case i == 1:
		if err := t.putNode(1, NodeRecord[H]{Side: Left, HashOfSibling: t.hasher.ZeroHash(), OtherIndex: 0}, tx); err != nil {
			return 0, err
		}
		leaf0, err := t.getLeaf(0, tx)
		if err != nil {
			return 0, err
		}
		leaf0.ParentIndex = 1
		if err := t.putLeaf(0, leaf0, tx); err != nil {
			return 0, err
		}
		if err := t.putLeaf(1, LeafRecord[E, H]{Element: element, MerkleHash: h, ParentIndex: 1}, tx); err != nil {
			return 0, err
		}
		if err := t.counters.Put(counterLeaves, 2, tx); err != nil {
			return 0, err
		}
		if err := t.counters.Put(counterNodes, 2, tx); err != nil {
			return 0, err
		}
		if err := t.rehashRightPath(1, tx); err != nil {
			return 0, err
		}
		return 1, nil

	case i%2 == 1:
		leftSibling, err := t.getLeaf(i-1, tx)
		if err != nil {
			return 0, err
		}
		if err := t.putLeaf(i, LeafRecord[E, H]{Element: element, MerkleHash: h, ParentIndex: leftSibling.ParentIndex}, tx); err != nil {
			return 0, err
		}
		if err := t.counters.Put(counterLeaves, i+1, tx); err != nil {
			return 0, err
		}
		if err := t.rehashRightPath(i, tx); err != nil {
			return 0, err
		}
		return i, nil

	default:
		parent, err := t.growRightSpine(i, tx)
		if err != nil {
			return 0, err
		}
		if err := t.putLeaf(i, LeafRecord[E, H]{Element: element, MerkleHash: h, ParentIndex: parent}, tx); err != nil {
			return 0, err
		}
		if err := t.counters.Put(counterLeaves, i+1, tx); err != nil {
			return 0, err
		}
		if err := t.rehashRightPath(i, tx); err != nil {
			return 0, err
		}
		return i, nil
	}
}

// growRightSpine opens a new right spine for leaf i (even, i >= 2),
// per spec §4.6.3's even case, returning the node index that becomes
// leaf i's parent.
func (t *MerkleTree[E, H]) growRightSpine(i uint32, tx *store.Transaction) (uint32, error) {
	leftLeaf, err := t.getLeaf(i-1, tx)
	if err != nil {
		return 0, err
	}
	nodesCount, err := t.getCount(counterNodes, tx)
	if err != nil {
		return 0, err
	}
	alloc := func() uint32 {
		idx := nodesCount
		nodesCount++
		return idx
	}

	current := leftLeaf.ParentIndex
	var firstAllocated uint32

	for {
		node, err := t.getNode(current, tx)
		if err != nil {
			return 0, err
		}
		if node.Side == Left {
			newRightIdx := alloc()
			newRight := NodeRecord[H]{Side: Right, HashOfSibling: node.HashOfSibling, OtherIndex: current}
			if err := t.putNode(newRightIdx, newRight, tx); err != nil {
				return 0, err
			}
			if firstAllocated == 0 {
				firstAllocated = newRightIdx
			}
			if node.OtherIndex == nodeIndexSentinel {
				newRootIdx := alloc()
				newRoot := NodeRecord[H]{Side: Left, HashOfSibling: t.hasher.ZeroHash(), OtherIndex: 0}
				if err := t.putNode(newRootIdx, newRoot, tx); err != nil {
					return 0, err
				}
				node.OtherIndex = newRootIdx
				if err := t.putNode(current, node, tx); err != nil {
					return 0, err
				}
			}
			break
		}

		leftSibling, err := t.getNode(node.OtherIndex, tx)
		if err != nil {
			return 0, err
		}
		nextParent := leftSibling.OtherIndex
		newLeftIdx := alloc()
		newLeft := NodeRecord[H]{Side: Left, HashOfSibling: t.hasher.ZeroHash(), OtherIndex: nodesCount}
		if err := t.putNode(newLeftIdx, newLeft, tx); err != nil {
			return 0, err
		}
		if firstAllocated == 0 {
			firstAllocated = newLeftIdx
		}
		current = nextParent
	}

	if err := t.counters.Put(counterNodes, nodesCount, tx); err != nil {
		return 0, err
	}
	return firstAllocated, nil
}

// rehashRightPath walks from leafIndex's parent to the root, updating
// hashOfSibling fields along the way (spec §4.6.4).
func (t *MerkleTree[E, H]) rehashRightPath(leafIndex uint32, tx *store.Transaction) error {
	leaf, err := t.getLeaf(leafIndex, tx)
	if err != nil {
		return err
	}
	if leaf.ParentIndex == nodeIndexSentinel {
		return nil
	}

	var parentHash H
	if leafIndex%2 == 1 {
		sibling, err := t.getLeaf(leafIndex-1, tx)
		if err != nil {
			return err
		}
		parentHash = t.hasher.Combine(0, sibling.MerkleHash, leaf.MerkleHash)
	} else {
		parentHash = t.hasher.Combine(0, leaf.MerkleHash, leaf.MerkleHash)
	}

	current := leaf.ParentIndex
	depth := 1
	for current != nodeIndexSentinel {
		node, err := t.getNode(current, tx)
		if err != nil {
			return err
		}
		if node.Side == Left {
			node.HashOfSibling = parentHash
			if err := t.putNode(current, node, tx); err != nil {
				return err
			}
			parentHash = t.hasher.Combine(depth, parentHash, parentHash)
			current = node.OtherIndex
		} else {
			leftNode, err := t.getNode(node.OtherIndex, tx)
			if err != nil {
				return err
			}
			leftNode.HashOfSibling = parentHash
			if err := t.putNode(node.OtherIndex, leftNode, tx); err != nil {
				return err
			}
			parentHash = t.hasher.Combine(depth, node.HashOfSibling, parentHash)
			current = leftNode.OtherIndex
		}
		depth++
	}
	return nil
}

// Truncate discards every leaf from pastSize onward (spec §4.6.5); a
// no-op if pastSize >= current size.
func (t *MerkleTree[E, H]) Truncate(pastSize uint32, tx *store.Transaction) error {
	if tx != nil {
		return t.truncate(pastSize, tx)
	}
	return t.db.WithTransaction(nil, func(tx *store.Transaction) error {
		return t.truncate(pastSize, tx)
	})
}

func (t *MerkleTree[E, H]) truncate(pastSize uint32, tx *store.Transaction) error {
	oldSize, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return err
	}
	if pastSize >= oldSize {
		return nil
	}

	for i := pastSize; i < oldSize; i++ {
		leaf, err := t.getLeaf(i, tx)
		if err != nil {
			return err
		}
		if err := t.leavesIndex.Del(t.indexKey(leaf.MerkleHash), tx); err != nil {
			return err
		}
	}
	if err := t.counters.Put(counterLeaves, pastSize, tx); err != nil {
		return err
	}

	if pastSize == 0 {
		return t.counters.Put(counterNodes, 1, tx)
	}
	if pastSize == 1 {
		if err := t.counters.Put(counterNodes, 1, tx); err != nil {
			return err
		}
		leaf0, err := t.getLeaf(0, tx)
		if err != nil {
			return err
		}
		leaf0.ParentIndex = 0
		return t.putLeaf(0, leaf0, tx)
	}

	steps := depthAtLeafCount(pastSize) - 2
	leaf, err := t.getLeaf(pastSize-1, tx)
	if err != nil {
		return err
	}
	current := leaf.ParentIndex
	maxParentIndex := current

	for s := 0; s < steps; s++ {
		node, err := t.getNode(current, tx)
		if err != nil {
			return err
		}
		if node.Side == Right {
			if node.OtherIndex > maxParentIndex {
				maxParentIndex = node.OtherIndex
			}
			leftNode, err := t.getNode(node.OtherIndex, tx)
			if err != nil {
				return err
			}
			current = leftNode.OtherIndex
		} else {
			current = node.OtherIndex
		}
		if current > maxParentIndex {
			maxParentIndex = current
		}
	}

	newRoot, err := t.getNode(current, tx)
	if err != nil {
		return err
	}
	newRoot.OtherIndex = 0
	if err := t.putNode(current, newRoot, tx); err != nil {
		return err
	}
	if err := t.counters.Put(counterNodes, maxParentIndex+1, tx); err != nil {
		return err
	}

	return t.rehashRightPath(pastSize-1, tx)
}

// PastRoot computes the root hash the tree would have had at
// historical leaf count k (spec §4.6.6).
func (t *MerkleTree[E, H]) PastRoot(k uint32, tx *store.Transaction) (H, error) {
	var zero H
	n, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return zero, err
	}
	if n == 0 || k > n || k == 0 {
		return zero, &PastSizeError{RequestedSize: k, TreeSize: n}
	}

	leaf, err := t.getLeaf(k-1, tx)
	if err != nil {
		return zero, err
	}
	rootDepth := depthAtLeafCount(k)
	minDepth := rootDepth
	if t.depth < minDepth {
		minDepth = t.depth
	}

	var currentHash H
	if (k-1)%2 == 1 {
		sibling, err := t.getLeaf(k-2, tx)
		if err != nil {
			return zero, err
		}
		currentHash = t.hasher.Combine(0, sibling.MerkleHash, leaf.MerkleHash)
	} else {
		currentHash = t.hasher.Combine(0, leaf.MerkleHash, leaf.MerkleHash)
	}

	current := leaf.ParentIndex
	depth := 1
	for s := 0; s < minDepth-1; s++ {
		node, err := t.getNode(current, tx)
		if err != nil {
			return zero, err
		}
		if node.Side == Left {
			currentHash = t.hasher.Combine(depth, currentHash, currentHash)
			current = node.OtherIndex
		} else {
			currentHash = t.hasher.Combine(depth, node.HashOfSibling, currentHash)
			leftNode, err := t.getNode(node.OtherIndex, tx)
			if err != nil {
				return zero, err
			}
			current = leftNode.OtherIndex
		}
		depth++
	}

	for d := rootDepth; d < t.depth; d++ {
		currentHash = t.hasher.Combine(d, currentHash, currentHash)
	}
	return currentHash, nil
}

// RootHash is PastRoot(size()).
func (t *MerkleTree[E, H]) RootHash(tx *store.Transaction) (H, error) {
	n, err := t.getCount(counterLeaves, tx)
	if err != nil {
		var zero H
		return zero, err
	}
	return t.PastRoot(n, tx)
}

// Witness builds the authentication path for leaf index (spec
// §4.6.7), returning (nil, nil) if the tree is empty or index is out
// of range.
func (t *MerkleTree[E, H]) Witness(index uint32, tx *store.Transaction) (*Witness[H], error) {
	size, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return nil, err
	}
	if size == 0 || index >= size {
		return nil, nil
	}

	leaf, err := t.getLeaf(index, tx)
	if err != nil {
		return nil, err
	}

	path := make([]PathEntry[H], 0, t.depth)
	var currentHash H

	switch {
	case index%2 == 1:
		left, err := t.getLeaf(index-1, tx)
		if err != nil {
			return nil, err
		}
		path = append(path, PathEntry[H]{Side: Right, SiblingHash: left.MerkleHash})
		currentHash = t.hasher.Combine(0, left.MerkleHash, leaf.MerkleHash)
	case index+1 < size:
		right, err := t.getLeaf(index+1, tx)
		if err != nil {
			return nil, err
		}
		path = append(path, PathEntry[H]{Side: Left, SiblingHash: right.MerkleHash})
		currentHash = t.hasher.Combine(0, leaf.MerkleHash, right.MerkleHash)
	default:
		path = append(path, PathEntry[H]{Side: Left, SiblingHash: leaf.MerkleHash})
		currentHash = t.hasher.Combine(0, leaf.MerkleHash, leaf.MerkleHash)
	}

	current := leaf.ParentIndex
	for d := 1; d < t.depth; d++ {
		if current == nodeIndexSentinel {
			path = append(path, PathEntry[H]{Side: Left, SiblingHash: currentHash})
			currentHash = t.hasher.Combine(d, currentHash, currentHash)
			continue
		}
		node, err := t.getNode(current, tx)
		if err != nil {
			return nil, err
		}
		if node.Side == Left {
			path = append(path, PathEntry[H]{Side: Left, SiblingHash: node.HashOfSibling})
			currentHash = t.hasher.Combine(d, currentHash, node.HashOfSibling)
			current = node.OtherIndex
		} else {
			path = append(path, PathEntry[H]{Side: Right, SiblingHash: node.HashOfSibling})
			currentHash = t.hasher.Combine(d, node.HashOfSibling, currentHash)
			leftNode, err := t.getNode(node.OtherIndex, tx)
			if err != nil {
				return nil, err
			}
			current = leftNode.OtherIndex
		}
	}

	return &Witness[H]{treeSize: size, rootHash: currentHash, path: path, h: t.hasher}, nil
}

// Contains reports whether element was ever added and is still live
// (not discarded by a subsequent truncate), per spec §4.6.9.
func (t *MerkleTree[E, H]) Contains(element E, tx *store.Transaction) (bool, error) {
	size, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return false, err
	}
	idx, found, err := t.leavesIndex.Get(t.indexKey(t.hasher.Hash(element)), tx)
	if err != nil || !found {
		return false, err
	}
	return idx < size, nil
}

// Contained reports whether element was live at historical leaf count
// pastSize.
func (t *MerkleTree[E, H]) Contained(element E, pastSize uint32, tx *store.Transaction) (bool, error) {
	idx, found, err := t.leavesIndex.Get(t.indexKey(t.hasher.Hash(element)), tx)
	if err != nil || !found {
		return false, err
	}
	return idx < pastSize, nil
}

// GetLeaves yields every live leaf element in index order (spec
// §4.6.10). Behavior is unspecified if the tree mutates during the
// call.
func (t *MerkleTree[E, H]) GetLeaves(tx *store.Transaction) ([]E, error) {
	size, err := t.getCount(counterLeaves, tx)
	if err != nil {
		return nil, err
	}
	it, err := t.leaves.GetAllIter(tx, nil, false)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	var out []E
	// Records at indices >= size survive a truncate; stop before them.
	for uint32(len(out)) < size && it.Next() {
		out = append(out, it.Value().Element)
	}
	return out, it.Error()
}
