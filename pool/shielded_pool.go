// Package pool adapts the merkle tree engine into a small shielded-
// pool accumulator: one tree of note commitments, one tree of
// revealed nullifiers, composed under shared transactions so a
// reveal-and-insert sequence is atomic. It is a demo consumer of
// package merkletree, not part of the core itself (transaction
// creation and note encryption are out of scope, per spec §1).
package pool

import (
	"github.com/veilchain/coretree/core/types"
	"github.com/veilchain/coretree/hasher"
	"github.com/veilchain/coretree/merkletree"
	"github.com/veilchain/coretree/store"
)

// ShieldedPool tracks commitments (unspent notes) and nullifiers
// (spent notes) as two independent append-only accumulators sharing
// one database, adapted from the teacher's map-based
// crypto.ShieldedPool (commitments/nullifiers as plain sets) onto the
// real commitment-tree engine this module implements.
type ShieldedPool struct {
	db          *store.Database
	commitments *merkletree.MerkleTree[[]byte, types.Hash]
	nullifiers  *merkletree.MerkleTree[[]byte, types.Hash]
}

// NewShieldedPool registers the commitment and nullifier trees
// against db. Must be called before db.Open().
func NewShieldedPool(db *store.Database, depth int) (*ShieldedPool, error) {
	commitments, err := merkletree.NewMerkleTree[[]byte, types.Hash](db, "cm", hasher.KeccakHasher{}, depth)
	if err != nil {
		return nil, err
	}
	nullifiers, err := merkletree.NewMerkleTree[[]byte, types.Hash](db, "nf", hasher.KeccakHasher{}, depth)
	if err != nil {
		return nil, err
	}
	return &ShieldedPool{db: db, commitments: commitments, nullifiers: nullifiers}, nil
}

// AddNote inserts a note commitment, returning its leaf index (used
// later to build a spend witness).
func (p *ShieldedPool) AddNote(commitment []byte) (uint32, error) {
	return p.commitments.Add(commitment, nil)
}

// HasCommitment reports whether commitment was ever added.
func (p *ShieldedPool) HasCommitment(commitment []byte) (bool, error) {
	return p.commitments.Contains(commitment, nil)
}

// CommitmentRoot is the current commitment tree root, published on
// each block so light clients can build membership witnesses against
// it.
func (p *ShieldedPool) CommitmentRoot() (types.Hash, error) {
	return p.commitments.RootHash(nil)
}

// CommitmentCount is the number of notes ever added.
func (p *ShieldedPool) CommitmentCount() (uint32, error) {
	return p.commitments.Size(nil)
}

// SpendWitness builds the authentication path a spender presents
// alongside their nullifier reveal.
func (p *ShieldedPool) SpendWitness(leafIndex uint32) (*merkletree.Witness[types.Hash], error) {
	return p.commitments.Witness(leafIndex, nil)
}

// RevealNullifier marks nullifier as spent and reports true; if it was
// already revealed it reports false with a nil error and inserts
// nothing -- the double-spend
// check and the insertion happen in one transaction so a concurrent
// reveal of the same nullifier can never both succeed.
func (p *ShieldedPool) RevealNullifier(nullifier []byte) (revealed bool, err error) {
	err = p.db.WithTransaction(nil, func(tx *store.Transaction) error {
		spent, err := p.nullifiers.Contains(nullifier, tx)
		if err != nil {
			return err
		}
		if spent {
			revealed = false
			return nil
		}
		if _, err := p.nullifiers.Add(nullifier, tx); err != nil {
			return err
		}
		revealed = true
		return nil
	})
	return revealed, err
}

// NullifierRoot is the current nullifier tree root.
func (p *ShieldedPool) NullifierRoot() (types.Hash, error) {
	return p.nullifiers.RootHash(nil)
}

// NullifierCount is the number of nullifiers ever revealed.
func (p *ShieldedPool) NullifierCount() (uint32, error) {
	return p.nullifiers.Size(nil)
}
