package merkletree

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/veilchain/coretree/store"
)

// ErrNoLeafFound is returned when a leaf index expected to exist (by
// an internal invariant, not a caller-supplied out-of-range index) is
// missing from storage.
var ErrNoLeafFound = errors.New("merkletree: no leaf found at expected index")

// ErrNoNodeFound is the node-record analogue of ErrNoLeafFound.
var ErrNoNodeFound = errors.New("merkletree: no node found at expected index")

// ErrUnexpectedDatabaseState re-exports store's invariant-violation
// sentinel. The tree returns it when a walk asks for node index 0 (the
// sentinel above the root) where a real node record is expected. Other
// corrupt linkage is not checked: a Right node whose left sibling is
// itself a Right node is followed as-is, and a parent chain that never
// reaches index 0 is not detected.
var ErrUnexpectedDatabaseState = store.ErrUnexpectedDatabaseState

// PastSizeError reports that PastRoot was asked for a historical size
// the tree cannot produce (Truncate treats such a size as a no-op
// instead): spec §4.6.6's
// "Unable to get past size k for tree with n nodes".
type PastSizeError struct {
	RequestedSize uint32
	TreeSize      uint32
}

func (e *PastSizeError) Error() string {
	return fmt.Sprintf("merkletree: unable to get past size %d for tree with %d leaves", e.RequestedSize, e.TreeSize)
}
