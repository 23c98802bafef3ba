package pulse

import "sync/atomic"

// revision is the global clock. Every observable mutation (a State write or a
// Computed recomputation) advances it by exactly one bump; nothing else does.
var revision atomic.Uint64

// bump advances the clock and returns the new, strictly greater revision.
func bump() uint64 {
	return revision.Add(1)
}

// CurrentRevision returns the clock without advancing it. Two reads with no
// intervening mutation observe the same value.
func CurrentRevision() uint64 {
	return revision.Load()
}

// nodeIDs is the source of unique node identifiers. IDs order node creation
// and key the edge maps; they are unrelated to the revision clock.
var nodeIDs atomic.Uint64

func nextNodeID() uint64 {
	return nodeIDs.Add(1)
}
