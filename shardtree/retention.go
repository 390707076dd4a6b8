package shardtree

// Retention tags why a leaf's hash is kept in memory after it has been
// absorbed into the tree (spec.md §4.5). Ephemeral leaves are discarded as
// soon as they are no longer needed to complete a pending combine; Marked
// leaves keep a full authentication path alive for witness(). The
// Checkpoint tag names a rollback point, but appendOne does not act on it;
// the engine's one checkpoint is the record Bootstrap installs.
type Retention struct {
	Marked     bool
	Checkpoint *CheckpointTag
}

// CheckpointTag names a checkpoint a leaf establishes.
type CheckpointTag struct {
	ID       uint64
	IsMarked bool
}

// Ephemeral is the default retention: the leaf is hashed into the tree and
// then forgotten.
var Ephemeral = Retention{}

// Marked retains a full authentication path for the leaf.
var Marked = Retention{Marked: true}

// LeafInput pairs a commitment with the retention policy to apply once it
// is absorbed.
type LeafInput struct {
	Commitment H
	Retention  Retention
}
