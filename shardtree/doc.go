// Package shardtree implements the incremental, fixed-depth commitment
// tree each pool maintains over its note commitments (spec.md §4.5): it
// bootstraps from a server-supplied frontier, extends by absorbing
// newly-synced commitments in parallel-built, sequentially-spliced chunks,
// reports the current root, and produces authentication paths for marked
// leaves.
//
// The tree never stores the full leaf set. It tracks, per level, the
// single pending "ommer" hash a binary-counter append algorithm needs to
// resume (the same structure spec.md §6's frontier wire format encodes),
// plus an in-flight authentication path per currently-marked leaf. This is
// the classic incremental-witness technique: a marked leaf's path entry at
// level l is filled the first time a real sibling subtree at that level
// becomes available, and padded with the pool's EmptyRoot for any level the
// tree has not yet grown into.
package shardtree

import "github.com/forestrie/shieldsync/poolcrypto"

// H is the tree's node hash type. Both pools fix this at 32 bytes
// (poolcrypto.Hash), so the tree does not take it as a further generic
// parameter.
type H = poolcrypto.Hash
