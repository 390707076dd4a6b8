// Package synerr defines the sync engine's error taxonomy.
//
// Each kind is a sentinel error. Call sites wrap it with context using
// fmt.Errorf("...: %w", Kind) and callers branch on kind with errors.Is.
package synerr

import "errors"

var (
	// TransportTransient is a network read/write or stream interruption
	// that C2's reconnection logic retries locally.
	TransportTransient = errors.New("transport: transient failure")

	// TransportFatal is a non-retryable server failure, or a transient
	// failure whose retry budget was exhausted.
	TransportFatal = errors.New("transport: fatal failure")

	// MalformedCompactRecord is a wire validation failure in C1 or C3.
	MalformedCompactRecord = errors.New("compact record: malformed")

	// MissingFrontier is returned when the server has no frontier for a
	// bootstrap height.
	MissingFrontier = errors.New("tree: missing frontier")

	// RootUnverifiable is MissingFrontier encountered at verification time
	// rather than at bootstrap.
	RootUnverifiable = errors.New("tree: root unverifiable, no end frontier")

	// RootMismatch is returned when the computed root diverges from the
	// server's frontier root at the end height.
	RootMismatch = errors.New("tree: computed root does not match server frontier")

	// TreeInvariantBroken indicates corrupted internal tree state: a
	// position mismatch, an unknown shard, or a store error.
	TreeInvariantBroken = errors.New("tree: invariant broken")

	// MemoDecryptFailure is per-hit: the full ciphertext did not
	// reproduce the compact hit. Logged and skipped, never fatal.
	MemoDecryptFailure = errors.New("memo: full decryption did not reproduce compact hit")

	// ConfigInvalid is refused at entry: unparseable key, impossible range.
	ConfigInvalid = errors.New("config: invalid")
)

// RootMismatchDetail carries the expected/actual roots for a RootMismatch.
type RootMismatchDetail struct {
	Pool     string
	Expected []byte
	Actual   []byte
}

func (d *RootMismatchDetail) Error() string {
	return "tree: computed root does not match server frontier for pool " + d.Pool
}

func (d *RootMismatchDetail) Unwrap() error { return RootMismatch }

// NewRootMismatch builds a detailed RootMismatch error.
func NewRootMismatch(pool string, expected, actual []byte) error {
	return &RootMismatchDetail{Pool: pool, Expected: expected, Actual: actual}
}
