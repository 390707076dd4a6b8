// Package blockrange drives the server's streaming block-range RPC with
// bounded-backoff reconnection (spec.md §4.2, C2), resuming from the last
// successfully delivered height so a mid-stream disconnect never re-delivers
// or skips a block.
package blockrange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/synerr"
)

// Stream wraps an lwd.Client with the reconnect policy C2 requires.
type Stream struct {
	client lwd.Client
	log    logger.Logger

	// InitialInterval, MaxInterval and MaxElapsedTime configure the
	// exponential backoff between reconnect attempts. Zero InitialInterval
	// and MaxInterval keep backoff.NewExponentialBackOff's defaults.
	// MaxElapsedTime is used as is, and zero disables the limit; New sets
	// it to 2 minutes, since an unbounded retry loop would never escalate
	// to TransportFatal.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// New returns a Stream driving client, logging reconnects via log.
func New(client lwd.Client, log logger.Logger) *Stream {
	return &Stream{client: client, log: log, MaxElapsedTime: 2 * time.Minute}
}

func (s *Stream) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		b.InitialInterval = s.InitialInterval
	}
	if s.MaxInterval > 0 {
		b.MaxInterval = s.MaxInterval
	}
	b.MaxElapsedTime = s.MaxElapsedTime
	return b
}

// Run delivers every compact block in [start, end) to recv, in strictly
// increasing, contiguous height order, reconnecting on TransportTransient
// errors and resuming after the last height recv successfully accepted.
// Backoff exhaustion is returned wrapped in synerr.TransportFatal; a
// non-transient error from the server or from recv is returned as is.
func (s *Stream) Run(ctx context.Context, start, end uint64, recv func(compact.Block) error) error {
	next := start
	for next < end {
		b := s.newBackOff()
		var permErr error
		attemptErr := backoff.Retry(func() error {
			err := s.client.GetBlockRange(ctx, next, end, func(blk compact.Block) error {
				if blk.Height != next {
					return fmt.Errorf("blockrange: server sent height %d, want %d: %w", blk.Height, next, synerr.MalformedCompactRecord)
				}
				if err := recv(blk); err != nil {
					return err
				}
				next++
				return nil
			})
			if err == nil {
				return nil
			}
			if errors.Is(err, synerr.TransportTransient) {
				if s.log != nil {
					s.log.Infof("blockrange: transient error, resuming from height %d: %v", next, err)
				}
				return err
			}
			permErr = err
			return backoff.Permanent(err)
		}, b)
		if permErr != nil {
			return permErr
		}
		if attemptErr != nil {
			return fmt.Errorf("blockrange: exhausted reconnect budget at height %d: %w: %w", next, attemptErr, synerr.TransportFatal)
		}
	}
	return nil
}
