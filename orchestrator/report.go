package orchestrator

import (
	"time"

	"github.com/forestrie/shieldsync/memorecover"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/trialdecrypt"
)

// PoolReport summarizes one pool's portion of a sync run.
type PoolReport struct {
	Pool          poolcrypto.Pool
	TotalLeaves   int
	SpamSkipped   int
	Hits          []trialdecrypt.Hit
	Recovered     []memorecover.Recovered
	FinalPosition uint64
	FinalRoot     poolcrypto.Hash
}

// Report is the result of a complete Orchestrator.Run call (spec.md §4.6, C6).
type Report struct {
	StartHeight uint64
	EndHeight   uint64
	Elapsed     time.Duration
	PoolA       *PoolReport
	PoolB       *PoolReport
}

func (r *Report) poolReport(pool poolcrypto.Pool) *PoolReport {
	if pool == poolcrypto.PoolA {
		return r.PoolA
	}
	return r.PoolB
}
