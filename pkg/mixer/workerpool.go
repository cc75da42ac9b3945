// Package mixer implements the hierarchical mixer graph: children (leaf
// sources or nested sub-mixers), an ordered effect chain, a per-mixer
// scheduler, and optional concurrent sub-mixer dispatch. Grounded on the
// teacher's pkg/thread/pool.go FallbackPool (goroutines + sync.WaitGroup
// fan-out/fan-in over a fixed worker count), reimplemented on
// golang.org/x/sync/errgroup so dispatch failures propagate through Wait
// instead of a bespoke channel-of-tasks loop.
package mixer

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many sub-mixers are processed concurrently in one
// block, mirroring the teacher's FallbackPool.maxWorkers cap.
type WorkerPool struct {
	maxWorkers int
}

// NewWorkerPool creates a pool capped at maxWorkers concurrent tasks; <= 0
// defaults to runtime.NumCPU(), matching the teacher's fallback default.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &WorkerPool{maxWorkers: maxWorkers}
}

// Dispatch is an in-flight batch of tasks started by Start; the caller
// does other work (mixing leaf sources) and then calls Wait.
type Dispatch struct {
	group *errgroup.Group
}

// Start launches every task, bounded to the pool's worker cap, and returns
// immediately so the caller can mix leaf sources while workers run.
func (p *WorkerPool) Start(tasks []func() error) *Dispatch {
	g := &errgroup.Group{}
	g.SetLimit(p.maxWorkers)
	for _, task := range tasks {
		task := task
		g.Go(task)
	}
	return &Dispatch{group: g}
}

// Wait blocks until every task in the dispatch has completed, returning the
// first error any task reported.
func (d *Dispatch) Wait() error {
	return d.group.Wait()
}
