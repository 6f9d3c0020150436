package patchstream

import (
	"github.com/gogpu/patchstream/internal/parallel"
	"github.com/gogpu/patchstream/patch"
)

// BuildResult is the value produced by one build task.
type BuildResult struct {
	CellID int
	Patch  *patch.Patch
}

// BuildTask is one zero-argument build closure.
type BuildTask func() (BuildResult, error)

// BuildOutcome is the settled state of one task in a batch.
//
// Completed is true when the task returned, with or without an error. A
// task that panicked or could not be run is not completed and Err says why.
type BuildOutcome struct {
	Completed bool
	Result    BuildResult
	Err       error
}

// Scheduler runs named batches of build tasks.
//
// Schedule must not block on the tasks. It runs them concurrently and calls
// done exactly once, after every task has settled, with one outcome per
// task in task order. done may run on any goroutine.
type Scheduler interface {
	Schedule(name string, tasks []BuildTask, done func(name string, outcomes []BuildOutcome))
}

// PoolScheduler is the default Scheduler, backed by a work-stealing pool.
//
// Thread safety: PoolScheduler is safe for concurrent use.
type PoolScheduler struct {
	pool *parallel.WorkerPool
}

// NewPoolScheduler starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPoolScheduler(workers int) *PoolScheduler {
	return &PoolScheduler{pool: parallel.NewWorkerPool(workers)}
}

// Schedule implements Scheduler.
func (s *PoolScheduler) Schedule(name string, tasks []BuildTask, done func(name string, outcomes []BuildOutcome)) {
	ptasks := make([]parallel.Task[BuildResult], len(tasks))
	for i, t := range tasks {
		ptasks[i] = parallel.Task[BuildResult](t)
	}

	parallel.RunBatch(s.pool, name, ptasks, func(name string, outs []parallel.Outcome[BuildResult]) {
		if done == nil {
			return
		}
		outcomes := make([]BuildOutcome, len(outs))
		for i, o := range outs {
			outcomes[i] = BuildOutcome{Completed: o.Completed, Result: o.Value, Err: o.Err}
		}
		done(name, outcomes)
	})
}

// Workers returns the number of pool workers.
func (s *PoolScheduler) Workers() int {
	return s.pool.Workers()
}

// QueuedWork returns the approximate number of queued build tasks.
func (s *PoolScheduler) QueuedWork() int {
	return s.pool.QueuedWork()
}

// SchedulerStats describes the work a Scheduler has run.
type SchedulerStats struct {
	Workers int
	Queued  int

	// Executed counts tasks run to the end, including ones that failed.
	// Stolen counts tasks an idle worker took from another worker's queue.
	Executed uint64
	Stolen   uint64
}

// Stats returns current pool counters.
func (s *PoolScheduler) Stats() SchedulerStats {
	ps := s.pool.Stats()
	return SchedulerStats{
		Workers:  ps.Workers,
		Queued:   ps.Queued,
		Executed: ps.Executed,
		Stolen:   ps.Stolen,
	}
}

// Close stops the pool after running the work already queued. Batches
// scheduled after Close settle with parallel.ErrPoolClosed.
func (s *PoolScheduler) Close() {
	s.pool.Close()
}
