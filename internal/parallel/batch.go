package parallel

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolClosed is reported for tasks that could not be queued because
	// the pool was closed.
	ErrPoolClosed = errors.New("parallel: pool closed")

	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("parallel: task panicked")
)

// Task is a zero-argument unit of work producing a value or an error.
type Task[T any] func() (T, error)

// Outcome is the settled state of one task in a batch.
//
// Completed is true when the task returned normally, whether or not it
// returned an error. A task that panicked or was never run is not completed
// and carries the reason in Err.
type Outcome[T any] struct {
	Completed bool
	Value     T
	Err       error
}

// RunBatch runs tasks concurrently on the pool and calls done exactly once,
// after every task has settled, with one Outcome per task in task order.
//
// RunBatch does not wait for the tasks: queuing and joining happen on a
// separate goroutine, and done runs on that goroutine too. The caller never
// blocks, even when the pool queues are full.
func RunBatch[T any](p *WorkerPool, name string, tasks []Task[T], done func(name string, outcomes []Outcome[T])) {
	go func() {
		outcomes := make([]Outcome[T], len(tasks))

		var wg sync.WaitGroup
		wg.Add(len(tasks))
		for i, task := range tasks {
			run := func() {
				defer wg.Done()
				outcomes[i] = settle(task)
			}
			if !p.Submit(run) {
				outcomes[i] = Outcome[T]{Err: fmt.Errorf("batch %s: %w", name, ErrPoolClosed)}
				wg.Done()
			}
		}
		wg.Wait()

		if done != nil {
			done(name, outcomes)
		}
	}()
}

// settle runs a task and converts a panic into a not-completed outcome so a
// faulty task cannot take down the worker goroutine.
func settle[T any](task Task[T]) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
		}
	}()

	v, err := task()
	return Outcome[T]{Completed: true, Value: v, Err: err}
}
