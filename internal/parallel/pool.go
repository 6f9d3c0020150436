package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs build work on a fixed set of goroutines.
//
// Each worker owns a queue. Submit puts work on the shortest queue, and an
// idle worker steals from the other queues before it blocks on its own, so
// a slow build does not hold up the work queued behind it.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	queues []chan func()

	// mu orders Submit against Close: work accepted under the read lock
	// is always queued before the workers are told to stop.
	mu      sync.RWMutex
	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	executed atomic.Uint64
	stolen   atomic.Uint64
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Workers  int
	Queued   int
	Executed uint64
	Stolen   uint64
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	depth := max(workers*4, 8)

	p := &WorkerPool{
		queues: make([]chan func(), workers),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.run(i)
	}
	return p
}

// run is the loop of worker id.
func (p *WorkerPool) run(id int) {
	defer p.wg.Done()
	own := p.queues[id]

	for {
		fn, ok := p.next(id, own)
		if !ok {
			p.drain(own)
			return
		}
		p.exec(fn)
	}
}

// next returns the next work item for a worker: its own queue first, then
// any other queue, then whatever arrives on its own queue. ok is false once
// the pool is closing.
func (p *WorkerPool) next(id int, own chan func()) (fn func(), ok bool) {
	select {
	case <-p.done:
		return nil, false
	case fn = <-own:
		return fn, true
	default:
	}

	if fn = p.steal(id); fn != nil {
		p.stolen.Add(1)
		return fn, true
	}

	select {
	case <-p.done:
		return nil, false
	case fn = <-own:
		return fn, true
	}
}

// steal takes one item from another worker's queue, or returns nil.
func (p *WorkerPool) steal(id int) func() {
	for i, q := range p.queues {
		if i == id {
			continue
		}
		select {
		case fn := <-q:
			return fn
		default:
		}
	}
	return nil
}

// drain runs the work left in a queue after Close.
func (p *WorkerPool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			p.exec(fn)
		default:
			return
		}
	}
}

func (p *WorkerPool) exec(fn func()) {
	if fn == nil {
		return
	}
	fn()
	p.executed.Add(1)
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// every queue is full.
// Submit returns false, without running fn, if fn is nil or the pool is
// closed. Work accepted before Close runs before Close returns.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return false
	}

	target := p.queues[0]
	for _, q := range p.queues[1:] {
		if len(q) < len(target) {
			target = q
		}
	}
	target <- fn
	return true
}

// Close stops accepting work, runs the work already queued and stops the
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return len(p.queues)
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the number of queued work items. The value is
// approximate while work is being submitted or executed.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}

// Stats returns current pool counters.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:  p.Workers(),
		Queued:   p.QueuedWork(),
		Executed: p.executed.Load(),
		Stolen:   p.stolen.Load(),
	}
}
