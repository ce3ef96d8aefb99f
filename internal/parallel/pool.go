// Package parallel provides the worker pool the CPU classifier uses to run
// independent tile jobs concurrently.
//
// Tiles write disjoint ranges of the shared result buffer, so jobs need no
// synchronization among themselves; the pool only guarantees that ExecuteAll
// returns after every job has run.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool distributes tile jobs across worker goroutines.
//
// Each worker primarily pulls from its own queue but steals from other
// workers when its queue is empty, which balances load when edge tiles are
// cheaper than full tiles.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used. Workers start
// immediately and wait for jobs.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Buffered queues hide submission latency without unbounded growth.
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return
		case job := <-myQueue:
			if job != nil {
				job()
			}
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case job := <-myQueue:
				if job != nil {
					job()
				}
			}
		}
	}
}

// drainQueue executes all remaining jobs in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case job := <-queue:
			if job != nil {
				job()
			}
		default:
			return
		}
	}
}

// steal attempts to take a job from another worker's queue.
// Returns nil if no job is available.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case job := <-p.workQueues[i]:
			return job
		default:
		}
	}
	return nil
}

// ExecuteAll distributes jobs round-robin across workers and waits for all
// of them to complete. If the pool is closed, this is a no-op.
func (p *WorkerPool) ExecuteAll(jobs []func()) {
	if len(jobs) == 0 || !p.running.Load() {
		return
	}

	var completionWG sync.WaitGroup
	completionWG.Add(len(jobs))

	for i, fn := range jobs {
		workerID := i % p.workers
		job := fn

		wrapped := func() {
			defer completionWG.Done()
			job()
		}

		select {
		case p.workQueues[workerID] <- wrapped:
		case <-p.done:
			completionWG.Done()
		}
	}

	completionWG.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return p.workers }

// Close stops the pool. Jobs already queued are drained before workers
// exit; Close blocks until they have.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
