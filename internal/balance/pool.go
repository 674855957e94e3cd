// Package balance computes wallet balances by looking up every managed
// address on a bounded pool of worker goroutines.
package balance

import (
	"errors"
	"sync"
)

// ErrPoolStopped is returned by Run once Stop has been called.
var ErrPoolStopped = errors.New("balance pool stopped")

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 64

// Pool is a fixed set of worker goroutines shared by every balance
// computation in the process. Tasks are never cancelled once submitted.
type Pool struct {
	started sync.Once
	stopped sync.Once

	size int
	work chan *request
	quit chan struct{}
	wg   sync.WaitGroup
}

// request pairs a task with the channel its result is reported on.
type request struct {
	fn   func() error
	done chan<- error
}

// NewPool creates a pool of n workers. n <= 0 selects DefaultWorkers.
// The workers are spawned by Start (or the first Run).
func NewPool(n int) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	return &Pool{
		size: n,
		work: make(chan *request),
		quit: make(chan struct{}),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Start spins up the workers. It is safe to call more than once.
func (p *Pool) Start() {
	p.started.Do(func() {
		p.wg.Add(p.size)
		for i := 0; i < p.size; i++ {
			go p.worker()
		}
	})
}

// Stop shuts the workers down after their current task and waits for them.
func (p *Pool) Stop() {
	p.stopped.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.work:
			req.done <- req.fn()
		case <-p.quit:
			return
		}
	}
}

// Run executes every task on the pool and blocks until all submitted tasks
// have finished. It returns the first error observed, or nil.
//
// A task must not call Run on the same pool: with every worker blocked in a
// nested Run the pool would deadlock.
func (p *Pool) Run(tasks []func() error) error {
	p.Start()

	// Buffered so workers never block on reporting.
	done := make(chan error, len(tasks))
	submitted := 0
	var firstErr error

submit:
	for _, fn := range tasks {
		select {
		case p.work <- &request{fn: fn, done: done}:
			submitted++
		case <-p.quit:
			firstErr = ErrPoolStopped
			break submit
		}
	}

	for i := 0; i < submitted; i++ {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Collect runs fn for every index in [0, n) on the pool and returns the
// results in index order. On any failure the results are discarded and the
// first observed error is returned.
func Collect[T any](p *Pool, n int, fn func(i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	tasks := make([]func() error, n)
	for i := range tasks {
		i := i
		tasks[i] = func() error {
			v, err := fn(i)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		}
	}
	if err := p.Run(tasks); err != nil {
		return nil, err
	}
	return results, nil
}
