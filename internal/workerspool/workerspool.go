// Package workerspool caps how many fusion passes run concurrently when the
// driver optimizes many independent host graphs (distinct compiled partitions
// of a larger model) at once.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool is a soft cap on parallel work. Tasks are plain funcs; each task owns
// its host graph exclusively, so the pool does no synchronization beyond
// admission.
type Pool struct {
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning decreases.
	numRunning     int
}

// New returns a Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	p := &Pool{maxParallelism: runtime.NumCPU()}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// MaxParallelism returns the current cap. 0 disables parallelism (tasks run
// inline); negative means unlimited.
func (p *Pool) MaxParallelism() int {
	return p.maxParallelism
}

// SetMaxParallelism changes the cap. Only change it before submitting tasks;
// changing it mid-flight has undefined behavior.
func (p *Pool) SetMaxParallelism(maxParallelism int) {
	p.maxParallelism = maxParallelism
}

// WaitToStart blocks until a worker slot is free, then runs task in its own
// goroutine. With parallelism disabled (cap 0) the task runs inline instead.
func (p *Pool) WaitToStart(task func()) {
	if p.maxParallelism < 0 {
		go task()
		return
	}
	if p.maxParallelism == 0 {
		task()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.numRunning >= p.maxParallelism {
		p.cond.Wait()
	}
	p.numRunning++
	go func() {
		task()
		p.mu.Lock()
		p.numRunning--
		p.cond.Signal()
		p.mu.Unlock()
	}()
}
