package worker

import (
	"context"
	"sort"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job hands back
type Result interface {
	GetError() error
}

// ticket pairs a job with its submission order
type ticket struct {
	seq int
	job Job
}

type outcome struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines.
// Wait returns results in submission order regardless of completion order.
type Pool struct {
	workers    int
	jobQueue   chan ticket
	results    chan outcome
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	// collected is owned by collect until collectDone closes
	collected   []outcome
	collectDone chan struct{}

	mu        sync.Mutex
	submitted int
}

// NewPool creates a pool bound to parent; cancelling parent stops the workers
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	p := &Pool{
		workers:     workers,
		jobQueue:    make(chan ticket, workers*2),
		results:     make(chan outcome, workers*2),
		ctx:         ctx,
		cancelFunc:  cancel,
		collectDone: make(chan struct{}),
	}
	go p.collect()
	return p
}

func (p *Pool) collect() {
	defer close(p.collectDone)
	for o := range p.results {
		p.collected = append(p.collected, o)
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.jobQueue:
			if !ok {
				return
			}
			res := t.job.Execute(p.ctx)
			select {
			case p.results <- outcome{seq: t.seq, result: res}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false once the pool has been shut down.
// Submitting after Wait panics.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	seq := p.submitted
	p.submitted++
	p.mu.Unlock()

	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- ticket{seq: seq, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns results in submission order.
// Jobs dropped by a cancelled context have no result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	p.cancelFunc()

	collected := p.collected
	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })
	results := make([]Result, len(collected))
	for i, o := range collected {
		results[i] = o.result
	}
	return results
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
