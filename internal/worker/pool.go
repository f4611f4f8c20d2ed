// Package worker runs indexed jobs over a bounded set of goroutines and
// rate-limits requests per upstream host.
package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Job is a unit of work; Index is its position in the submitting batch
type Job interface {
	Index() int
	Execute(ctx context.Context) Result
}

// Result is the outcome of a Job
type Result interface {
	Index() int
	GetError() error
}

// Pool executes jobs on a fixed number of workers. With FailFast set the
// first failing job cancels every job that has not started yet.
type Pool struct {
	workers    int
	failFast   bool
	jobQueue   chan Job
	results    chan Result
	collected  []Result
	wg         sync.WaitGroup
	collector  sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool bound to ctx with the given number of workers
func NewPool(ctx context.Context, workers int, failFast bool) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		failFast:   failFast,
		jobQueue:   make(chan Job, workers),
		results:    make(chan Result, workers),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.collector.Add(1)
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			p.results <- canceled{index: job.Index(), err: p.ctx.Err()}
			continue
		}

		result := job.Execute(p.ctx)
		if p.failFast && result.GetError() != nil {
			p.cancelFunc()
		}
		p.results <- result
	}
}

// collect drains results while jobs are still being submitted
func (p *Pool) collect() {
	defer p.collector.Done()
	for result := range p.results {
		p.collected = append(p.collected, result)
	}
}

// Submit queues a job, blocking while all workers are busy
func (p *Pool) Submit(job Job) {
	p.jobQueue <- job
}

// Wait closes the queue, waits for every job and returns the results
// ordered by job index
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	p.collector.Wait()
	p.cancelFunc()

	sort.Slice(p.collected, func(i, j int) bool {
		return p.collected[i].Index() < p.collected[j].Index()
	})
	return p.collected
}

// Shutdown cancels outstanding jobs and waits for the workers to drain
func (p *Pool) Shutdown() []Result {
	p.cancelFunc()
	return p.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// canceled is reported for jobs skipped after cancellation
type canceled struct {
	index int
	err   error
}

func (c canceled) Index() int      { return c.index }
func (c canceled) GetError() error { return c.err }

// FirstError returns the error of the lowest-indexed failed result.
// Cancellation errors are only reported when no job failed on its own.
func FirstError(results []Result) error {
	var skipped error
	for _, r := range results {
		err := r.GetError()
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if skipped == nil {
				skipped = err
			}
			continue
		}
		return err
	}
	return skipped
}
