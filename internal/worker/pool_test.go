package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	index int
	err   error
}

func (r *mockResult) Index() int      { return r.index }
func (r *mockResult) GetError() error { return r.err }

type mockJob struct {
	index     int
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *mockJob) Index() int { return j.index }

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{index: j.index, err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{index: j.index, err: fmt.Errorf("job %d failed", j.index)}
	}
	return &mockResult{index: j.index}
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()
	if p := NewPool(ctx, 5, false); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(ctx, 0, false); p.workers != 1 {
		t.Errorf("expected 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool(ctx, -1, false); p.workers != 1 {
		t.Errorf("expected 1 worker for negative input, got %d", p.workers)
	}
}

// More jobs than queue slots must not deadlock.
func TestPool_ManyJobs(t *testing.T) {
	pool := NewPool(context.Background(), 2, false)
	pool.Start()

	var executed int32
	count := 200
	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{index: i, executed: &executed})
	}

	results := pool.Wait()

	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

func TestPool_ResultsOrderedByIndex(t *testing.T) {
	pool := NewPool(context.Background(), 4, false)
	pool.Start()

	count := 20
	for i := 0; i < count; i++ {
		// later jobs finish first
		pool.Submit(&mockJob{index: i, duration: time.Duration(count-i) * time.Millisecond})
	}

	results := pool.Wait()
	for i, r := range results {
		if r.Index() != i {
			t.Fatalf("result %d has index %d", i, r.Index())
		}
	}
}

type concurrencyJob struct {
	index    int
	start    func()
	end      func()
	duration time.Duration
}

func (j *concurrencyJob) Index() int { return j.index }

func (j *concurrencyJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &mockResult{index: j.index}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool(context.Background(), workers, false)
	pool.Start()

	var current, maxConcurrent, completed int32
	var mu sync.Mutex

	totalJobs := 50
	for i := 0; i < totalJobs; i++ {
		pool.Submit(&concurrencyJob{
			index: i,
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
			duration: 10 * time.Millisecond,
		})
	}

	pool.Wait()

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}

	mu.Lock()
	max := maxConcurrent
	mu.Unlock()
	if max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}
}

func TestPool_SingleWorkerIsSequential(t *testing.T) {
	pool := NewPool(context.Background(), 1, false)
	pool.Start()

	var current, overlap int32
	for i := 0; i < 10; i++ {
		pool.Submit(&concurrencyJob{
			index: i,
			start: func() {
				if atomic.AddInt32(&current, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
			},
			end:      func() { atomic.AddInt32(&current, -1) },
			duration: time.Millisecond,
		})
	}
	pool.Wait()

	if atomic.LoadInt32(&overlap) != 0 {
		t.Error("jobs overlapped on a single worker")
	}
}

func TestPool_FailFast(t *testing.T) {
	pool := NewPool(context.Background(), 1, true)
	pool.Start()

	var executed int32
	pool.Submit(&mockJob{index: 0, executed: &executed})
	pool.Submit(&mockJob{index: 1, shouldErr: true, executed: &executed})
	for i := 2; i < 10; i++ {
		pool.Submit(&mockJob{index: i, executed: &executed})
	}

	results := pool.Wait()
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if got := atomic.LoadInt32(&executed); got != 2 {
		t.Errorf("expected 2 executed jobs, got %d", got)
	}

	err := FirstError(results)
	if err == nil || err.Error() != "job 1 failed" {
		t.Errorf("expected job 1 error, got %v", err)
	}
}

func TestPool_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2, false)
	pool.Start()
	cancel()

	var executed int32
	for i := 0; i < 5; i++ {
		pool.Submit(&mockJob{index: i, executed: &executed})
	}

	results := pool.Wait()
	if atomic.LoadInt32(&executed) != 0 {
		t.Errorf("expected no job to run after cancel, got %d", executed)
	}
	if !errors.Is(FirstError(results), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", FirstError(results))
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2, false)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&mockJob{index: 0, duration: 5 * time.Second})
	pool.Submit(&concurrencyJob{index: 1, start: func() { close(started) }})
	<-started

	done := make(chan []Result)
	go func() { done <- pool.Shutdown() }()

	select {
	case results := <-done:
		if !errors.Is(FirstError(results), context.Canceled) {
			t.Errorf("expected canceled job, got %v", FirstError(results))
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}
}

func TestFirstError(t *testing.T) {
	realErr := errors.New("boom")
	results := []Result{
		&mockResult{index: 0},
		&mockResult{index: 1, err: fmt.Errorf("fetch: %w", context.Canceled)},
		&mockResult{index: 2, err: realErr},
		&mockResult{index: 3, err: errors.New("later")},
	}

	if err := FirstError(results); err != realErr {
		t.Errorf("expected %v, got %v", realErr, err)
	}
	if err := FirstError(results[:1]); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := FirstError(results[:2]); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}
