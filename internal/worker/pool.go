// Package worker provides the concurrency primitives for the pipeline:
// a fixed-size pool for CPU-bound document jobs and a per-host rate
// limiter for downloads.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work, identified so failures can be reported per
// document.
type Job struct {
	ID string
	Fn func(ctx context.Context) error
}

// Result pairs a job id with its outcome.
type Result struct {
	ID  string
	Err error
}

// Pool executes jobs over a fixed number of goroutines.
type Pool struct {
	workers int
}

// NewPool creates a pool. A non-positive worker count falls back to one.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes all jobs and returns one result per job, in completion
// order. Cancelling the context stops feeding new jobs; running jobs see
// the cancellation through their own context.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	queue := make(chan Job)
	results := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				results <- Result{ID: job.ID, Err: job.Fn(ctx)}
			}
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(jobs))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// Failures filters a result set down to the failed jobs.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
