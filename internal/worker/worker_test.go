package worker

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllJobs(t *testing.T) {
	var ran int64
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{
			ID: string(rune('a' + i)),
			Fn: func(ctx context.Context) error {
				atomic.AddInt64(&ran, 1)
				return nil
			},
		}
	}

	results := NewPool(4).Run(context.Background(), jobs)
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	if ran != int64(len(jobs)) {
		t.Errorf("ran %d jobs, want %d", ran, len(jobs))
	}
	if failed := Failures(results); len(failed) != 0 {
		t.Errorf("unexpected failures: %v", failed)
	}
}

func TestPoolReportsFailures(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job{
		{ID: "ok", Fn: func(ctx context.Context) error { return nil }},
		{ID: "fail", Fn: func(ctx context.Context) error { return boom }},
	}

	results := NewPool(2).Run(context.Background(), jobs)
	failed := Failures(results)
	if len(failed) != 1 || failed[0].ID != "fail" || !errors.Is(failed[0].Err, boom) {
		t.Errorf("failures = %v", failed)
	}
}

func TestPoolStopsFeedingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran int64
	jobs := make([]Job, 100)
	for i := range jobs {
		jobs[i] = Job{
			ID: "job",
			Fn: func(ctx context.Context) error {
				if atomic.AddInt64(&ran, 1) == 1 {
					cancel()
				}
				return nil
			},
		}
	}

	results := NewPool(1).Run(ctx, jobs)
	if len(results) == len(jobs) {
		t.Error("cancellation did not stop the feed")
	}
}

func TestLimiterThrottlesPerHost(t *testing.T) {
	l := NewLimiter(50, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background(), "https://example.com/file"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("three requests took %v, want at least 40ms of throttling", elapsed)
	}
}

func TestLimiterIsPerHost(t *testing.T) {
	l := NewLimiter(1, 1)
	hosts := []string{"https://a.example/x", "https://b.example/y", "https://c.example/z"}

	start := time.Now()
	for _, h := range hosts {
		if err := l.Wait(context.Background(), h); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("distinct hosts throttled each other: %v", elapsed)
	}
}

func TestFailuresSorted(t *testing.T) {
	results := []Result{
		{ID: "b", Err: errors.New("x")},
		{ID: "a", Err: nil},
		{ID: "c", Err: errors.New("y")},
	}
	failed := Failures(results)
	ids := []string{failed[0].ID, failed[1].ID}
	sort.Strings(ids)
	if len(failed) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Errorf("failures = %v", failed)
	}
}
