package parallel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// TestWorkerPool_RunsAllTasks submits more tasks than workers and checks
// every task executes exactly once.
func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	const tasks = 100
	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		if err := pool.Submit(context.Background(), func() {
			defer wg.Done()
			atomic.AddInt64(&ran, 1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if got := atomic.LoadInt64(&ran); got != tasks {
		t.Fatalf("ran %d tasks, want %d", got, tasks)
	}
}

// TestWorkerPool_SubmitAfterShutdown checks the shutdown error path.
func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	if err := pool.Submit(context.Background(), func() {}); err != ErrPoolShutdown {
		t.Fatalf("Submit after shutdown = %v, want ErrPoolShutdown", err)
	}
}

// TestWorkerPool_DefaultSize checks the CPU-count default.
func TestWorkerPool_DefaultSize(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	if pool.maxWorkers <= 0 {
		t.Fatalf("maxWorkers = %d, want positive", pool.maxWorkers)
	}
}
