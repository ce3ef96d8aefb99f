package parallel

import (
	"sync/atomic"
	"testing"
)

func TestExecuteAllRunsEveryJob(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n = 100
	var ran atomic.Int64
	jobs := make([]func(), n)
	for i := range jobs {
		jobs[i] = func() { ran.Add(1) }
	}

	pool.ExecuteAll(jobs)
	if got := ran.Load(); got != n {
		t.Errorf("ExecuteAll ran %d jobs, want %d", got, n)
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()
	pool.ExecuteAll(nil) // must not block or panic
}

func TestWorkersDefault(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	if pool.Workers() < 1 {
		t.Errorf("Workers() = %d, want at least 1", pool.Workers())
	}
}

func TestExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var ran atomic.Int64
	pool.ExecuteAll([]func(){func() { ran.Add(1) }})
	if got := ran.Load(); got != 0 {
		t.Errorf("closed pool ran %d jobs, want 0", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close() // second close must be a no-op
}

func TestExecuteAllUnevenLoad(t *testing.T) {
	// More jobs than workers with uneven cost exercises work stealing.
	pool := NewWorkerPool(2)
	defer pool.Close()

	var sum atomic.Int64
	jobs := make([]func(), 64)
	for i := range jobs {
		v := int64(i)
		jobs[i] = func() {
			for range v % 7 {
				sum.Add(1)
			}
			sum.Add(1)
		}
	}
	pool.ExecuteAll(jobs)

	want := int64(0)
	for i := int64(0); i < 64; i++ {
		want += i%7 + 1
	}
	if got := sum.Load(); got != want {
		t.Errorf("sum = %d, want %d", got, want)
	}
}
