package cpu

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolWorkers(t *testing.T) {
	p := NewPool(3)
	defer p.Close()
	if p.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", p.Workers())
	}

	q := NewPool(0)
	defer q.Close()
	if q.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want GOMAXPROCS", q.Workers())
	}
}

func TestPoolRunWaitsForAllJobs(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var counter atomic.Int64
	jobs := make([]func(), 500)
	for i := range jobs {
		jobs[i] = func() { counter.Add(1) }
	}
	p.Run(jobs)
	if got := counter.Load(); got != 500 {
		t.Errorf("counter = %d after Run, want 500", got)
	}
}

func TestPoolRunEmpty(t *testing.T) {
	p := NewPool(2)
	defer p.Close()
	p.Run(nil)
}

func TestPoolRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	ran := 0
	p.Run([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran = %d after Close, want 2", ran)
	}
}

func TestPoolRepeatedBatches(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var counter atomic.Int64
	for range 50 {
		jobs := make([]func(), 37)
		for i := range jobs {
			jobs[i] = func() { counter.Add(1) }
		}
		p.Run(jobs)
	}
	if got := counter.Load(); got != 50*37 {
		t.Errorf("counter = %d, want %d", got, 50*37)
	}
}

func TestPoolRunConcurrentWithClose(t *testing.T) {
	for range 50 {
		p := NewPool(2)
		var counter atomic.Int64
		var wg sync.WaitGroup
		const runners, perRun = 4, 100
		for range runners {
			wg.Add(1)
			go func() {
				defer wg.Done()
				jobs := make([]func(), perRun)
				for i := range jobs {
					jobs[i] = func() { counter.Add(1) }
				}
				p.Run(jobs)
			}()
		}
		p.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(10 * time.Second):
			t.Fatal("Run did not return after a concurrent Close")
		}
		if got := counter.Load(); got != runners*perRun {
			t.Fatalf("counter = %d, want %d", got, runners*perRun)
		}
	}
}
