package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sectionResult struct {
	section string
	err     error
}

func (r *sectionResult) GetError() error { return r.err }

// sectionJob stands in for one section synthesis call
type sectionJob struct {
	section string
	hold    time.Duration
	fail    bool
	gauge   *gauge
	started chan<- struct{}
}

type gauge struct {
	mu            sync.Mutex
	running, peak int
	done          int32
}

func (g *gauge) enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running++
	if g.running > g.peak {
		g.peak = g.running
	}
}

func (g *gauge) leave() {
	g.mu.Lock()
	g.running--
	g.mu.Unlock()
	atomic.AddInt32(&g.done, 1)
}

func (j *sectionJob) Execute(ctx context.Context) Result {
	if j.gauge != nil {
		j.gauge.enter()
		defer j.gauge.leave()
	}
	if j.started != nil {
		j.started <- struct{}{}
	}

	if j.hold > 0 {
		select {
		case <-time.After(j.hold):
		case <-ctx.Done():
			return &sectionResult{section: j.section, err: ctx.Err()}
		}
	}
	if j.fail {
		return &sectionResult{section: j.section, err: errors.New("model unavailable")}
	}
	return &sectionResult{section: j.section}
}

func TestNewPool_WorkerCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{5, 5},
		{1, 1},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if p := NewPool(context.Background(), tt.in); p.workers != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.in, tt.want, p.workers)
		}
	}
}

func TestPool_RunsEveryJobWithinWorkerBound(t *testing.T) {
	const workers, jobs = 3, 40
	g := &gauge{}

	pool := NewPool(context.Background(), workers)
	pool.Start()
	for i := 0; i < jobs; i++ {
		if !pool.Submit(&sectionJob{section: "liver", hold: 2 * time.Millisecond, gauge: g}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	results := pool.Wait()

	if len(results) != jobs {
		t.Errorf("expected %d results, got %d", jobs, len(results))
	}
	if atomic.LoadInt32(&g.done) != jobs {
		t.Errorf("expected %d jobs run, got %d", jobs, g.done)
	}
	if g.peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", g.peak, workers)
	}
}

func TestPool_CollectsFailures(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&sectionJob{section: "liver", fail: true})
	pool.Submit(&sectionJob{section: "spleen"})
	pool.Submit(&sectionJob{section: "bones", fail: true})

	failed := make(map[string]bool)
	for _, res := range pool.Wait() {
		if res.GetError() != nil {
			failed[res.(*sectionResult).section] = true
		}
	}

	if len(failed) != 2 || !failed["liver"] || !failed["bones"] {
		t.Errorf("expected liver and bones to fail, got %v", failed)
	}
}

func TestPool_SubmitAfterShutdownIsRejected(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool)
	go func() { done <- pool.Submit(&sectionJob{}) }()

	select {
	case accepted := <-done:
		if accepted {
			t.Error("expected submit after shutdown to be rejected")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	started := make(chan struct{}, 1)
	pool.Submit(&sectionJob{section: "pancreas", hold: 5 * time.Second, started: started})
	<-started

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel the running job")
	}
}

func TestPool_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{}, 1)
	pool.Submit(&sectionJob{section: "kidneys", hold: 5 * time.Second, started: started})
	<-started
	cancel()

	results := pool.Wait()
	if len(results) != 1 || !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected one cancelled result, got %v", results)
	}
	if pool.Submit(&sectionJob{}) {
		t.Error("expected submit after parent cancellation to be rejected")
	}
}

func TestResultCollector_ReturnsCopy(t *testing.T) {
	c := NewResultCollector()
	c.Add(&sectionResult{section: "liver"})

	got := c.Results()
	got[0] = nil
	c.Add(&sectionResult{section: "spleen"})

	res := c.Results()
	if len(res) != 2 || res[0] == nil {
		t.Errorf("expected collector unaffected by caller edits, got %v", res)
	}
}
