package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"transcripter/internal/jobs"
	"transcripter/internal/journal"
	"transcripter/internal/proxy"
	"transcripter/internal/services"
	"transcripter/internal/testsupport"
	"transcripter/internal/upload"
	"transcripter/internal/upload/uploadtest"
)

type attemptFunc func(ctx context.Context, job *jobs.Job, via proxy.Proxy) upload.Result

func (f attemptFunc) Attempt(ctx context.Context, job *jobs.Job, via proxy.Proxy) upload.Result {
	return f(ctx, job, via)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memRecorder) Record(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func makeJobs(t *testing.T, n int) []*jobs.Job {
	t.Helper()
	dir := t.TempDir()
	out := make([]*jobs.Job, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("clip%d", i)
		out = append(out, jobs.New(
			filepath.Join(dir, "in", "proj", name+".mp4"),
			"proj",
			"english",
			filepath.Join(dir, "out", "proj", name+jobs.OutputExt),
		))
	}
	return out
}

func makePool(t *testing.T, ids ...string) *proxy.Pool {
	t.Helper()
	list := make([]proxy.Proxy, 0, len(ids))
	for _, id := range ids {
		p, err := proxy.Parse(id)
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		list = append(list, p)
	}
	return proxy.NewPool(filepath.Join(t.TempDir(), "proxy_list.json"), list, time.Now(), proxy.OriginFetch)
}

func result(outcome upload.Outcome, err error) upload.Result {
	now := time.Now()
	return upload.Result{Outcome: outcome, Err: err, Started: now, Finished: now}
}

const (
	proxyA = "10.0.0.1:8080"
	proxyB = "10.0.0.2:3128"
)

func TestGenericFailuresEvictAtLimit(t *testing.T) {
	pool := makePool(t, proxyA)
	var (
		calls        int
		presentAtTry []bool
	)
	d := New(attemptFunc(func(_ context.Context, _ *jobs.Job, _ proxy.Proxy) upload.Result {
		calls++
		presentAtTry = append(presentAtTry, pool.Contains(proxyA))
		return result(upload.GenericError, services.ErrAutomation)
	}), Options{MaxWorkers: 1, FailureLimit: 3})

	if d.RunToCompletion(context.Background(), makeJobs(t, 1), pool) {
		t.Fatal("expected false once the pool is exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts before eviction, got %d", calls)
	}
	for i, present := range presentAtTry {
		if !present {
			t.Fatalf("proxy evicted before failure %d", i+1)
		}
	}
	if pool.Len() != 0 {
		t.Fatalf("expected proxy evicted after third failure, pool=%d", pool.Len())
	}
	if got := d.Failures().Count(proxyA); got != 0 {
		t.Fatalf("counter should be dropped on eviction, got %d", got)
	}
	if d.Stats().Evicted != 1 {
		t.Fatalf("stats = %+v", d.Stats())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	all := makeJobs(t, 2)
	pool := makePool(t, proxyA)
	// Calls alternate job0/job1 until job0 succeeds on its second try.
	script := []upload.Outcome{
		upload.GenericError, // job0
		upload.GenericError, // job1
		upload.Success,      // job0
		upload.GenericError, // job1
		upload.GenericError, // job1
		upload.Success,      // job1
	}
	var calls int
	d := New(attemptFunc(func(_ context.Context, job *jobs.Job, _ proxy.Proxy) upload.Result {
		outcome := script[calls]
		calls++
		if outcome == upload.Success {
			job.MarkCompleted()
			return result(outcome, nil)
		}
		return result(outcome, services.ErrAutomation)
	}), Options{MaxWorkers: 1, FailureLimit: 3})

	if !d.RunToCompletion(context.Background(), all, pool) {
		t.Fatal("expected every job to complete")
	}
	if calls != len(script) {
		t.Fatalf("expected %d attempts, got %d", len(script), calls)
	}
	if !pool.Contains(proxyA) {
		t.Fatal("success should have reset the consecutive failure count")
	}
}

func TestConnectionErrorEvictsImmediately(t *testing.T) {
	pool := makePool(t, proxyA, proxyB)
	d := New(attemptFunc(func(_ context.Context, job *jobs.Job, via proxy.Proxy) upload.Result {
		if via.ID() == proxyB {
			return result(upload.ConnectionError, services.ErrUnreachable)
		}
		// Only report success after B's failure has been consumed.
		for pool.Contains(proxyB) {
			time.Sleep(time.Millisecond)
		}
		job.MarkCompleted()
		return result(upload.Success, nil)
	}), Options{MaxWorkers: 2, FailureLimit: 3})

	if !d.RunToCompletion(context.Background(), makeJobs(t, 1), pool) {
		t.Fatal("expected completion")
	}
	if pool.Contains(proxyB) || !pool.Contains(proxyA) {
		t.Fatalf("unexpected pool %v", pool.Snapshot())
	}
}

func TestOutcomesAfterSuccessAreDiscarded(t *testing.T) {
	pool := makePool(t, proxyA, proxyB)
	recorder := &memRecorder{}
	all := makeJobs(t, 1)
	d := New(attemptFunc(func(_ context.Context, job *jobs.Job, via proxy.Proxy) upload.Result {
		if via.ID() == proxyA {
			job.MarkCompleted()
			return result(upload.Success, nil)
		}
		for !job.Completed() {
			time.Sleep(time.Millisecond)
		}
		// Give the dispatcher time to consume A's result first.
		time.Sleep(20 * time.Millisecond)
		return result(upload.ConnectionError, services.ErrUnreachable)
	}), Options{MaxWorkers: 2, FailureLimit: 3, Recorder: recorder, RunID: "run-1"})

	if !d.RunToCompletion(context.Background(), all, pool) {
		t.Fatal("expected completion")
	}
	if !pool.Contains(proxyB) {
		t.Fatal("late connection error must not evict")
	}
	if len(recorder.entries) != 2 {
		t.Fatalf("expected both attempts journaled, got %d", len(recorder.entries))
	}
	applied := 0
	for _, e := range recorder.entries {
		if e.RunID != "run-1" || e.AttemptID == "" {
			t.Fatalf("entry missing identifiers: %+v", e)
		}
		if e.Applied {
			applied++
			if e.Outcome != "success" {
				t.Fatalf("applied entry should be the success, got %s", e.Outcome)
			}
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied entry, got %d", applied)
	}
	if d.Stats().Discarded != 1 {
		t.Fatalf("stats = %+v", d.Stats())
	}
}

func TestEmptyPoolReturnsFalse(t *testing.T) {
	pool := makePool(t)
	called := false
	d := New(attemptFunc(func(context.Context, *jobs.Job, proxy.Proxy) upload.Result {
		called = true
		return result(upload.Success, nil)
	}), Options{MaxWorkers: 4, FailureLimit: 3})

	if d.RunToCompletion(context.Background(), makeJobs(t, 2), pool) {
		t.Fatal("expected false for empty pool")
	}
	if called {
		t.Fatal("no attempt should start without proxies")
	}
}

func TestNoPendingJobsReturnsTrue(t *testing.T) {
	all := makeJobs(t, 2)
	for _, job := range all {
		job.MarkCompleted()
	}
	d := New(attemptFunc(func(context.Context, *jobs.Job, proxy.Proxy) upload.Result {
		t.Fatal("unexpected attempt")
		return upload.Result{}
	}), Options{})
	if !d.RunToCompletion(context.Background(), all, makePool(t)) {
		t.Fatal("expected true when nothing is pending")
	}
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := makePool(t, proxyA)
	d := New(attemptFunc(func(context.Context, *jobs.Job, proxy.Proxy) upload.Result {
		cancel()
		return result(upload.Cancelled, context.Canceled)
	}), Options{MaxWorkers: 1, FailureLimit: 1, PassDelay: time.Hour})

	if d.RunToCompletion(ctx, makeJobs(t, 1), pool) {
		t.Fatal("expected false after cancellation")
	}
	if !pool.Contains(proxyA) {
		t.Fatal("cancellation must not penalize the proxy")
	}
}

func TestEndToEndWithUploadMachine(t *testing.T) {
	all := makeJobs(t, 3)
	pool := makePool(t, proxyA, proxyB)
	opener := uploadtest.NewOpener(uploadtest.Script{Paragraphs: 2, OpenDelay: 20 * time.Millisecond})
	opener.Script(proxyB, uploadtest.Script{OpenErr: errors.New("connection refused")})
	machine := upload.NewMachine(opener, upload.Options{URL: "https://example.test/upload", RetryBudget: 3})

	d := New(machine, Options{MaxWorkers: 4, FailureLimit: 3})
	if !d.RunToCompletion(context.Background(), all, pool) {
		t.Fatal("expected all jobs to complete")
	}
	for _, job := range all {
		if !job.Completed() {
			t.Fatalf("%s not completed", job.Name())
		}
		if got := opener.Submits(job.SourcePath); got != 1 {
			t.Fatalf("%s submitted %d times", job.Name(), got)
		}
		testsupport.ReadFile(t, job.OutputPath)
	}
	if pool.Contains(proxyB) || !pool.Contains(proxyA) {
		t.Fatalf("unexpected pool %v", pool.Snapshot())
	}
	if opener.MaxConcurrentSubmits() > 1 {
		t.Fatalf("job had %d concurrent sessions", opener.MaxConcurrentSubmits())
	}
	if opener.Unclosed() != 0 {
		t.Fatalf("%d sessions left open", opener.Unclosed())
	}

	cached, _, ok, err := proxy.ReadCache(pool.Path())
	if err != nil || !ok {
		t.Fatalf("read cache: ok=%v err=%v", ok, err)
	}
	if len(cached) != 1 || cached[0].ID() != proxyA {
		t.Fatalf("cache does not mirror pool: %v", cached)
	}
}
