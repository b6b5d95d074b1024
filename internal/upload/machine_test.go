package upload_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"transcripter/internal/fileutil"
	"transcripter/internal/jobs"
	"transcripter/internal/proxy"
	"transcripter/internal/services"
	"transcripter/internal/testsupport"
	"transcripter/internal/upload"
	"transcripter/internal/upload/uploadtest"
)

func newJob(t *testing.T) *jobs.Job {
	t.Helper()
	dir := t.TempDir()
	return jobs.New(filepath.Join(dir, "in", "proj", "clip.mp4"), "proj", "english", filepath.Join(dir, "out", "proj", "clip.html"))
}

func newMachine(opener upload.Opener) *upload.Machine {
	return upload.NewMachine(opener, upload.Options{URL: "https://example.test/upload", RetryBudget: 3})
}

func traceNames(trace []upload.State) string {
	names := make([]string, 0, len(trace))
	for _, s := range trace {
		names = append(names, s.String())
	}
	return strings.Join(names, ">")
}

func TestAttemptLanguagePromptThenReady(t *testing.T) {
	job := newJob(t)
	opener := uploadtest.NewOpener(uploadtest.Script{
		Screens:    []uploadtest.Screen{{Language: "English"}, {Ready: true}},
		Paragraphs: 3,
	})

	res := newMachine(opener).Attempt(context.Background(), job, proxy.Direct())
	if res.Outcome != upload.Success {
		t.Fatalf("expected success, got %v (%v)", res.Outcome, res.Err)
	}
	if got := traceNames(res.Trace); got != "awaiting_upload>submitted>language_prompt>scraping>done" {
		t.Fatalf("unexpected trace %s", got)
	}
	if res.RetriesUsed != 0 {
		t.Fatalf("language prompt must not consume retries, used %d", res.RetriesUsed)
	}
	if !job.Completed() || job.Busy() {
		t.Fatalf("job completed=%v busy=%v", job.Completed(), job.Busy())
	}
	markup := testsupport.ReadFile(t, job.OutputPath)
	if !strings.Contains(markup, "paragraph_2") {
		t.Fatalf("expected all paragraphs in markup, got %q", markup)
	}
	if opener.Unclosed() != 0 {
		t.Fatal("session left open")
	}
}

func TestAttemptChallengeAborts(t *testing.T) {
	job := newJob(t)
	opener := uploadtest.NewOpener(uploadtest.Script{Screens: []uploadtest.Screen{{Challenge: true}}})

	res := newMachine(opener).Attempt(context.Background(), job, proxy.Direct())
	if res.Outcome != upload.Aborted || res.State != upload.StateAborted {
		t.Fatalf("expected aborted, got %v / %v", res.Outcome, res.State)
	}
	if !errors.Is(res.Err, services.ErrChallenge) {
		t.Fatalf("expected challenge marker, got %v", res.Err)
	}
	if job.Completed() || fileutil.Exists(job.OutputPath) {
		t.Fatal("aborted attempt must not produce output")
	}
	if job.Busy() || opener.Unclosed() != 0 {
		t.Fatal("aborted attempt must release the slot and close the session")
	}
}

func TestAttemptChallengeAfterRetryRound(t *testing.T) {
	job := newJob(t)
	opener := uploadtest.NewOpener(uploadtest.Script{
		Screens: []uploadtest.Screen{{Retry: true}, {Challenge: true}},
	})
	res := newMachine(opener).Attempt(context.Background(), job, proxy.Direct())
	if res.Outcome != upload.Aborted || res.RetriesUsed != 1 {
		t.Fatalf("expected abort after one retry, got %v with %d used", res.Outcome, res.RetriesUsed)
	}
	if got := traceNames(res.Trace); got != "awaiting_upload>submitted>retry_prompt>aborted" {
		t.Fatalf("unexpected trace %s", got)
	}
}

func TestAttemptRetriesThenSucceeds(t *testing.T) {
	job := newJob(t)
	opener := uploadtest.NewOpener(uploadtest.Script{
		Screens: []uploadtest.Screen{{Retry: true}, {}, {Ready: true}},
	})
	res := newMachine(opener).Attempt(context.Background(), job, proxy.Direct())
	if res.Outcome != upload.Success || res.RetriesUsed != 2 {
		t.Fatalf("expected success after two retries, got %v with %d", res.Outcome, res.RetriesUsed)
	}
}

func TestAttemptFailureClassification(t *testing.T) {
	cases := []struct {
		name    string
		script  uploadtest.Script
		outcome upload.Outcome
		marker  error
		state   upload.State
	}{
		{"open fails", uploadtest.Script{OpenErr: errors.New("proxy refused")}, upload.ConnectionError, services.ErrUnreachable, upload.StateAwaitingUpload},
		{"submit fails", uploadtest.Script{SubmitErr: errors.New("file input gone")}, upload.ConnectionError, services.ErrUnreachable, upload.StateAwaitingUpload},
		{"no confirm", uploadtest.Script{NoConfirm: true}, upload.ConnectionError, services.ErrUnreachable, upload.StateAwaitingUpload},
		{"nothing recognized", uploadtest.Script{Screens: []uploadtest.Screen{{}}}, upload.GenericError, services.ErrAutomation, upload.StateExhausted},
		{"clicks fail", uploadtest.Script{Screens: []uploadtest.Screen{{Ready: true, ClickFails: true}}}, upload.GenericError, services.ErrAutomation, upload.StateExhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := newJob(t)
			opener := uploadtest.NewOpener(tc.script)
			res := newMachine(opener).Attempt(context.Background(), job, proxy.New("10.0.0.1", 8080))
			if res.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, want %v (%v)", res.Outcome, tc.outcome, res.Err)
			}
			if !errors.Is(res.Err, tc.marker) {
				t.Fatalf("error %v lacks marker %v", res.Err, tc.marker)
			}
			if res.State != tc.state {
				t.Fatalf("state = %v, want %v", res.State, tc.state)
			}
			if job.Completed() || job.Busy() {
				t.Fatalf("job completed=%v busy=%v", job.Completed(), job.Busy())
			}
			if opener.Unclosed() != 0 {
				t.Fatal("session left open")
			}
		})
	}
}

func TestAttemptSkipsCompletedJob(t *testing.T) {
	job := newJob(t)
	job.MarkCompleted()
	opener := uploadtest.NewOpener(uploadtest.Script{})
	res := newMachine(opener).Attempt(context.Background(), job, proxy.Direct())
	if res.Outcome != upload.Superseded {
		t.Fatalf("expected superseded, got %v", res.Outcome)
	}
	if opener.Opens("direct") != 0 {
		t.Fatal("completed job must not open a session")
	}
}

func TestAttemptCancelled(t *testing.T) {
	job := newJob(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newMachine(uploadtest.NewOpener(uploadtest.Script{})).Attempt(ctx, job, proxy.Direct())
	if res.Outcome != upload.Cancelled {
		t.Fatalf("expected cancelled, got %v (%v)", res.Outcome, res.Err)
	}
}

func TestConcurrentAttemptsSubmitAtMostOnce(t *testing.T) {
	job := newJob(t)
	opener := uploadtest.NewOpener(uploadtest.Script{SubmitDelay: 20 * time.Millisecond})
	machine := newMachine(opener)

	const attempts = 6
	results := make([]upload.Result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = machine.Attempt(context.Background(), job, proxy.New("10.0.0.1", 9000+i))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, res := range results {
		switch res.Outcome {
		case upload.Success:
			successes++
		case upload.Superseded:
		default:
			t.Fatalf("unexpected outcome %v (%v)", res.Outcome, res.Err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if got := opener.Submits(job.SourcePath); got != 1 {
		t.Fatalf("expected one submission, got %d", got)
	}
	if got := opener.MaxConcurrentSubmits(); got != 1 {
		t.Fatalf("expected at most one active session per job, got %d", got)
	}
	if opener.Unclosed() != 0 {
		t.Fatal("session left open")
	}
}

func TestStalledSessionCallsReleaseTheJob(t *testing.T) {
	cases := []struct {
		name    string
		script  uploadtest.Script
		outcome upload.Outcome
		marker  error
	}{
		{"submit stalls", uploadtest.Script{SubmitDelay: time.Minute}, upload.ConnectionError, services.ErrUnreachable},
		{"reveal stalls", uploadtest.Script{Paragraphs: 2, RevealHangs: true}, upload.GenericError, services.ErrAutomation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := newJob(t)
			opener := uploadtest.NewOpener(tc.script)
			machine := upload.NewMachine(opener, upload.Options{
				URL:         "https://example.test/upload",
				RetryBudget: 3,
				Timings:     upload.Timings{Click: 20 * time.Millisecond},
			})

			done := make(chan upload.Result, 1)
			go func() { done <- machine.Attempt(context.Background(), job, proxy.Direct()) }()
			var res upload.Result
			select {
			case res = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("attempt did not give up on a stalled session call")
			}

			if res.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, want %v (%v)", res.Outcome, tc.outcome, res.Err)
			}
			if !errors.Is(res.Err, tc.marker) || !errors.Is(res.Err, services.ErrTimeout) {
				t.Fatalf("error %v should carry %v and the timeout marker", res.Err, tc.marker)
			}
			if job.Busy() || job.Completed() || opener.Unclosed() != 0 {
				t.Fatalf("busy=%v completed=%v unclosed=%d", job.Busy(), job.Completed(), opener.Unclosed())
			}
		})
	}
}
