package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("net::ERR_PROXY_CONNECTION_FAILED")
	err := Wrap(ErrUnreachable, "upload", "open page", "navigate failed", cause)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "upload: open page: navigate failed") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHint(t *testing.T) {
	if Hint(nil) != "" {
		t.Fatal("expected empty hint for nil error")
	}
	if got := Hint(Wrap(ErrChallenge, "upload", "probe", "", nil)); !strings.Contains(got, "bot challenge") {
		t.Fatalf("unexpected challenge hint %q", got)
	}
	slow := Wrap(ErrUnreachable, "upload", "open page", "", Timeout(context.DeadlineExceeded))
	if got := Hint(slow); !strings.Contains(got, "in time") {
		t.Fatalf("unexpected timeout hint %q", got)
	}
	if !IsRetriable(slow) {
		t.Fatal("timed out waits should be retriable")
	}
}

func TestTimeoutTagsDeadlinesOnly(t *testing.T) {
	if err := Timeout(context.DeadlineExceeded); !errors.Is(err, ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline should carry the timeout marker and its cause, got %v", err)
	}
	other := errors.New("net::ERR_PROXY_CONNECTION_FAILED")
	if err := Timeout(other); err != other {
		t.Fatalf("non-deadline errors must pass through unchanged, got %v", err)
	}
	if Timeout(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestIsRetriable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{errors.New("unexpected status 503"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected status 404"), false},
	}
	for _, tc := range cases {
		if got := IsRetriable(tc.err); got != tc.want {
			t.Fatalf("IsRetriable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not return promptly")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithAttemptID(ctx, "att-1")
	ctx = WithJob(ctx, "/in/a.mp4")
	ctx = WithProxy(ctx, "1.2.3.4:80")
	ctx = WithProxy(ctx, "")

	if v, ok := RunIDFromContext(ctx); !ok || v != "run-1" {
		t.Fatalf("run id = %q, %v", v, ok)
	}
	if v, ok := AttemptIDFromContext(ctx); !ok || v != "att-1" {
		t.Fatalf("attempt id = %q, %v", v, ok)
	}
	if v, ok := JobFromContext(ctx); !ok || v != "/in/a.mp4" {
		t.Fatalf("job = %q, %v", v, ok)
	}
	if v, ok := ProxyFromContext(ctx); !ok || v != "1.2.3.4:80" {
		t.Fatalf("proxy = %q, %v", v, ok)
	}
}
