package upload

import (
	"testing"
	"time"
)

func TestPlanPriority(t *testing.T) {
	cases := []struct {
		name string
		obs  Observation
		want Decision
	}{
		{"everything", Observation{Ready: true, Language: true, Challenge: true, Retry: true}, Decision{StateTranscriptReady, ActionClickReady}},
		{"language over challenge", Observation{Language: true, Challenge: true}, Decision{StateLanguagePrompt, ActionChooseLanguage}},
		{"challenge over retry", Observation{Challenge: true, Retry: true}, Decision{StateCloudflareChallenge, ActionAbort}},
		{"retry", Observation{Retry: true}, Decision{StateRetryPrompt, ActionClickRetry}},
		{"nothing", Observation{}, Decision{StateSubmitted, ActionWait}},
	}
	for _, tc := range cases {
		if got := Plan(tc.obs); got != tc.want {
			t.Fatalf("%s: Plan = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestLanguageThenReadyConvergesInTwoTransitions(t *testing.T) {
	p := Progress{State: StateSubmitted, Budget: 3}

	p = Apply(p, Plan(Observation{Language: true}), true)
	if p.State != StateLanguagePrompt || p.RetriesUsed != 0 || p.Terminal() {
		t.Fatalf("after language: %+v", p)
	}
	p = Apply(p, Plan(Observation{Ready: true}), true)
	if p.State != StateScraping || p.RetriesUsed != 0 {
		t.Fatalf("after ready: %+v", p)
	}
	if !p.Terminal() {
		t.Fatal("scraping should end the evaluate loop")
	}
}

func TestChallengeAbortsImmediately(t *testing.T) {
	cases := []struct {
		name  string
		start Progress
	}{
		{"fresh budget", Progress{State: StateSubmitted, Budget: 3}},
		{"one retry left", Progress{State: StateRetryPrompt, RetriesUsed: 2, Budget: 3}},
		{"after language prompt", Progress{State: StateLanguagePrompt, RetriesUsed: 1, Budget: 3}},
	}
	for _, tc := range cases {
		p := Apply(tc.start, Plan(Observation{Challenge: true, Retry: true}), false)
		if p.State != StateAborted || p.RetriesUsed != tc.start.RetriesUsed || !p.Terminal() {
			t.Fatalf("%s: unexpected progress %+v", tc.name, p)
		}
	}
}

func TestBudgetExhaustion(t *testing.T) {
	p := Progress{State: StateSubmitted, Budget: 3}
	nothing := Plan(Observation{})
	p = Apply(p, nothing, false)
	p = Apply(p, Plan(Observation{Retry: true}), true)
	if p.Terminal() || p.RetriesUsed != 2 || p.State != StateRetryPrompt {
		t.Fatalf("after two rounds: %+v", p)
	}
	p = Apply(p, nothing, false)
	if p.State != StateExhausted || p.RetriesUsed != 3 {
		t.Fatalf("expected exhaustion, got %+v", p)
	}
	if again := Apply(p, Plan(Observation{Ready: true}), true); again != p {
		t.Fatalf("terminal progress must not change, got %+v", again)
	}
}

func TestFailedClicksConsumeRetries(t *testing.T) {
	p := Progress{State: StateSubmitted, Budget: 5}
	p = Apply(p, Plan(Observation{Language: true}), false)
	p = Apply(p, Plan(Observation{Ready: true}), false)
	if p.RetriesUsed != 2 || p.Terminal() {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestPauseAfter(t *testing.T) {
	tm := DefaultTimings()
	cases := []struct {
		d     Decision
		acted bool
		want  time.Duration
	}{
		{Plan(Observation{Language: true}), true, tm.AfterLanguage},
		{Plan(Observation{Retry: true}), true, tm.AfterRetry},
		{Plan(Observation{}), false, tm.AfterNothing},
		{Plan(Observation{Ready: true}), false, tm.AfterFailedClick},
		{Plan(Observation{Challenge: true}), false, 0},
	}
	for _, tc := range cases {
		if got := tm.pauseAfter(tc.d, tc.acted); got != tc.want {
			t.Fatalf("pauseAfter(%v, %v) = %v, want %v", tc.d.Action, tc.acted, got, tc.want)
		}
	}
}

func TestStateNames(t *testing.T) {
	if StateCloudflareChallenge.String() != "cloudflare_challenge" || State(99).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
	if ConnectionError.String() != "connection_error" || Outcome(42).String() != "unknown" {
		t.Fatal("unexpected outcome names")
	}
}
