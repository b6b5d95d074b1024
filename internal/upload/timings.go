package upload

import "time"

// Timings bounds every remote wait and sets the pauses between probe rounds.
// A zero pause skips the sleep, which tests rely on.
type Timings struct {
	Open      time.Duration
	Ready     time.Duration
	Probe     time.Duration
	Click     time.Duration
	Paragraph time.Duration

	AfterLanguage    time.Duration
	AfterRetry       time.Duration
	AfterNothing     time.Duration
	AfterFailedClick time.Duration
	AfterReveal      time.Duration
}

// DefaultTimings mirrors how long the remote page usually takes to react.
func DefaultTimings() Timings {
	return Timings{
		Open:      60 * time.Second,
		Ready:     180 * time.Second,
		Probe:     5 * time.Second,
		Click:     30 * time.Second,
		Paragraph: 2 * time.Second,

		AfterLanguage:    2 * time.Second,
		AfterRetry:       10 * time.Second,
		AfterNothing:     15 * time.Second,
		AfterFailedClick: 5 * time.Second,
		AfterReveal:      500 * time.Millisecond,
	}
}

func (t Timings) pauseAfter(d Decision, acted bool) time.Duration {
	switch d.Action {
	case ActionAbort:
		return 0
	case ActionWait:
		return t.AfterNothing
	}
	if !acted {
		return t.AfterFailedClick
	}
	switch d.Action {
	case ActionChooseLanguage:
		return t.AfterLanguage
	case ActionClickRetry:
		return t.AfterRetry
	default:
		return 0
	}
}

func (t Timings) openTimeout() time.Duration {
	if t.Open <= 0 {
		return DefaultTimings().Open
	}
	return t.Open
}
