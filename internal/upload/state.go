package upload

// State is a node of the remote upload flow.
type State int

const (
	StateAwaitingUpload State = iota
	StateSubmitted
	StateLanguagePrompt
	StateCloudflareChallenge
	StateRetryPrompt
	StateTranscriptReady
	StateScraping
	StateDone
	StateAborted
	StateExhausted
)

var stateNames = map[State]string{
	StateAwaitingUpload:      "awaiting_upload",
	StateSubmitted:           "submitted",
	StateLanguagePrompt:      "language_prompt",
	StateCloudflareChallenge: "cloudflare_challenge",
	StateRetryPrompt:         "retry_prompt",
	StateTranscriptReady:     "transcript_ready",
	StateScraping:            "scraping",
	StateDone:                "done",
	StateAborted:             "aborted",
	StateExhausted:           "exhausted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Observation is what one probe round found on the page.
type Observation struct {
	Ready     bool
	Language  bool
	Challenge bool
	Retry     bool
}

// Action is what the machine does in response to an observation.
type Action int

const (
	ActionWait Action = iota
	ActionClickReady
	ActionChooseLanguage
	ActionAbort
	ActionClickRetry
)

func (a Action) String() string {
	switch a {
	case ActionClickReady:
		return "click_ready"
	case ActionChooseLanguage:
		return "choose_language"
	case ActionAbort:
		return "abort"
	case ActionClickRetry:
		return "click_retry"
	default:
		return "wait"
	}
}

// Decision pairs the recognized page state with the action to take.
type Decision struct {
	Seen   State
	Action Action
}

// Plan picks the action for an observation. When several markers are
// present the ready marker wins, then the language prompt, the challenge
// banner and the retry control.
func Plan(obs Observation) Decision {
	switch {
	case obs.Ready:
		return Decision{Seen: StateTranscriptReady, Action: ActionClickReady}
	case obs.Language:
		return Decision{Seen: StateLanguagePrompt, Action: ActionChooseLanguage}
	case obs.Challenge:
		return Decision{Seen: StateCloudflareChallenge, Action: ActionAbort}
	case obs.Retry:
		return Decision{Seen: StateRetryPrompt, Action: ActionClickRetry}
	default:
		return Decision{Seen: StateSubmitted, Action: ActionWait}
	}
}

// Progress is the evaluate loop's state between probe rounds.
type Progress struct {
	State       State
	RetriesUsed int
	Budget      int
}

// Terminal reports whether the evaluate loop is finished. StateScraping ends the
// loop; StateDone is only reached after the transcript is written.
func (p Progress) Terminal() bool {
	switch p.State {
	case StateScraping, StateDone, StateAborted, StateExhausted:
		return true
	default:
		return false
	}
}

// Apply folds the result of acting on d into p. acted reports whether every
// click the action needed succeeded. Choosing the language costs no retry
// when it succeeds; every other non-advancing round costs one.
func Apply(p Progress, d Decision, acted bool) Progress {
	if p.Terminal() {
		return p
	}
	next := p
	next.State = d.Seen
	switch d.Action {
	case ActionClickReady:
		if acted {
			next.State = StateScraping
			return next
		}
		next.RetriesUsed++
	case ActionChooseLanguage:
		if !acted {
			next.RetriesUsed++
		}
	case ActionAbort:
		next.State = StateAborted
		return next
	default:
		next.RetriesUsed++
	}
	if next.RetriesUsed >= next.Budget {
		next.State = StateExhausted
	}
	return next
}
