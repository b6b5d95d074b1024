package upload

import (
	"context"
	"errors"

	"transcripter/internal/services"
)

// Outcome is the result class of one attempt, consumed by the dispatcher.
type Outcome int

const (
	// Success means the transcript was written and the job marked complete.
	Success Outcome = iota
	// ConnectionError means the page or the file handoff never worked; the
	// proxy is evicted.
	ConnectionError
	// GenericError means the flow failed after the page was reachable; the
	// proxy accrues one failure.
	GenericError
	// Aborted means a bot challenge was shown; no penalty.
	Aborted
	// Superseded means another attempt completed the job first; no side effects.
	Superseded
	// Cancelled means the run's context ended mid-attempt; no penalty.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ConnectionError:
		return "connection_error"
	case GenericError:
		return "generic_error"
	case Aborted:
		return "aborted"
	case Superseded:
		return "superseded"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Classify maps an attempt error onto an outcome by its marker.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, services.ErrUnreachable):
		return ConnectionError
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.Is(err, services.ErrChallenge):
		return Aborted
	default:
		return GenericError
	}
}
