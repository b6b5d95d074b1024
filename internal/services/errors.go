package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreachable marks failures to reach the remote page at all: the
	// browser could not start, the page never rendered its upload control, or
	// the file could not be handed over. The egress resource is considered
	// dead.
	ErrUnreachable = errors.New("remote unreachable")
	// ErrAutomation marks failures inside the remote flow once the page is
	// reachable (missing controls, exhausted retry budget).
	ErrAutomation = errors.New("automation failure")
	// ErrChallenge marks a bot-challenge interstitial.
	ErrChallenge     = errors.New("bot challenge")
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout accompanies another marker when a bounded remote wait ran out.
	ErrTimeout   = errors.New("timeout")
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing hint for the marker carried by err.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreachable) && errors.Is(err, ErrTimeout):
		return "remote page did not answer in time; the proxy will be evicted"
	case errors.Is(err, ErrUnreachable):
		return "proxy or target site unreachable; the proxy will be evicted"
	case errors.Is(err, ErrChallenge):
		return "target site served a bot challenge; try another egress"
	case errors.Is(err, ErrAutomation):
		return "remote page did not behave as expected; check selectors and timeouts"
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration file and retry"
	case errors.Is(err, ErrTimeout):
		return "operation timed out; consider raising the timeout"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
