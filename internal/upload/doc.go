// Package upload drives one remote transcription attempt for a (job, proxy)
// pair.
//
// The remote flow is modelled as an explicit state machine. Plan maps what
// the page currently shows to a decision and Apply folds the decision's
// result into the attempt's progress; both are pure so the transition rules
// are testable without a browser. Machine wires them to a Session, holds the
// job's slot for the exclusive part of the attempt and writes the transcript.
package upload
