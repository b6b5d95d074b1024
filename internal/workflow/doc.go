// Package workflow drives a full transcription run.
//
// A run holds an exclusive file lock on the state directory, then repeats
// rounds: discover jobs, load the proxy pool and hand both to the
// dispatcher. A round ends when every job is complete or the pool is
// exhausted; an exhausted pool triggers a reload for the next round. The
// run stops when nothing is pending, no proxies can be obtained, the round
// limit is reached or the context is cancelled.
//
// Every attempt outcome is written to the journal when it is enabled.
package workflow
