// Package jobs discovers transcription jobs in the media input tree and owns
// the per-job exclusivity slot that keeps at most one remote session
// progressing a job at any instant.
//
// A job is complete exactly when its output artifact exists on disk, so a run
// interrupted at any point resumes by rediscovering the tree.
package jobs
