package jobs

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Job is one media chunk awaiting transcription.
type Job struct {
	SourcePath  string
	ProjectName string
	Language    string
	OutputPath  string

	completed atomic.Bool
	slot      chan struct{}
}

// New builds a job. The output artifact is not inspected; Discover does that.
func New(sourcePath, projectName, language, outputPath string) *Job {
	return &Job{
		SourcePath:  sourcePath,
		ProjectName: projectName,
		Language:    language,
		OutputPath:  outputPath,
		slot:        make(chan struct{}, 1),
	}
}

// Name returns "project/file" for tables and logs.
func (j *Job) Name() string {
	return j.ProjectName + "/" + filepath.Base(j.SourcePath)
}

// Completed reports whether the output artifact has been produced. Safe to
// call without holding the slot.
func (j *Job) Completed() bool {
	return j.completed.Load()
}

// MarkCompleted records completion. Callers must hold the slot.
func (j *Job) MarkCompleted() {
	j.completed.Store(true)
}

// Acquire blocks until the job's slot is free or ctx is done.
func (j *Job) Acquire(ctx context.Context) error {
	select {
	case j.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes the slot if it is free.
func (j *Job) TryAcquire() bool {
	select {
	case j.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Releasing an unheld slot is a no-op.
func (j *Job) Release() {
	select {
	case <-j.slot:
	default:
	}
}

// Busy reports whether some session currently holds the slot.
func (j *Job) Busy() bool {
	return len(j.slot) == 1
}

// Stem returns the source file name without its extension.
func (j *Job) Stem() string {
	base := filepath.Base(j.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Pending returns the jobs not yet completed, preserving order.
func Pending(all []*Job) []*Job {
	out := make([]*Job, 0, len(all))
	for _, job := range all {
		if !job.Completed() {
			out = append(out, job)
		}
	}
	return out
}

// AllCompleted reports whether every job has produced its artifact.
func AllCompleted(all []*Job) bool {
	for _, job := range all {
		if !job.Completed() {
			return false
		}
	}
	return true
}

// Summary counts jobs by completion.
type Summary struct {
	Total     int
	Completed int
	Pending   int
}

// Summarize counts completed and pending jobs.
func Summarize(all []*Job) Summary {
	s := Summary{Total: len(all)}
	for _, job := range all {
		if job.Completed() {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
