package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"transcripter/internal/jobs"
	"transcripter/internal/journal"
	"transcripter/internal/logging"
	"transcripter/internal/proxy"
	"transcripter/internal/services"
	"transcripter/internal/upload"
)

// Attempter runs one (job, proxy) attempt. *upload.Machine implements it.
type Attempter interface {
	Attempt(ctx context.Context, job *jobs.Job, via proxy.Proxy) upload.Result
}

// Recorder receives one entry per consumed attempt. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options configures a Dispatcher.
type Options struct {
	MaxWorkers   int
	FailureLimit int
	PassDelay    time.Duration
	RunID        string
	Recorder     Recorder
	Logger       *slog.Logger
}

// Stats counts what a dispatcher did across RunToCompletion calls.
type Stats struct {
	Passes    int
	Attempts  int
	Completed int
	Evicted   int
	Discarded int
}

// Dispatcher schedules attempts. RunToCompletion must not be called
// concurrently on the same Dispatcher.
type Dispatcher struct {
	attempter Attempter
	opts      Options
	failures  *FailureTracker
	logger    *slog.Logger
	stats     Stats
}

// New builds a dispatcher. The failure tracker lives as long as the
// dispatcher, so counts carry across rounds of the same run.
func New(attempter Attempter, opts Options) *Dispatcher {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	return &Dispatcher{
		attempter: attempter,
		opts:      opts,
		failures:  NewFailureTracker(opts.FailureLimit),
		logger:    logging.NewComponentLogger(opts.Logger, "dispatch"),
	}
}

// Stats returns the counters accumulated so far.
func (d *Dispatcher) Stats() Stats {
	return d.stats
}

// Failures exposes the consecutive failure counts.
func (d *Dispatcher) Failures() *FailureTracker {
	return d.failures
}

// RunToCompletion runs passes until every job is complete (true), or the pool
// is exhausted or ctx ends (false). Attempt failures never escape.
func (d *Dispatcher) RunToCompletion(ctx context.Context, all []*jobs.Job, pool *proxy.Pool) bool {
	logger := logging.WithContext(ctx, d.logger)
	for {
		if ctx.Err() != nil {
			return false
		}
		pending := jobs.Pending(all)
		if len(pending) == 0 {
			return true
		}
		if pool.Len() == 0 {
			logging.WarnWithContext(logger, "proxy pool exhausted", "pool_exhausted",
				logging.Int("pending", len(pending)),
				logging.String(logging.FieldImpact, "remaining jobs wait for the next round"),
				logging.String(logging.FieldErrorHint, "refresh proxies or enable proxy.bypass"),
			)
			return false
		}

		d.stats.Passes++
		logger.Info("dispatch pass started",
			logging.String(logging.FieldEventType, "pass_started"),
			logging.Int("pass", d.stats.Passes),
			logging.Int("pending", len(pending)),
			logging.Int("proxies", pool.Len()),
		)
		for _, job := range pending {
			if ctx.Err() != nil || pool.Len() == 0 {
				break
			}
			if job.Completed() || job.Busy() {
				continue
			}
			d.dispatchJob(ctx, job, pool)
		}

		if jobs.AllCompleted(all) {
			return true
		}
		if err := services.SleepWithContext(ctx, d.opts.PassDelay); err != nil {
			return false
		}
	}
}

type finished struct {
	via       proxy.Proxy
	attemptID string
	result    upload.Result
}

// dispatchJob fans one job out over a pool snapshot and returns once every
// attempt it started has reported.
func (d *Dispatcher) dispatchJob(ctx context.Context, job *jobs.Job, pool *proxy.Pool) {
	snapshot := pool.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	jobCtx := services.WithJob(ctx, job.SourcePath)

	results := make(chan finished, len(snapshot))
	go func() {
		var g errgroup.Group
		g.SetLimit(d.opts.MaxWorkers)
		for _, via := range snapshot {
			attemptID := uuid.NewString()
			attemptCtx := services.WithAttemptID(services.WithProxy(jobCtx, via.ID()), attemptID)
			g.Go(func() error {
				results <- finished{via: via, attemptID: attemptID, result: d.attempter.Attempt(attemptCtx, job, via)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	settled := false
	for r := range results {
		d.stats.Attempts++
		applied := !settled
		if applied {
			settled = d.apply(jobCtx, job, pool, r)
		} else {
			d.stats.Discarded++
			logging.WithContext(jobCtx, d.logger).Debug("late outcome discarded",
				logging.String(logging.FieldProxy, r.via.ID()),
				logging.String(logging.FieldOutcome, r.result.Outcome.String()),
			)
		}
		d.record(jobCtx, job, r, applied)
	}
}

// apply updates job and pool state for one outcome and reports whether the
// job is now settled.
func (d *Dispatcher) apply(ctx context.Context, job *jobs.Job, pool *proxy.Pool, r finished) bool {
	id := r.via.ID()
	logger := logging.WithContext(services.WithAttemptID(services.WithProxy(ctx, id), r.attemptID), d.logger)

	switch r.result.Outcome {
	case upload.Success:
		d.failures.Reset(id)
		d.stats.Completed++
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_completed"),
			logging.String(logging.FieldProject, job.ProjectName),
			logging.String("output", job.OutputPath),
			logging.Int("retries_used", r.result.RetriesUsed),
			logging.Duration("elapsed", r.result.Finished.Sub(r.result.Started).Round(time.Millisecond)),
		)
		return true
	case upload.ConnectionError:
		d.evict(logger, pool, id, "connection error", r.result.Err)
	case upload.GenericError:
		count, limitReached := d.failures.Fail(id)
		if limitReached {
			d.evict(logger, pool, id, "generic failure limit reached", r.result.Err)
		} else {
			logger.Info("attempt failed",
				logging.String(logging.FieldEventType, "attempt_failed"),
				logging.Int("consecutive_failures", count),
				logging.String(logging.FieldState, r.result.State.String()),
				logging.Error(r.result.Err),
			)
		}
	case upload.Aborted:
		logger.Info("attempt aborted by bot challenge",
			logging.String(logging.FieldEventType, "attempt_aborted"),
		)
	case upload.Superseded:
		// The attempt that completed the job reports separately.
		logger.Debug("attempt superseded")
	}
	return false
}

func (d *Dispatcher) evict(logger *slog.Logger, pool *proxy.Pool, id, reason string, cause error) {
	removed, err := pool.Evict(id)
	if err != nil {
		logging.WarnWithContext(logger, "proxy cache write failed after eviction", "proxy_cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the evicted proxy may reappear after a restart"),
		)
	}
	if !removed {
		return
	}
	d.failures.Reset(id)
	d.stats.Evicted++
	logging.WarnWithContext(logger, "proxy evicted", "proxy_evicted",
		logging.String("reason", reason),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, services.Hint(cause)),
		logging.String(logging.FieldImpact, "proxy is unused for the rest of the run"),
		logging.Int("remaining", pool.Len()),
	)
}

func (d *Dispatcher) record(ctx context.Context, job *jobs.Job, r finished, applied bool) {
	if d.opts.Recorder == nil {
		return
	}
	detail := ""
	if r.result.Err != nil {
		detail = r.result.Err.Error()
	}
	entry := journal.Entry{
		RunID:       d.opts.RunID,
		AttemptID:   r.attemptID,
		JobSource:   job.SourcePath,
		Project:     job.ProjectName,
		Proxy:       r.via.ID(),
		Outcome:     r.result.Outcome.String(),
		FinalState:  r.result.State.String(),
		RetriesUsed: r.result.RetriesUsed,
		Applied:     applied,
		Detail:      detail,
		StartedAt:   r.result.Started,
		FinishedAt:  r.result.Finished,
	}
	if err := d.opts.Recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt history is incomplete"),
		)
	}
}
