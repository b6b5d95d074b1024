package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transcripter/internal/dispatch"
	"transcripter/internal/jobs"
	"transcripter/internal/journal"
	"transcripter/internal/logging"
	"transcripter/internal/services"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another transcripter run is in progress")

// Report summarizes a finished run.
type Report struct {
	RunID       string
	Rounds      int
	Total       int
	Completed   int
	Pending     int
	ProxiesLeft int
	Dispatch    dispatch.Stats
	Elapsed     time.Duration
}

// Done reports whether every discovered job has a transcript.
func (r Report) Done() bool {
	return r.Pending == 0
}

// Run executes rounds until every job is complete or no further progress is
// possible. Only configuration, lock and context failures are returned; a
// run that leaves jobs pending is reported through Report.
func (m *Manager) Run(ctx context.Context) (report Report, err error) {
	report.RunID = uuid.NewString()
	started := time.Now()
	defer func() { report.Elapsed = time.Since(started) }()

	if err := m.cfg.EnsureDirectories(); err != nil {
		return report, services.Wrap(services.ErrConfiguration, "workflow", "prepare directories", "", err)
	}
	locked, err := m.lock.TryLock()
	if err != nil {
		return report, services.Wrap(services.ErrConfiguration, "workflow", "acquire lock", m.lock.Path(), err)
	}
	if !locked {
		return report, fmt.Errorf("%w: lock %s is held", ErrRunInProgress, m.lock.Path())
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, m.logger)

	var recorder dispatch.Recorder
	if m.cfg.Journal.Enabled {
		store, err := journal.Open(m.cfg.Journal.Path)
		if err != nil {
			logging.WarnWithContext(logger, "journal unavailable", "journal_open_failed",
				logging.String("path", m.cfg.Journal.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "attempt history is not recorded for this run"),
			)
		} else {
			defer store.Close()
			recorder = store
		}
	}

	dispatcher := dispatch.New(m.newMachine(), dispatch.Options{
		MaxWorkers:   m.cfg.Dispatch.MaxWorkers,
		FailureLimit: m.cfg.Proxy.GenericFailureLimit,
		PassDelay:    services.Seconds(m.cfg.Dispatch.PassDelaySeconds),
		RunID:        report.RunID,
		Recorder:     recorder,
		Logger:       m.base,
	})

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("input_dir", m.cfg.Paths.InputDir),
		logging.String("output_dir", m.cfg.Paths.OutputDir),
		logging.Int("max_workers", m.cfg.Dispatch.MaxWorkers),
	)

	for {
		all, err := jobs.Discover(m.cfg.Paths.InputDir, m.cfg.Paths.OutputDir, m.base)
		if err != nil {
			return report, err
		}
		m.summarize(&report, all)
		if report.Pending == 0 {
			break
		}
		if limit := m.cfg.Dispatch.MaxRounds; limit > 0 && report.Rounds >= limit {
			logger.Info("round limit reached",
				logging.String(logging.FieldEventType, "round_limit"),
				logging.Int("rounds", report.Rounds),
				logging.Int("pending", report.Pending),
			)
			break
		}

		pool, err := m.loader.Load(ctx)
		if err != nil {
			return report, err
		}
		if pool.Len() == 0 {
			logging.WarnWithContext(logger, "no proxies available", "proxy_pool_empty",
				logging.Int("pending", report.Pending),
				logging.String(logging.FieldImpact, "pending jobs stay unprocessed"),
				logging.String(logging.FieldErrorHint, "check proxy.sources or set proxy.bypass"),
			)
			break
		}

		report.Rounds++
		logger.Info("round started",
			logging.String(logging.FieldEventType, "round_started"),
			logging.Int("round", report.Rounds),
			logging.Int("pending", report.Pending),
			logging.Int("proxies", pool.Len()),
			logging.String("pool_origin", string(pool.Origin())),
		)
		done := dispatcher.RunToCompletion(ctx, all, pool)
		report.ProxiesLeft = pool.Len()
		m.summarize(&report, all)
		if ctx.Err() != nil {
			report.Dispatch = dispatcher.Stats()
			return report, ctx.Err()
		}
		if done {
			break
		}
		if err := services.SleepWithContext(ctx, services.Seconds(m.cfg.Dispatch.PassDelaySeconds)); err != nil {
			report.Dispatch = dispatcher.Stats()
			return report, err
		}
	}

	report.Dispatch = dispatcher.Stats()
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("rounds", report.Rounds),
		logging.Int("completed", report.Completed),
		logging.Int("pending", report.Pending),
		logging.Int("attempts", report.Dispatch.Attempts),
		logging.Int("evicted", report.Dispatch.Evicted),
	)
	return report, nil
}

func (m *Manager) summarize(report *Report, all []*jobs.Job) {
	summary := jobs.Summarize(all)
	report.Total = summary.Total
	report.Completed = summary.Completed
	report.Pending = summary.Pending
}
