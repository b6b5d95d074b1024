package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one journaled attempt.
type Entry struct {
	ID          int64
	RunID       string
	AttemptID   string
	JobSource   string
	Project     string
	Proxy       string
	Outcome     string
	FinalState  string
	RetriesUsed int
	// Applied is false when the dispatcher discarded the outcome because the
	// job had already been settled by another attempt.
	Applied    bool
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Record appends an attempt.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO attempts (
			run_id, attempt_id, job_source, project, proxy, outcome, final_state,
			retries_used, applied, detail, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, e.AttemptID, e.JobSource, e.Project, e.Proxy, e.Outcome, e.FinalState,
			e.RetriesUsed, boolToInt(e.Applied), nullString(e.Detail),
			e.StartedAt.UTC().Format(time.RFC3339Nano), e.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	})
}

// Recent returns the newest attempts first. A non-empty runID restricts the
// result to one run.
func (s *Store) Recent(ctx context.Context, runID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, run_id, attempt_id, job_source, project, proxy, outcome, final_state,
		retries_used, applied, detail, started_at, finished_at FROM attempts`
	args := []any{}
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			applied  int
			detail   sql.NullString
			started  string
			finished string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.AttemptID, &e.JobSource, &e.Project, &e.Proxy,
			&e.Outcome, &e.FinalState, &e.RetriesUsed, &applied, &detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		e.Applied = applied != 0
		e.Detail = detail.String
		e.StartedAt = parseTime(started)
		e.FinishedAt = parseTime(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ProxyStat aggregates outcomes for one proxy.
type ProxyStat struct {
	Proxy     string
	Attempts  int
	Successes int
	Failures  int
	LastSeen  time.Time
}

// ProxyStats summarizes journaled outcomes per proxy, busiest first.
func (s *Store) ProxyStats(ctx context.Context, limit int) ([]ProxyStat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT proxy,
			COUNT(1),
			SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome IN ('connection_error', 'generic_error') THEN 1 ELSE 0 END),
			MAX(finished_at)
		FROM attempts
		GROUP BY proxy
		ORDER BY COUNT(1) DESC, proxy ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query proxy stats: %w", err)
	}
	defer rows.Close()

	var out []ProxyStat
	for rows.Next() {
		var (
			stat ProxyStat
			last string
		)
		if err := rows.Scan(&stat.Proxy, &stat.Attempts, &stat.Successes, &stat.Failures, &last); err != nil {
			return nil, fmt.Errorf("scan proxy stats: %w", err)
		}
		stat.LastSeen = parseTime(last)
		out = append(out, stat)
	}
	return out, rows.Err()
}

// LastRunID returns the run that journaled most recently, or "" when empty.
func (s *Store) LastRunID(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, "SELECT run_id FROM attempts ORDER BY id DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last run: %w", err)
	}
	return runID, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
