package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	attemptIDKey contextKey = "attempt_id"
	jobKey       contextKey = "job"
	proxyKey     contextKey = "proxy"
)

// WithRunID annotates context with the identifier of the current run.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

// WithAttemptID annotates context with the identifier of a single (job, proxy) attempt.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return withString(ctx, attemptIDKey, id)
}

// AttemptIDFromContext extracts the attempt identifier if present.
func AttemptIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, attemptIDKey)
}

// WithJob annotates context with the job's source path.
func WithJob(ctx context.Context, source string) context.Context {
	return withString(ctx, jobKey, source)
}

// JobFromContext returns the job's source path if present.
func JobFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, jobKey)
}

// WithProxy annotates context with the egress identifier (host:port or direct).
func WithProxy(ctx context.Context, id string) context.Context {
	return withString(ctx, proxyKey, id)
}

// ProxyFromContext returns the egress identifier if present.
func ProxyFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, proxyKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
