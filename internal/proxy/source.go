package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"transcripter/internal/logging"
	"transcripter/internal/services"
)

// Source fetches a fresh list of proxies.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Proxy, error)
}

// HTTPSource fetches a plain-text list with one ip:port per line.
type HTTPSource struct {
	url    string
	client *retryablehttp.Client
}

// NewHTTPSource builds a source for url. Transient HTTP failures are retried
// up to retries times with backoff.
func NewHTTPSource(url string, timeout time.Duration, retries int, logger *slog.Logger) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = timeout
	client.CheckRetry = checkRetry
	client.Logger = logging.NewComponentLogger(logger, "proxy-source")
	return &HTTPSource{url: url, client: client}
}

// checkRetry retries rate limits, gateway failures and transient network
// errors. Other non-200 statuses are returned to Fetch as-is.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && resp != nil && resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return services.IsRetriable(err), nil
}

// Name returns the source URL.
func (s *HTTPSource) Name() string {
	return s.url
}

// Fetch downloads and parses the list. Malformed lines are dropped.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Proxy, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "proxy", "build request", s.url, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "proxy", "fetch list", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "proxy", "fetch list", fmt.Sprintf("%s: unexpected status %d", s.url, resp.StatusCode), nil)
	}
	return ParseList(io.LimitReader(resp.Body, 8<<20))
}

// ParseList reads ip:port lines separated by LF or CRLF, dropping invalid
// entries and duplicates.
func ParseList(r io.Reader) ([]Proxy, error) {
	scanner := bufio.NewScanner(r)
	var proxies []Proxy
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxy, err := Parse(line)
		if err != nil {
			continue
		}
		proxies = append(proxies, proxy)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}
	return dedupe(proxies), nil
}

// MultiSource tries each source in order and returns the first non-empty list.
type MultiSource []Source

// Name joins the member names.
func (m MultiSource) Name() string {
	names := make([]string, 0, len(m))
	for _, s := range m {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

// Fetch returns the first non-empty result, or the joined errors of every
// failed source.
func (m MultiSource) Fetch(ctx context.Context) ([]Proxy, error) {
	var errs []error
	for _, source := range m {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proxies, err := source.Fetch(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(proxies) > 0 {
			return proxies, nil
		}
	}
	return nil, errors.Join(errs...)
}
