// Package fetcher retrieves source pages over HTTP with retry and backoff.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/retry"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// backoffMultiplier doubles the delay on every retry.
const backoffMultiplier = 2.0

// Page is a successfully fetched document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Observer receives fetch attempt results ("ok", "retry", "error").
type Observer interface {
	ObserveFetch(result string)
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client. The redirect policy and timeout
// from Config are not applied to a supplied client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.retryCfg.Sleep = sleep }
}

// WithObserver registers an attempt observer.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// Fetcher issues GET requests with bounded timeout and exponential backoff.
// It holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	retryCfg  retry.Config
	limiter   *rate.Limiter
	observer  Observer
	log       logger.Interface
}

// New creates a Fetcher from config.
func New(cfg Config, log logger.Interface, opts ...Option) *Fetcher {
	cfg = cfg.WithDefaults()

	f := &Fetcher{
		client: &http.Client{
			Timeout:       cfg.RequestTimeout,
			CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
		},
		userAgent: cfg.UserAgent,
		retryCfg: retry.Config{
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: cfg.BackoffBase,
			MaxDelay:     cfg.MaxBackoff,
			Multiplier:   backoffMultiplier,
			IsRetryable:  IsRetryable,
		},
		log: log,
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	for _, opt := range opts {
		opt(f)
	}

	f.retryCfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		f.observe("retry")
		f.log.Debug("Retrying fetch",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	return f
}

// Fetch retrieves url, retrying transient failures. It returns the body and
// the post-redirect URL, or an error once retries are exhausted or the failure
// is permanent.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var page *Page
	err := retry.Retry(ctx, f.retryCfg, func(ctx context.Context) error {
		p, fetchErr := f.fetchOnce(ctx, url)
		if fetchErr != nil {
			return fetchErr
		}
		page = p
		return nil
	})
	if err != nil {
		f.observe("error")
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	f.observe("ok")
	return page, nil
}

// fetchOnce performs a single HTTP GET.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func (f *Fetcher) observe(result string) {
	if f.observer != nil {
		f.observer.ObserveFetch(result)
	}
}
