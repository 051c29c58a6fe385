// Package fetcher downloads report PDFs with bounded concurrency, per-item
// retry, and content-type validation.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rpe-analytics/quarterlies-cli/internal/resilience"
	"github.com/rpe-analytics/quarterlies-cli/internal/sanitize"
)

// Options configures the Downloader.
type Options struct {
	UserAgent string
	// Timeout is the absolute per-request timeout. Default: 60s.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per item. Default: 3.
	MaxAttempts int
	// Concurrency bounds simultaneous downloads. Zero means 16.
	Concurrency int
	// ExpectedContentType gates the response; a mismatch is a skip, not a
	// failure, and is never retried. Default: application/pdf.
	ExpectedContentType string
	// RateLimit caps outbound request rate. Zero means 20 rps.
	RateLimit rate.Limit
	// InitialBackoff overrides the first retry delay. Zero keeps the 2s
	// default from the download retry policy.
	InitialBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "quarterlies-cli/1.0"
	}
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.Concurrency == 0 {
		o.Concurrency = 16
	}
	if o.ExpectedContentType == "" {
		o.ExpectedContentType = "application/pdf"
	}
	if o.RateLimit == 0 {
		o.RateLimit = 20
	}
	return o
}

// ContentTypeError reports a response whose content type did not match the
// expected document type.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unexpected content type %q from %s", e.ContentType, e.URL)
}

// Downloader fetches report PDFs over a shared connection-pooled client.
type Downloader struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewDownloader creates a Downloader with the given options.
func NewDownloader(opts Options) *Downloader {
	opts = opts.withDefaults()
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Downloader{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, int(opts.RateLimit)),
	}
}

// PDFName returns the filename a report item is saved under.
func PDFName(details string) string {
	return sanitize.Filename(details) + ".pdf"
}

// fetch performs one attempt: request, status gate, content-type gate, write.
// Status errors come back transient so the retry loop picks them up; a
// content-type mismatch comes back permanent.
func (d *Downloader) fetch(ctx context.Context, rawURL, path string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return resilience.NewPermanentError(eris.Wrap(err, "fetcher: create request"))
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrapf(err, "fetcher: get %s", rawURL), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, d.opts.ExpectedContentType) {
		return resilience.NewPermanentError(&ContentTypeError{URL: rawURL, ContentType: contentType})
	}

	file, err := os.Create(path)
	if err != nil {
		return resilience.NewPermanentError(eris.Wrapf(err, "fetcher: create %s", path))
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(path) // no partial files behind a reported failure
		return resilience.NewTransientError(eris.Wrapf(err, "fetcher: write %s", path), 0)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return resilience.NewPermanentError(eris.Wrapf(err, "fetcher: close %s", path))
	}

	return nil
}

// download runs the retry loop for one item and settles its outcome.
func (d *Downloader) download(ctx context.Context, rawURL, path string) error {
	cfg := resilience.DownloadRetryConfig()
	cfg.MaxAttempts = d.opts.MaxAttempts
	if d.opts.InitialBackoff > 0 {
		cfg.InitialBackoff = d.opts.InitialBackoff
	}
	cfg.OnRetry = resilience.RetryLogger("download " + filepath.Base(path))

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return d.fetch(ctx, rawURL, path)
	})
}
