package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/logging"
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Client fetches listing and detail pages for one site.
type Client struct {
	cfg     config.Source
	http    *resty.Client
	limiter *rate.Limiter
	base    *url.URL
	logger  *slog.Logger
}

var (
	_ crawl.ListSource    = (*Client)(nil)
	_ crawl.DetailFetcher = (*Client)(nil)
)

// NewClient builds a client from the [source] config section.
func NewClient(cfg config.Source, logger *slog.Logger) (*Client, error) {
	if !strings.Contains(cfg.ListURL, "{page}") {
		return nil, fmt.Errorf("source: list url %q lacks {page}", cfg.ListURL)
	}
	baseRaw := cfg.BaseURL
	if baseRaw == "" {
		baseRaw = strings.ReplaceAll(cfg.ListURL, "{page}", "1")
	}
	base, err := url.Parse(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		base:    base,
		logger:  logging.NewComponentLogger(logger, "source"),
	}, nil
}

// Ping checks that the site answers with a non-error status.
func (c *Client) Ping(ctx context.Context) error {
	target := c.base.String()
	if c.cfg.BaseURL == "" {
		target = c.pageURL(1)
	}
	_, err := c.get(ctx, target)
	return err
}

func (c *Client) pageURL(page int) string {
	return strings.ReplaceAll(c.cfg.ListURL, "{page}", fmt.Sprint(page))
}

// get waits for a request slot and returns the body of a successful response.
// For error statuses the body is still returned alongside a *StatusError.
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("http get",
		logging.String("url", target),
		logging.Int("status", res.StatusCode()),
		logging.Duration("elapsed", time.Since(start)),
	)
	if res.IsError() {
		return res.Body(), &StatusError{URL: target, Status: res.StatusCode()}
	}
	return res.Body(), nil
}

// resolve turns an href into an absolute URL. Script and fragment-only links
// yield an empty string.
func (c *Client) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return c.base.ResolveReference(ref).String()
}

func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}
