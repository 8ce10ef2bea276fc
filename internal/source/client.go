package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/model"
)

// ErrUnavailable means the external source kept failing transiently until
// the retry budget was exhausted.
var ErrUnavailable = errors.New("source unavailable")

// StatusError reports a non-transient HTTP response (4xx other than 429).
// It is never retried.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("source returned status %d", e.Code)
}

// FetchStats summarizes one full fetch for the bronze log event.
type FetchStats struct {
	Pages   int
	Records int
}

// Client fetches brewery records page by page from the external API.
type Client struct {
	cfg  config.SourceConfig
	http *http.Client
	log  zerolog.Logger
}

// NewClient builds a client with a tuned transport.
func NewClient(cfg config.SourceConfig, log zerolog.Logger) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout, Transport: tr},
		log:  log,
	}
}

// FetchAll pulls pages until an empty page, the page cap or the record cap.
// Transient failures are retried with exponential backoff; exhausting the
// attempts yields ErrUnavailable. Non-transient responses fail fast.
func (c *Client) FetchAll(ctx context.Context) ([]model.GenericRecord, FetchStats, error) {
	base, err := c.resolveEndpoint(ctx)
	if err != nil {
		return nil, FetchStats{}, err
	}

	var records []model.GenericRecord
	stats := FetchStats{}

	for page := 1; page <= c.cfg.MaxPages; page++ {
		var items []model.GenericRecord
		err := c.retry(ctx, func() error {
			var ferr error
			items, ferr = c.fetchPage(ctx, base, page)
			return ferr
		})
		if err != nil {
			return nil, stats, err
		}
		if len(items) == 0 {
			break
		}
		stats.Pages++
		records = append(records, items...)
		c.log.Debug().Int("page", page).Int("records", len(items)).Msg("fetched page")

		if c.cfg.MaxRecords > 0 && len(records) >= c.cfg.MaxRecords {
			records = records[:c.cfg.MaxRecords]
			break
		}
	}

	stats.Records = len(records)
	return records, stats, nil
}

// resolveEndpoint probes the candidate base URLs in order and picks the
// first one that answers. A candidate answering 404 is skipped, any other
// answer means the endpoint exists.
func (c *Client) resolveEndpoint(ctx context.Context) (string, error) {
	var lastErr error
	for _, candidate := range c.cfg.BaseURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(candidate, 1, 1), nil)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			lastErr = &StatusError{Code: resp.StatusCode}
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no reachable endpoint (last error: %v): %w", lastErr, ErrUnavailable)
}

func (c *Client) fetchPage(ctx context.Context, base string, page int) ([]model.GenericRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(base, page, c.cfg.PerPage), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var items []model.GenericRecord
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	return items, nil
}

// retry runs fn with bounded exponential backoff. Only transient errors are
// retried; a StatusError outside the retryable set aborts immediately.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	delay := c.cfg.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if delay < c.cfg.RetryMaxDelay {
				delay *= 2
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("transient fetch failure")
	}
	return fmt.Errorf("retries exhausted (last error: %v): %w", lastErr, ErrUnavailable)
}

func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// network and decode failures may clear up on the next attempt
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func pageURL(base string, page, perPage int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return base + "?" + q.Encode()
}
