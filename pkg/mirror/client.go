package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fulmenhq/isolinks/pkg/logger"
)

// maxListingBytes caps how much of a listing or checksum file is read.
const maxListingBytes = 32 << 20

// Client fetches mirror directory listings, checksum files and artifact
// metadata with a fixed header set.
type Client struct {
	fetcher HTTPFetcher
	opts    Options
	headers http.Header
}

// NewClient creates a Client with real HTTP for production use
func NewClient(opts Options) *Client {
	return NewClientWithFetcher(opts, NewRealHTTPFetcher(nil))
}

// NewClientWithFetcher creates a Client with injectable HTTP for testing
func NewClientWithFetcher(opts Options, fetcher HTTPFetcher) *Client {
	opts = opts.withDefaults()
	return &Client{fetcher: fetcher, opts: opts, headers: opts.Headers()}
}

// Options returns the effective client options.
func (c *Client) Options() Options {
	return c.opts
}

// MaxAttempts is the retry budget shared by listing fetches and path navigation.
func (c *Client) MaxAttempts() int {
	return c.opts.MaxAttempts
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := c.fetcher.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, &NetworkError{URL: rawURL, Wrapped: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// FetchListing fetches and parses a directory page. Transient failures
// (see IsRetryable) restart the request from rawURL until MaxAttempts tries
// have been made; redirect targets are never reused across attempts.
func (c *Client) FetchListing(ctx context.Context, rawURL string) (*Listing, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		listing, err := c.FetchListingOnce(ctx, rawURL)
		if err == nil {
			return listing, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		logger.Warn("Listing fetch failed; restarting from original URL",
			logger.String("url", rawURL),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", c.opts.MaxAttempts),
			logger.Err(err))
	}
	return nil, fmt.Errorf("%s: %w after %d attempts: %w", rawURL, ErrRetriesExhausted, c.opts.MaxAttempts, lastErr)
}

// FetchListingOnce performs a single listing GET without retrying.
func (c *Client) FetchListingOnce(ctx context.Context, rawURL string) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ListingTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	listing := &Listing{
		URL:         rawURL,
		BaseURL:     rawURL,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		listing.BaseURL = resp.Request.URL.String()
	}
	if !strings.Contains(strings.ToLower(listing.ContentType), "html") {
		logger.Warn("Listing is not HTML; parsing anyway",
			logger.String("url", rawURL),
			logger.String("content_type", listing.ContentType))
	}

	base, err := url.Parse(listing.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %q: %w", listing.BaseURL, err)
	}
	anchors, err := ParseAnchors(base, io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, &NetworkError{URL: rawURL, Wrapped: err}
		}
		return nil, fmt.Errorf("failed to parse listing %s: %w", rawURL, err)
	}
	listing.Anchors = anchors

	logger.Debug("Fetched listing",
		logger.String("url", rawURL),
		logger.Int("anchors", len(anchors)))
	return listing, nil
}

// FetchText downloads a small text document such as a checksum manifest.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return "", &NetworkError{URL: rawURL, Wrapped: err}
	}
	return string(body), nil
}

// ProbeSize reports the artifact's byte length without downloading it: a HEAD
// request first, then a GET whose body is closed unread when HEAD carried no
// length. Failures are logged and reported as ok == false.
func (c *Client) ProbeSize(ctx context.Context, rawURL string) (int64, bool) {
	size, ok, err := c.probe(ctx, http.MethodHead, rawURL)
	if err != nil {
		logger.Warn("Size probe failed", logger.String("url", rawURL), logger.Err(err))
		return 0, false
	}
	if ok {
		return size, true
	}

	logger.Debug("No Content-Length on HEAD; retrying with streamed GET", logger.String("url", rawURL))
	size, ok, err = c.probe(ctx, http.MethodGet, rawURL)
	if err != nil {
		logger.Warn("Size probe failed", logger.String("url", rawURL), logger.Err(err))
		return 0, false
	}
	if !ok {
		logger.Debug("Artifact size unknown", logger.String("url", rawURL))
	}
	return size, ok
}

func (c *Client) probe(ctx context.Context, method, rawURL string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, method, rawURL)
	if err != nil {
		return 0, false, err
	}
	_ = resp.Body.Close()

	size, ok := contentLength(resp)
	return size, ok, nil
}

func contentLength(resp *http.Response) (int64, bool) {
	if v := strings.TrimSpace(resp.Header.Get("Content-Length")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n, true
		}
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength, true
	}
	return 0, false
}
