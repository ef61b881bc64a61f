package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/table"
)

// ErrHostNotAllowed is returned when an API URL names a host outside the
// configured allowlist.
var ErrHostNotAllowed = errors.New("api host not allowed")

// APIRequest describes a GET against a JSON endpoint. Params are merged into
// the URL's query string.
type APIRequest struct {
	URL     string
	Headers map[string]string
	Params  map[string]string
}

// APIStatusError reports a non-2xx response.
type APIStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("api returned status %s", e.Status)
}

// API extracts tables from HTTP endpoints that return JSON.
type API struct {
	client   *http.Client
	maxBytes int64
	allowed  map[string]struct{}
}

// NewAPI builds an API source from cfg. A nil client gets one with
// cfg.APITimeout.
func NewAPI(cfg config.ExtractConfig, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: cfg.APITimeout}
	}
	a := &API{client: client, maxBytes: cfg.APIMaxBytes}
	if len(cfg.AllowedHosts) > 0 {
		a.allowed = make(map[string]struct{}, len(cfg.AllowedHosts))
		for _, h := range cfg.AllowedHosts {
			a.allowed[strings.ToLower(h)] = struct{}{}
		}
	}
	return a
}

// Fetch issues the request and parses the body with table.ReadJSON.
func (a *API) Fetch(ctx context.Context, req APIRequest) (*table.Table, error) {
	target, err := a.resolve(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building api request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	slog.Debug("api response",
		"host", target.Host,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIStatusError{URL: target.Redacted(), StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body := io.Reader(resp.Body)
	if a.maxBytes > 0 {
		body = &cappedReader{r: io.LimitReader(resp.Body, a.maxBytes+1), max: a.maxBytes}
	}
	t, err := table.ReadJSON(body)
	if err != nil {
		if errors.Is(err, table.ErrEmptyJSON) {
			return nil, fmt.Errorf("api returned empty data: %w", err)
		}
		return nil, err
	}
	return t, nil
}

// resolve validates the URL and merges the query parameters.
func (a *API) resolve(req APIRequest) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid request: url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid request: url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("invalid request: url has no host")
	}
	if a.allowed != nil {
		if _, ok := a.allowed[strings.ToLower(u.Hostname())]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
		}
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// cappedReader fails once more than max bytes have been read.
type cappedReader struct {
	r   io.Reader
	n   int64
	max int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.max {
		return n, fmt.Errorf("api response exceeds %d bytes", c.max)
	}
	return n, err
}
