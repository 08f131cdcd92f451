package playsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/playsearch/internal/version"
)

const (
	defaultTimeout   = 60 * time.Second
	maxErrorBodySize = 64 << 10
)

// Client talks to a playsearch API server.
type Client struct {
	baseURL   *url.URL
	hc        *http.Client
	userAgent string
	timeout   time.Duration
	obs       *observer

	mu    sync.RWMutex
	token string
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		httpClient: &http.Client{},
		userAgent:  "playsearch-go/" + version.Version,
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("playsearch: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("playsearch: base url must be http or https, got %q", baseURL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, fmt.Errorf("init observer: %w", err)
	}

	return &Client{
		baseURL:   u,
		hc:        cfg.httpClient,
		userAgent: cfg.userAgent,
		timeout:   cfg.timeout,
		obs:       obs,
		token:     cfg.token,
	}, nil
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (tok Token, err error) {
	defer func(start time.Time) { c.obs.observe("login", start, err) }(time.Now())

	err = c.doJSON(ctx, http.MethodPost, "/auth/token", nil,
		loginRequest{Username: username, Password: password}, &tok)
	if err != nil {
		return Token{}, err
	}
	c.SetToken(tok.AccessToken)
	return tok, nil
}

// Me returns the authenticated user's context.
func (c *Client) Me(ctx context.Context) (u User, err error) {
	defer func(start time.Time) { c.obs.observe("me", start, err) }(time.Now())

	err = c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
	return u, err
}

// Search runs a blocking search.
func (c *Client) Search(ctx context.Context, query string, m Mode) (resp SearchResponse, err error) {
	defer func(start time.Time) { c.obs.observe("search", start, err) }(time.Now())

	err = c.doJSON(ctx, http.MethodPost, "/search", nil, searchRequest{Query: query, Mode: m}, &resp)
	return resp, err
}

// Recommendations returns up to limit next-step suggestions.
// limit <= 0 uses the server default.
func (c *Client) Recommendations(ctx context.Context, limit int) (recs []Recommendation, err error) {
	defer func(start time.Time) { c.obs.observe("recommendations", start, err) }(time.Now())

	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var body recommendationsResponse
	if err = c.doJSON(ctx, http.MethodGet, "/recommendations", q, nil, &body); err != nil {
		return nil, err
	}
	return body.Recommendations, nil
}

// Health fetches the server health report. A 503 response still decodes
// into Health; the error is nil as long as the body is a report.
func (c *Client) Health(ctx context.Context) (h Health, err error) {
	defer func(start time.Time) { c.obs.observe("health", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("playsearch: health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return Health{}, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("playsearch: decode health: %w", err)
	}
	return h, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("playsearch: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("playsearch: decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("playsearch: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("playsearch: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrRetrievalProvider) ||
		errors.Is(err, ErrGenerationProvider)
}
