package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cmdouglas/adoreport/internal/config"
)

const apiVersionGraph = "7.1-preview.1"

// API families map to different Azure DevOps hosts.
const (
	familyCore  = "core"
	familyVssps = "vssps"
	familyVsaex = "vsaex"
)

// httpError carries the status code so callers can branch on 404.
type httpError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *httpError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// isNotFound reports whether err is an HTTP 404 from the API.
func isNotFound(err error) bool {
	he, ok := err.(*httpError)
	return ok && he.StatusCode == http.StatusNotFound
}

// Client is a rate-limited Azure DevOps REST client with retry and
// continuation-token pagination.
type Client struct {
	http    *http.Client
	creds   Credentials
	cfg     config.APIConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient builds a Client for one organization.
func NewClient(creds Credentials, cfg config.APIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RequestsPerS
	if rps <= 0 {
		rps = 10
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// orgURL returns the base URL for the organization under the given API
// family host.
func (c *Client) orgURL(family string) string {
	base := c.cfg.BaseURL
	switch family {
	case familyVssps:
		base = c.cfg.VsspsBaseURL
	case familyVsaex:
		base = c.cfg.VsaexBaseURL
	}
	return fmt.Sprintf("%s/%s", base, c.creds.Organization)
}

// getJSON performs a GET with rate limiting and retry, decoding the
// response body into dst. Responses of 429 and 5xx are retried up to the
// configured limit, honoring Retry-After when present.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, dst any) error {
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := time.Duration(c.cfg.RetryDelay) * time.Second
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doGet(ctx, rawURL, params, dst)
		if err == nil {
			return nil
		}
		lastErr = err

		he, ok := err.(*httpError)
		if !ok || !retryable(he.StatusCode) {
			return err
		}
		if he.StatusCode == http.StatusTooManyRequests && he.retryAfter > 0 {
			c.logger.Warn("rate limit hit", "retry_after", he.retryAfter)
			select {
			case <-time.After(he.retryAfter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		c.logger.Debug("retrying request", "url", rawURL, "attempt", attempt+1, "status", he.StatusCode)
	}
	return lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) doGet(ctx context.Context, rawURL string, params url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	full := rawURL
	if len(params) > 0 {
		full = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.creds.AuthHeader())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", "url", rawURL, "error", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("GET", "url", rawURL, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			body = []byte("(failed to read response body)")
		}
		he := &httpError{StatusCode: resp.StatusCode, Body: string(body)}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				he.retryAfter = time.Duration(secs) * time.Second
			}
		}
		return he
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// page is the list envelope the graph APIs return.
type page struct {
	Count             int               `json:"count"`
	Value             []json.RawMessage `json:"value"`
	ContinuationToken string            `json:"continuationToken"`
}

// paginate walks a continuation-token paginated endpoint, invoking fn for
// every raw item.
func (c *Client) paginate(ctx context.Context, rawURL string, params url.Values, fn func(json.RawMessage) error) error {
	if params == nil {
		params = url.Values{}
	}

	for {
		var p page
		if err := c.getJSON(ctx, rawURL, params, &p); err != nil {
			return err
		}

		for _, item := range p.Value {
			if err := fn(item); err != nil {
				return err
			}
		}

		if p.ContinuationToken == "" {
			return nil
		}
		params.Set("continuationToken", p.ContinuationToken)
	}
}

// ValidateToken checks the PAT by requesting the caller's own profile.
func (c *Client) ValidateToken(ctx context.Context) error {
	u := fmt.Sprintf("%s/_apis/profile/profiles/me", c.orgURL(familyVssps))
	params := url.Values{"api-version": {"6.0"}}

	err := c.getJSON(ctx, u, params, nil)
	if err == nil {
		return nil
	}
	if he, ok := err.(*httpError); ok && he.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("token validation failed: unauthorized")
	}
	return fmt.Errorf("token validation failed: %w", err)
}
