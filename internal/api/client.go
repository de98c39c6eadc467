// Package api is the authenticated request layer. All synchronous calls the
// stores make go through Client, which owns the cookie session and renews
// expired access credentials with a single refresh-then-retry cycle.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	tokenPath   = "/api/v1/auth/token"
	refreshPath = "/api/v1/auth/token/refresh"
	logoutPath  = "/api/v1/auth/logout"

	// Grace period between a successful refresh and the retry, so rotated
	// cookies are settled before the original request is re-issued.
	defaultRefreshGrace = 50 * time.Millisecond
)

// Client issues REST calls against the chat backend with cookie-based
// credentials. One Client serves one session: once the session expires it
// escalates (best-effort logout, navigation to the entry screen) exactly
// once and every subsequent call keeps failing.
type Client struct {
	base     string
	http     *http.Client
	grace    time.Duration
	navigate func()

	expireOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithRefreshGrace overrides the pause between refresh and retry.
func WithRefreshGrace(d time.Duration) Option {
	return func(c *Client) { c.grace = d }
}

// WithHTTPClient swaps the underlying transport. The given client must
// carry a cookie jar.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a Client for the given base URL. navigate is invoked once,
// after logout, when the session terminally fails; it is the "go back to
// the entry screen" side effect and may be nil.
func New(baseURL string, navigate func(), opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	c := &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
		grace:    defaultRefreshGrace,
		navigate: navigate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Jar exposes the session cookies so the websocket dialer can present the
// same credentials.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

// Do issues one authenticated request. A 403 (outside the refresh endpoint
// itself) triggers exactly one refresh call; if the refresh reports 201 the
// original request is re-issued once and that response is returned as-is.
// A failed refresh yields ErrSessionExpired, a 401 yields ErrUnauthorized;
// both escalate through the session-failure path before returning. Every
// other status is handed back to the caller untouched.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.protected(ctx, method, path, payload, contentType)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthorized) {
			c.expire()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) protected(ctx context.Context, method, path string, payload []byte, contentType string) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, payload, contentType)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusForbidden && path != refreshPath {
		drain(resp)

		refreshResp, err := c.send(ctx, http.MethodPost, refreshPath, nil, "")
		if err != nil {
			return nil, fmt.Errorf("%w: refresh failed: %v", ErrSessionExpired, err)
		}
		status := refreshResp.StatusCode
		drain(refreshResp)
		if status != http.StatusCreated {
			return nil, fmt.Errorf("%w: refresh returned status %d", ErrSessionExpired, status)
		}

		select {
		case <-time.After(c.grace):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Single retry with the original request; no recursion into the
		// refresh logic, whatever comes back is the final answer.
		return c.send(ctx, method, path, payload, contentType)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, ErrUnauthorized
	}

	return resp, nil
}

// expire runs the caller-facing session-failure path: best-effort logout,
// then navigation to the entry screen. Concurrent failing requests share
// one escalation.
func (c *Client) expire() {
	c.expireOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if resp, err := c.send(ctx, http.MethodPost, logoutPath, nil, ""); err == nil {
			drain(resp)
		}
		log.Printf("[api] session expired, returning to entry screen")
		if c.navigate != nil {
			c.navigate()
		}
	})
}

// send performs a single HTTP round trip with the session cookies.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func encodeBody(body any) (payload []byte, contentType string, err error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
