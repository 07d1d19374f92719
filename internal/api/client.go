// Package api is a typed client for the booking REST API. Every
// authoritative read and write of the console goes through it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "agendaconsole/internal/log"
)

// Auth carries the upstream credentials captured at login. The zero value
// makes anonymous calls (public endpoints).
type Auth struct {
	Token   string
	Cookies []*http.Cookie
}

type Client struct {
	base string
	http *http.Client
	auth Auth
}

// New builds a client for baseURL. A trailing slash is dropped and "/api/"
// is appended, so both "https://host" and "https://host/" work.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: SanitizeBase(baseURL),
		http: &http.Client{Timeout: timeout},
	}
}

// SanitizeBase returns the API root for a configured base URL.
func SanitizeBase(baseURL string) string {
	return strings.TrimSuffix(strings.TrimSpace(baseURL), "/") + "/api/"
}

// WithAuth returns a shallow copy that sends the given credentials.
func (c *Client) WithAuth(a Auth) *Client {
	cp := *c
	cp.auth = a
	return &cp
}

// BaseURL is the API root, ending in "/api/".
func (c *Client) BaseURL() string { return c.base }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs one request and returns the raw body of a 2xx response.
// Non-2xx statuses become *Error. There are no retries.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, in any) ([]byte, http.Header, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	}
	for _, ck := range c.auth.Cookies {
		req.AddCookie(ck)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appLog.Error("api request failed", err, "method", method, "url", redactURL(target))
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	appLog.Debug("api request", "method", method, "url", redactURL(target),
		"status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, data)
		if resp.StatusCode >= 500 {
			appLog.Warn("api upstream error", "method", method, "url", redactURL(target), "status", resp.StatusCode)
		}
		return nil, resp.Header, apiErr
	}
	return data, resp.Header, nil
}

// call sends a request and decodes the unwrapped payload into out (if any).
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	data, _, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeItem(data, out)
}

// list sends a GET and decodes a list payload. A payload that is not an
// array yields an empty slice.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	data, _, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](data)
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.call(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// redactURL hides the query string and any userinfo of a request URL for
// logging. Paths carry only resource ids, so they are kept.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "api://...(redacted)"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	u.Fragment = ""
	return u.String()
}
