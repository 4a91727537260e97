// Package network holds the daemon's WiFi, clock and HTTP plumbing.
package network

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// ErrStatus is wrapped by errors for non-200 HTTP responses.
var ErrStatus = errors.New("unexpected http status")

// DefaultTimeout applies to every request made by Client.
const DefaultTimeout = 30 * time.Second

// UserInfo identifies the device owner to the update server.
type UserInfo struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Request is the envelope posted to the update server.
type Request struct {
	UserInfo  UserInfo `json:"user_info"`
	Timestamp uint64   `json:"timestamp"`
	Seq       uint64   `json:"seq"`
	Payload   any      `json:"payload"`
}

// Response is the envelope returned by the update server. Payload is
// decoded by the caller once Cmd is known.
type Response struct {
	Seq       uint64          `json:"seq"`
	Cmd       string          `json:"cmd"`
	Timestamp uint64          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Client talks to the device's update server.
type Client struct {
	base *url.URL
	http *http.Client
	user UserInfo
	seq  atomic.Uint64
	now  func() time.Time
}

// NewClient returns a client for the server at base, e.g.
// "https://updates.example.com:12675".
func NewClient(base string, user UserInfo, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server address %q: scheme and host required", base)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: u, http: httpClient, user: user, now: time.Now}, nil
}

// Resolve turns a server-relative path or absolute URL into a URL.
func (c *Client) Resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	return c.base.ResolveReference(r).String(), nil
}

// Post wraps payload in a Request envelope, posts it to path and decodes the
// Response envelope.
func (c *Client) Post(ctx context.Context, path string, payload any) (*Response, error) {
	target, err := c.Resolve(path)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(Request{
		UserInfo:  c.user,
		Timestamp: uint64(c.now().Unix()),
		Seq:       c.seq.Add(1),
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := ReadBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post %s: %w %d: %s", path, ErrStatus, resp.StatusCode, truncate(data, 200))
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &out, nil
}

// Open issues a GET for ref and returns the body for streaming. The caller
// closes it.
func (c *Client) Open(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", ref, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("get %s: %w %d", ref, ErrStatus, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// GetJSON fetches url and decodes the (possibly gzip-compressed) body into v.
func GetJSON(ctx context.Context, httpClient *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	data, err := ReadBody(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get: %w %d", ErrStatus, resp.StatusCode)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ReadBody reads r fully, inflating it when it starts with the gzip magic.
// Some servers compress without setting Content-Encoding, so the bytes are
// checked rather than the header.
func ReadBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return out, nil
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
