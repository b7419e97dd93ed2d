// Package metadata is a client for the music service that serves lyrics and
// records play counts.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the service has no lyrics for a path.
var ErrNotFound = errors.New("lyrics not found")

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "wavecast/1.0 (https://github.com/llehouerou/wavecast)"
	maxBodySize    = 1 << 20
)

// Service is the subset of the metadata API the session coordinator uses.
type Service interface {
	Lyrics(ctx context.Context, path string) (string, error)
	ReportPlay(ctx context.Context, id string) (int, error)
}

// APIError is the service's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (e *APIError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("metadata service: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("metadata service: %s: %s", e.Subject, e.Body)
}

// PlayCount is the response to a play report.
type PlayCount struct {
	ID    string `json:"id"`
	Plays int    `json:"plays"`
}

// Client talks to the metadata service over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lyrics fetches the raw lyrics text for a service-relative track path.
func (c *Client) Lyrics(ctx context.Context, path string) (string, error) {
	reqURL := c.baseURL + "/lyrics/" + escapePath(path)

	req, err := c.newRequest(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// ReportPlay records one play of track id and returns the server's count.
func (c *Client) ReportPlay(ctx context.Context, id string) (int, error) {
	payload, err := json.Marshal(struct {
		ID string `json:"id"`
	}{id})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.baseURL+"/updatePlayCount", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, decodeError(resp)
	}

	var result PlayCount
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return result.Plays, nil
}

func (c *Client) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// decodeError reads the error envelope. A body that is not an envelope is
// kept verbatim.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Subject == "" && apiErr.Body == "") {
		apiErr.Subject = ""
		apiErr.Body = strings.TrimSpace(string(raw))
		if apiErr.Body == "" {
			apiErr.Body = resp.Status
		}
	}
	return apiErr
}

func escapePath(p string) string {
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

var _ Service = (*Client)(nil)
