// Package chat talks to the chat service and keeps the state of one
// conversation: the transcript, the in-progress reply and the connection
// status.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/stream"
	"github.com/papercomputeco/parley/pkg/utils"
)

const (
	// DefaultTimeout bounds a whole request, including reading a streamed
	// reply. Replies can be slow.
	DefaultTimeout = 5 * time.Minute

	chatPath    = "/api/chat"
	clearPath   = "/api/clear"
	historyPath = "/api/history"
	healthPath  = "/api/health"
)

// Service is the chat service as seen by a Session.
type Service interface {
	// Send starts a turn and returns the streamed reply body.
	Send(ctx context.Context, message string) (io.ReadCloser, error)

	// Clear discards the server side history.
	Clear(ctx context.Context) error
}

// Client is an HTTP client for the chat service. It keeps cookies between
// calls so clear and history apply to the conversation it started.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the request timeout. Zero or negative values keep the
// default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.OrNop(l)
	}
}

// HistoryEntry is one message of the server side conversation history.
type HistoryEntry struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one part of a history message.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text joins the text blocks of the entry.
func (h HistoryEntry) Text() string {
	var parts []string
	for _, b := range h.Content {
		if b.Type == "text" || b.Type == "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Health is the chat service health report.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type historyResponse struct {
	History []HistoryEntry `json:"history"`
}

// NewClient returns a Client for the service at baseURL. See NormalizeURL
// for the accepted forms.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL: NormalizeURL(baseURL),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeURL adds an http scheme when none is given and strips trailing
// slashes.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u != "" && !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cookies returns the service session cookies the client holds.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(u)
}

// SetCookies resumes a service session from cookies saved by an earlier
// client.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil || len(cookies) == 0 {
		return
	}
	c.httpClient.Jar.SetCookies(u, cookies)
}

// Send posts message to the chat endpoint and returns the response body for
// streaming. Network errors and non-success statuses are returned as a
// *stream.FailedError. The caller must close the body.
func (c *Client) Send(ctx context.Context, message string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("sending chat request",
		"target", c.baseURL,
		"message_length", len(message),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &stream.FailedError{Err: fmt.Errorf("sending request: %w", err)}
	}

	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		failed := &stream.FailedError{Status: resp.StatusCode}
		if msg := errorMessage(resp.Body); msg != "" {
			failed.Err = errors.New(msg)
		}
		return nil, failed
	}

	return resp.Body, nil
}

// Clear asks the service to discard its conversation history.
func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, clearPath)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// History returns the service's record of the conversation.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, historyPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var hr historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}

	return hr.History, nil
}

// Health returns the service health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.do(ctx, http.MethodGet, healthPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	h := &Health{}
	if err := json.NewDecoder(resp.Body).Decode(h); err != nil {
		return nil, fmt.Errorf("decoding health: %w", err)
	}

	return h, nil
}

// do sends a bodiless request and checks the status. On success the caller
// owns the response body.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug("sending request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, errorMessage(resp.Body))
	}

	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// errorMessage extracts the "error" field of a JSON error body, falling
// back to the raw body.
func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	if msg := gjson.GetBytes(data, "error"); msg.Type == gjson.String {
		return msg.Str
	}
	return utils.Truncate(strings.TrimSpace(string(data)), 200)
}

// Ensure Client implements Service
var _ Service = (*Client)(nil)
