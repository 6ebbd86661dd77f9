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

	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the backend base path used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// maxDetail bounds how much of an error body is kept on *Error.
const maxDetail = 512

// Client is a thin binding of the skill-sharing backend. It is safe for
// concurrent use. Requests carry no retry policy and no timeout other than
// the caller's context and the configured http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     logrus.FieldLogger
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets a per-request timeout on the underlying http.Client.
// Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for the given base URL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that attaches token as a bearer credential
// on the endpoints that take one.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// call describes one backend request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   bool // attach the bearer token
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	err := c.send(ctx, cl, out)
	c.metrics.APICall(cl.op, err)
	if err != nil {
		fields := logrus.Fields{"op": cl.op, "method": cl.method, "path": cl.path}
		if apiErr, ok := err.(*Error); ok {
			c.logger.WithFields(fields).Warn(apiErr.LogString())
		} else {
			c.logger.WithFields(fields).WithError(err).Warn("request failed")
		}
	}
	return err
}

func (c *Client) send(ctx context.Context, cl call, out interface{}) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Op: cl.op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return &Error{Op: cl.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   cl.method,
		"path":     cl.path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("backend request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: cl.op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > maxDetail {
			detail = detail[:maxDetail]
		}
		mediaType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
		return &Error{
			Op:          cl.op,
			Status:      resp.StatusCode,
			Detail:      detail,
			ContentType: strings.ToLower(strings.TrimSpace(mediaType)),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok {
		// text endpoints may answer with a bare string or a JSON string
		if err := json.Unmarshal(data, s); err != nil {
			*s = strings.TrimSpace(string(data))
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func seg(s string) string { return url.PathEscape(s) }
