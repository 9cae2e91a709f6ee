// Package sandbox is a client for webtask clusters.
//
// A Sandbox holds the cluster URL, a container and the token that authorizes
// it. It issues webtask tokens (Create), invokes code (Run), schedules cron
// jobs (CreateCronJob) and is the factory for the Task and CronJob entities.
//
// Every network operation has two entry points: a blocking method taking a
// context.Context, and an ...Async variant returning an *async.Future that can
// be awaited, chained or given a node-style callback with Nodeify.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mehreencs87/sandboxjs/services"
)

// Option is a function that configures a Sandbox
type Option func(*Sandbox)

// Sandbox is a session with a webtask cluster.
// After creation, the sandbox is immutable and safe for concurrent use
type Sandbox struct {
	url       string
	token     string
	container string

	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger

	// Custom headers to include in all requests
	headers map[string]string

	// Service groups
	Tokens   *services.TokenService
	Webtasks *services.WebtaskService
	Cron     *services.CronService
	Logs     *services.LogService
}

// New creates a Sandbox for container on the cluster at url, authorized by
// token.
func New(url, token, container string, opts ...Option) (*Sandbox, error) {
	switch {
	case url == "":
		return nil, &ValidationError{Field: "url", Message: "is required"}
	case token == "":
		return nil, &ValidationError{Field: "token", Message: "is required"}
	case container == "":
		return nil, &ValidationError{Field: "container", Message: "is required"}
	}

	s := &Sandbox{
		url:       strings.TrimRight(url, "/"),
		token:     token,
		container: container,
		headers:   make(map[string]string),
		timeout:   30 * time.Second,
		logger:    zap.NewNop(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	// Initialize services
	s.Tokens = services.NewTokenService(s)
	s.Webtasks = services.NewWebtaskService(s)
	s.Cron = services.NewCronService(s)
	s.Logs = services.NewLogService(s)

	return s, nil
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *Sandbox) {
		s.timeout = timeout
		s.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client. Retries, if wanted, belong in its
// transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Sandbox) {
		s.httpClient = httpClient
	}
}

// WithHeader adds a custom header that will be included in all requests
func WithHeader(key, value string) Option {
	return func(s *Sandbox) {
		s.headers[key] = value
	}
}

// WithHeaders adds multiple custom headers that will be included in all requests
func WithHeaders(headers map[string]string) Option {
	return func(s *Sandbox) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sandbox) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// URL returns the cluster base URL
func (s *Sandbox) URL() string {
	return s.url
}

// Container returns the container this sandbox operates in
func (s *Sandbox) Container() string {
	return s.container
}

// Token returns the sandbox token
func (s *Sandbox) Token() string {
	return s.token
}

// GetBaseURL returns the cluster base URL
func (s *Sandbox) GetBaseURL() string {
	return s.url
}

// NewRequest creates a new HTTP request with auth headers and custom headers
func (s *Sandbox) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := fmt.Sprintf("%s%s", s.url, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set auth header
	req.Header.Set("Authorization", "Bearer "+s.token)

	// Set default headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	// Set custom headers
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// Do executes an HTTP request once. Transport failures and non-2xx responses
// are returned as *RemoteError; on success the caller owns the body.
func (s *Sandbox) Do(req *http.Request) (*http.Response, error) {
	return s.do(s.httpClient, req)
}

// DoStream is Do for long-lived responses such as the log stream. The client
// timeout does not apply; the request's context bounds the stream.
func (s *Sandbox) DoStream(req *http.Request) (*http.Response, error) {
	streamClient := *s.httpClient
	streamClient.Timeout = 0
	return s.do(&streamClient, req)
}

func (s *Sandbox) do(client *http.Client, req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get("X-Request-ID")
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, &RemoteError{Message: "request failed", RequestID: requestID, Err: err}
	}

	s.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		remoteErr := newRemoteError(resp, requestID)
		s.logger.Warn("webtask api error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
			zap.String("message", remoteErr.Message),
		)
		return nil, remoteErr
	}

	return resp, nil
}

func newRemoteError(resp *http.Response, requestID string) *RemoteError {
	bodyBytes, _ := io.ReadAll(resp.Body)

	remoteErr := &RemoteError{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Message:    strings.TrimSpace(string(bodyBytes)),
	}
	if id := resp.Header.Get("X-Request-ID"); id != "" {
		remoteErr.RequestID = id
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		remoteErr.RetryAfter, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
	}

	// Try to parse as JSON error response
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(bodyBytes, &errResp); err == nil {
		// Use structured error message if available
		switch {
		case errResp.Message != "":
			remoteErr.Message = errResp.Message
		case errResp.Error != "":
			remoteErr.Message = errResp.Error
		case errResp.Detail != "":
			remoteErr.Message = errResp.Detail
		}
	}

	if remoteErr.Message == "" {
		remoteErr.Message = http.StatusText(resp.StatusCode)
	}
	return remoteErr
}
