package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasker/internal/apierr"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// RequestIDHeader carries a per-attempt identifier for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://tracker.example.com/api".
	BaseURL string

	// Timeout bounds a single round trip. Zero means the transport default.
	Timeout time.Duration

	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client performs single round trips. It knows nothing about sessions.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Do sends req once. token, when non-nil and the request is not anonymous,
// is attached as the Authorization header. Non-2xx responses and transport
// failures are returned as *apierr.Error.
func (c *Client) Do(ctx context.Context, req *Request, token *oauth2.Token) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)
	if token != nil && token.AccessToken != "" && !req.Anonymous {
		token.SetAuthHeader(httpReq)
	}

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Debug("request failed", "op", req.Op(), "request_id", requestID, "error", err)
		return nil, apierr.Transient(req.Op(), err)
	}
	defer res.Body.Close()

	c.logger.Debug("request",
		"op", req.Op(),
		"status", res.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if err := googleapi.CheckResponse(res); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, apierr.FromResponse(req.Op(), gerr)
		}
		return nil, apierr.Transient(req.Op(), err)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, apierr.Transient(req.Op(), fmt.Errorf("failed to read response body: %w", err))
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}
