// Package client talks to the StoryForge HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/storyforge/backend/internal/middleware"
	"github.com/zhouzirui/storyforge/backend/internal/model/story"
)

const defaultTimeout = 90 * time.Second

var firstNumber = regexp.MustCompile(`\d+`)

// RateLimitedError is returned when the server asks the client to wait.
// WaitSeconds is zero when the server gave no usable hint.
type RateLimitedError struct {
	WaitSeconds int
}

func (e *RateLimitedError) Error() string {
	wait := "a few"
	if e.WaitSeconds > 0 {
		wait = strconv.Itoa(e.WaitSeconds)
	}
	return fmt.Sprintf("Rate limited. Please wait %s seconds before trying again.", wait)
}

// HTTPError is any other non-2xx answer.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client calls the generation API on behalf of one player session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessionID  string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithSessionID sets the id sent in the X-Session-ID header.
func WithSessionID(id string) Option {
	return func(cl *Client) { cl.sessionID = id }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		sessionID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the id identifying this client to the rate limiter.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Generate requests the next chapter.
func (c *Client) Generate(ctx context.Context, req story.GenerationRequest) (story.GenerationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return story.GenerationResponse{}, fmt.Errorf("encode request: %w", err)
	}

	var resp story.GenerationResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate-story", body, &resp); err != nil {
		return story.GenerationResponse{}, err
	}
	return resp, nil
}

// Catalog fetches the customization catalog.
func (c *Client) Catalog(ctx context.Context) (story.Catalog, error) {
	var catalog story.Catalog
	if err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &catalog); err != nil {
		return story.Catalog{}, err
	}
	return catalog, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(middleware.SessionHeader, c.sessionID)

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode == http.StatusTooManyRequests {
		return &RateLimitedError{WaitSeconds: waitHint(res, raw)}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &HTTPError{StatusCode: res.StatusCode, Body: raw}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// waitHint reads the wait from the body, then from the Retry-After header.
func waitHint(res *http.Response, raw []byte) int {
	var body struct {
		Message           string `json:"message"`
		RetryAfterSeconds int    `json:"retryAfterSeconds"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.RetryAfterSeconds > 0 {
			return body.RetryAfterSeconds
		}
		if n, err := strconv.Atoi(firstNumber.FindString(body.Message)); err == nil && n > 0 {
			return n
		}
	}
	if n, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && n > 0 {
		return n
	}
	return 0
}
