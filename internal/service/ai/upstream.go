// Package ai calls the upstream chat-completion model and decides when a
// synthetic story has to stand in for it.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/mock"
	"github.com/zhouzirui/storyforge/backend/internal/service/retry"
)

// Sources reported with every generated chapter.
const (
	SourceUpstream = "upstream"
	SourceMock     = "mock"
	SourceFallback = "fallback"
)

const (
	maxAttempts    = 3
	rateLimitStep  = 5 * time.Second
	transportDelay = 2 * time.Second
)

// UpstreamError is a non-2xx, non-429 answer from the provider. It is relayed
// to the client unchanged.
type UpstreamError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// rateLimitError marks an upstream 429.
type rateLimitError struct {
	body []byte
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limited: %s", bytes.TrimSpace(e.body))
}

// transportError marks a failure to obtain a usable answer at all.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("upstream transport failure: %v", e.err)
}

func (e *transportError) Unwrap() error {
	return e.err
}

// Result is a generated chapter and where it came from.
type Result struct {
	Response story.GenerationResponse
	Source   string
}

// Service generates story chapters through the upstream model.
type Service struct {
	cfg        config.LLMConfig
	logger     *zap.Logger
	httpClient *http.Client
	composer   *mock.Composer
	timer      backoff.Timer
}

// Option customizes a Service.
type Option func(*Service)

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithComposer replaces the mock composer.
func WithComposer(c *mock.Composer) Option {
	return func(s *Service) { s.composer = c }
}

// WithTimer replaces the timer that waits between upstream attempts.
func WithTimer(t backoff.Timer) Option {
	return func(s *Service) { s.timer = t }
}

// NewService creates a Service for cfg.
func NewService(cfg config.LLMConfig, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		cfg:        cfg,
		logger:     logger.Named("ai"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		composer:   mock.NewComposer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MockMode reports whether no usable API key is configured.
func (s *Service) MockMode() bool {
	return !s.cfg.Enabled()
}

// Generate produces the next chapter for req.
//
// Without a usable API key the mock composer answers directly. Otherwise the
// upstream is tried up to three times: a 429 waits 5s then 10s, a transport
// failure waits 2s, and exhausting the attempts falls back to the composer.
// Any other non-2xx status is returned as *UpstreamError without retrying.
func (s *Service) Generate(ctx context.Context, req story.GenerationRequest) (Result, error) {
	if s.MockMode() {
		generationsTotal.WithLabelValues(SourceMock).Inc()
		return Result{Response: s.composer.Generate(req), Source: SourceMock}, nil
	}

	var resp story.GenerationResponse
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retryDelay,
		Retryable: func(err error) bool {
			// 调用方已放弃请求时不再重试。
			if ctx.Err() != nil {
				return false
			}
			return isRetryable(err)
		},
		Timer: s.timer,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.logger.Warn("upstream attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("attempts_left", maxAttempts-attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		out, err := s.call(ctx, req.Prompt)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})

	var exhausted *retry.ExhaustedError
	switch {
	case err == nil:
		generationsTotal.WithLabelValues(SourceUpstream).Inc()
		return Result{Response: resp, Source: SourceUpstream}, nil
	case errors.As(err, &exhausted):
		s.logger.Error("all upstream attempts failed, falling back to mock story",
			zap.Int("attempts", exhausted.Attempts),
			zap.Error(exhausted.Err),
		)
		generationsTotal.WithLabelValues(SourceFallback).Inc()
		return Result{Response: s.composer.Generate(req), Source: SourceFallback}, nil
	default:
		return Result{}, err
	}
}

func (s *Service) call(ctx context.Context, prompt string) (story.GenerationResponse, error) {
	payload := openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: float32(s.cfg.Temperature),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return story.GenerationResponse{}, fmt.Errorf("encode upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProviderURL, bytes.NewReader(body))
	if err != nil {
		return story.GenerationResponse{}, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	start := time.Now()
	res, err := s.httpClient.Do(httpReq)
	upstreamAttemptDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeTransport).Inc()
		return story.GenerationResponse{}, &transportError{err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeTransport).Inc()
		return story.GenerationResponse{}, &transportError{err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeRateLimited).Inc()
		return story.GenerationResponse{}, &rateLimitError{body: raw}
	case res.StatusCode < 200 || res.StatusCode > 299:
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeStatusError).Inc()
		s.logger.Error("upstream returned error status",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", raw),
		)
		return story.GenerationResponse{}, &UpstreamError{
			StatusCode:  res.StatusCode,
			Body:        raw,
			ContentType: res.Header.Get("Content-Type"),
		}
	}

	var completion openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeTransport).Inc()
		return story.GenerationResponse{}, &transportError{err: fmt.Errorf("decode body: %w", err)}
	}

	out, err := Normalize(completion)
	if err != nil {
		upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeMalformed).Inc()
		return story.GenerationResponse{}, err
	}

	upstreamAttemptsTotal.WithLabelValues(s.cfg.Model, outcomeOK).Inc()
	recordUsage(s.cfg.Model, completion.Usage)
	s.logger.Debug("upstream generation succeeded",
		zap.Int("prompt_tokens", completion.Usage.PromptTokens),
		zap.Int("completion_tokens", completion.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func recordUsage(model string, usage openai.Usage) {
	if usage.PromptTokens > 0 {
		upstreamTokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		upstreamTokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}
}

func isRetryable(err error) bool {
	var rl *rateLimitError
	var te *transportError
	return errors.As(err, &rl) || errors.As(err, &te)
}

// retryDelay waits attempt*5s after a 429 and a flat 2s after transport failures.
func retryDelay(attempt int, err error) time.Duration {
	var rl *rateLimitError
	if errors.As(err, &rl) {
		return time.Duration(attempt) * rateLimitStep
	}
	return transportDelay
}
