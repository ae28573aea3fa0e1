package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/middleware"
	storymodel "github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/ai"
	"github.com/zhouzirui/storyforge/backend/internal/service/ratelimit"
	"github.com/zhouzirui/storyforge/backend/pkg/utils"
)

// SourceHeader reports whether a chapter came from the model or the composer.
const SourceHeader = "X-Story-Source"

// globalKey is the limiter key shared by every client in global scope.
const globalKey = "default"

// Generator produces a chapter for a request.
type Generator interface {
	Generate(ctx context.Context, req storymodel.GenerationRequest) (ai.Result, error)
}

// Limiter decides whether a client may generate now.
type Limiter interface {
	CheckAndRecord(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimitedResponse is the 429 body.
type RateLimitedResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// Handler 故事生成接口的HTTP处理器
type Handler struct {
	generator Generator
	limiter   Limiter
	clientKey func(*http.Request) string
	logger    *zap.Logger
}

// New 创建故事生成处理器。limiter 为 nil 时不限流。
func New(generator Generator, limiter Limiter, scope string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		generator: generator,
		limiter:   limiter,
		clientKey: ClientKey(scope),
		logger:    logger.Named("story"),
	}
}

// RegisterRoutes 注册故事生成路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate-story", h.handleGenerate)
}

// ClientKey returns the function deriving the limiter key for scope.
func ClientKey(scope string) func(*http.Request) string {
	switch scope {
	case config.ScopeGlobal:
		return func(*http.Request) string { return globalKey }
	case config.ScopeSession:
		return func(r *http.Request) string {
			if id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader)); id != "" {
				return "session:" + id
			}
			return "ip:" + remoteIP(r)
		}
	default:
		return func(r *http.Request) string { return "ip:" + remoteIP(r) }
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleGenerate 生成下一章
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req storymodel.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if h.limiter != nil {
		key := h.clientKey(r)
		decision, err := h.limiter.CheckAndRecord(r.Context(), key)
		switch {
		case err != nil:
			h.logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
		case decision.Limited:
			h.respondRateLimited(w, decision.WaitSeconds)
			return
		}
	}

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		var upstreamErr *ai.UpstreamError
		if errors.As(err, &upstreamErr) {
			utils.RespondRaw(w, upstreamErr.StatusCode, upstreamErr.ContentType, upstreamErr.Body)
			return
		}

		h.logger.Error("story generation failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set(SourceHeader, result.Source)
	utils.RespondJSON(w, http.StatusOK, result.Response)
}

func (h *Handler) respondRateLimited(w http.ResponseWriter, wait int) {
	w.Header().Set("Retry-After", strconv.Itoa(wait))
	utils.RespondJSON(w, http.StatusTooManyRequests, RateLimitedResponse{
		Error:             fmt.Sprintf("Too many requests. Please wait %d seconds.", wait),
		Message:           fmt.Sprintf("Rate limited - please wait %d seconds before generating the next chapter.", wait),
		RetryAfterSeconds: wait,
	})
}
