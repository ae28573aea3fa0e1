package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/storyforge/backend/pkg/utils"
)

// Handler 健康检查处理器
type Handler struct {
	environment string
}

// New 创建健康检查处理器
func New(environment string) *Handler {
	return &Handler{environment: environment}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"environment": h.environment,
	})
}
