package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/pkg/utils"
)

// Handler 故事选项目录的HTTP处理器
type Handler struct {
	catalog story.Store
}

// New 创建目录处理器
func New(catalog story.Store) *Handler {
	return &Handler{
		catalog: catalog,
	}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.handleGetCatalog)
	r.Get("/catalog/avatars/{emoji}", h.handleGetAvatar)
}

// handleGetCatalog 返回全部可选的角色、世界、性格与结局
func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.Catalog())
}

// handleGetAvatar 按 emoji 查询单个角色
func (h *Handler) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	avatar, ok := h.catalog.FindAvatar(chi.URLParam(r, "emoji"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "avatar not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, avatar)
}
