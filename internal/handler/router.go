package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/handler/catalog"
	"github.com/zhouzirui/storyforge/backend/internal/handler/health"
	"github.com/zhouzirui/storyforge/backend/internal/handler/story"
	middlewarePkg "github.com/zhouzirui/storyforge/backend/internal/middleware"
	storyModel "github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/pkg/utils"
)

// Dependencies 汇总路由需要的服务。
type Dependencies struct {
	Server    config.ServerConfig
	Scope     string
	Catalog   storyModel.Store
	Generator story.Generator
	Limiter   story.Limiter
	Logger    *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.ZapLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Server.IsProduction(), deps.Server.FrontendURL))

	health.New(deps.Server.Environment).RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		catalog.New(deps.Catalog).RegisterRoutes(api)
		story.New(deps.Generator, deps.Limiter, deps.Scope, logger).RegisterRoutes(api)
	})

	r.NotFound(notFoundHandler(deps.Server, logger))
	return r
}

// notFoundHandler serves the built frontend in production, falling back to
// index.html so client-side routes resolve. Elsewhere unknown routes get a
// JSON 404.
func notFoundHandler(cfg config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	if !cfg.IsProduction() {
		return respondNotFound
	}
	if info, err := os.Stat(cfg.StaticDir); err != nil || !info.IsDir() {
		logger.Warn("static directory unavailable, frontend not served", zap.String("dir", cfg.StaticDir))
		return respondNotFound
	}

	root := cfg.StaticDir
	files := http.FileServer(http.Dir(root))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondNotFound(w, r)
			return
		}

		path := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}

		index := filepath.Join(root, "index.html")
		if _, err := os.Stat(index); err != nil {
			respondNotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}

func respondNotFound(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusNotFound, "Not found")
}
