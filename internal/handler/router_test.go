package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	storyModel "github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/ai"
	"github.com/zhouzirui/storyforge/backend/internal/service/ratelimit"
)

func newTestRouter(server config.ServerConfig) http.Handler {
	return NewRouter(Dependencies{
		Server:    server,
		Scope:     config.ScopeIP,
		Catalog:   storyModel.NewMemoryStore(storyModel.Seed()),
		Generator: ai.NewService(config.LLMConfig{}, zap.NewNop()),
		Limiter:   ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.DefaultCooldown),
		Logger:    zap.NewNop(),
	})
}

func serve(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "development"})

	resp := serve(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","environment":"development"}`, resp.Body.String())
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "development"})

	resp := serve(r, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestUnknownRouteOutsideProduction(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "development"})

	resp := serve(r, http.MethodGet, "/play", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, resp.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "development"})

	resp := serve(r, http.MethodOptions, "/api/generate-story", map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type, X-Session-ID",
	})

	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSRestrictsOriginInProduction(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "production", FrontendURL: "https://stories.example.com", StaticDir: t.TempDir()})

	allowed := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "https://stories.example.com"})
	denied := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example.com"})

	assert.Equal(t, "https://stories.example.com", allowed.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFrontendInProduction(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	r := newTestRouter(config.ServerConfig{Environment: "production", StaticDir: dir})

	asset := serve(r, http.MethodGet, "/assets/app.js", nil)
	assert.Equal(t, http.StatusOK, asset.Code)
	assert.Equal(t, "console.log(1)", asset.Body.String())

	route := serve(r, http.MethodGet, "/adventure/chapter-2", nil)
	assert.Equal(t, http.StatusOK, route.Code)
	assert.True(t, strings.Contains(route.Body.String(), "app"))

	api := serve(r, http.MethodGet, "/api/catalog", nil)
	assert.Equal(t, http.StatusOK, api.Code)
	assert.Contains(t, api.Header().Get("Content-Type"), "application/json")
}

func TestStaticFrontendMissingIndex(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Environment: "production", StaticDir: t.TempDir()})

	resp := serve(r, http.MethodGet, "/anything", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, resp.Body.String())
}
