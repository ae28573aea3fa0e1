package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/storyforge/backend/internal/model/story"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(story.NewMemoryStore(story.Seed())).RegisterRoutes(r)
	return r
}

func TestGetCatalog(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	resp := httptest.NewRecorder()

	setupRouter().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var got story.Catalog
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Len(t, got.Avatars, 16)
	assert.Len(t, got.Worlds, 20)
	assert.Len(t, got.Personalities, 18)
	assert.Len(t, got.Endings, 15)
	assert.Equal(t, "fantasy", got.Worlds[0].Key)
}

func TestGetAvatar(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/catalog/avatars/"+url.PathEscape("🧙"), nil)
	resp := httptest.NewRecorder()

	setupRouter().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var got story.Avatar
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "Wizard", got.Name)
	assert.Equal(t, "Mage", got.Class)
}

func TestGetAvatarNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/catalog/avatars/unknown", nil)
	resp := httptest.NewRecorder()

	setupRouter().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
