package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/handler"
	model "github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/ai"
	"github.com/zhouzirui/storyforge/backend/internal/service/ratelimit"
	"github.com/zhouzirui/storyforge/backend/internal/story"
)

// newServer runs the real router in demo mode.
func newServer(t *testing.T, cooldown time.Duration, scope string) *httptest.Server {
	t.Helper()
	catalog := model.NewMemoryStore(model.Seed())
	router := handler.NewRouter(handler.Dependencies{
		Server:    config.ServerConfig{Environment: "development"},
		Scope:     scope,
		Catalog:   catalog,
		Generator: ai.NewService(config.LLMConfig{}, zap.NewNop()),
		Limiter:   ratelimit.New(ratelimit.NewMemoryStore(), cooldown),
		Logger:    zap.NewNop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaythroughAgainstServer(t *testing.T) {
	srv := newServer(t, 0, config.ScopeSession)
	c := New(srv.URL)
	ctx := context.Background()

	catalog, err := c.Catalog(ctx)
	require.NoError(t, err)
	session := story.NewSession(c, model.NewMemoryStore(catalog))

	require.NoError(t, session.UpdateSettings(story.Settings{
		WorldSetting:  "underwater",
		CharacterName: "Nerissa",
		Personality:   "romantic",
		EndingType:    "bittersweet",
		Avatar:        "🧚",
	}))
	require.NoError(t, session.Start(ctx))

	for i := 0; i < 3 && !session.Finished(); i++ {
		snap := session.Snapshot()
		require.Len(t, snap.Choices, 3)
		require.NoError(t, session.Choose(ctx, snap.Choices[i%3]))
	}

	snap := session.Snapshot()
	assert.True(t, session.Finished())
	assert.Empty(t, snap.Choices)
	assert.LessOrEqual(t, len(snap.StoryHistory), 3)
	assert.Len(t, snap.ChoiceHistory, len(snap.StoryHistory)-1)
	assert.Contains(t, snap.StoryHistory[0], "Nerissa")
}

func TestGenerateRateLimited(t *testing.T) {
	srv := newServer(t, ratelimit.DefaultCooldown, config.ScopeSession)
	c := New(srv.URL)
	ctx := context.Background()
	req := model.GenerationRequest{Prompt: "Create a unique story opening"}

	_, err := c.Generate(ctx, req)
	require.NoError(t, err)

	_, err = c.Generate(ctx, req)
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 20, limited.WaitSeconds)
	assert.EqualError(t, err, "Rate limited. Please wait 20 seconds before trying again.")

	// another session has its own window
	_, err = New(srv.URL).Generate(ctx, req)
	assert.NoError(t, err)
}

func TestFailedGenerationLeavesSessionUntouched(t *testing.T) {
	srv := newServer(t, ratelimit.DefaultCooldown, config.ScopeSession)
	c := New(srv.URL)
	ctx := context.Background()
	session := story.NewSession(c, model.NewMemoryStore(model.Seed()))

	require.NoError(t, session.Start(ctx))
	before := session.Snapshot()

	err := session.Choose(ctx, before.Choices[0])

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, before, session.Snapshot())
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Session-ID"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithSessionID("fixed")).Generate(context.Background(), model.GenerationRequest{Prompt: "x"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.EqualError(t, err, "HTTP 401: Unauthorized")
}

func TestRateLimitedWithoutHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), model.GenerationRequest{Prompt: "x"})

	assert.EqualError(t, err, "Rate limited. Please wait a few seconds before trying again.")
}

func TestSessionIDIsStable(t *testing.T) {
	c := New("http://localhost:3001/")
	assert.NotEmpty(t, c.SessionID())
	assert.Equal(t, c.SessionID(), c.SessionID())
	assert.Equal(t, "fixed", New("http://x", WithSessionID("fixed")).SessionID())
}
