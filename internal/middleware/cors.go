package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// SessionHeader carries the client session id used for per-session limits.
const SessionHeader = "X-Session-ID"

// CORS 返回跨域中间件：生产环境只允许 frontendURL，其余环境放开所有来源。
func CORS(production bool, frontendURL string) func(http.Handler) http.Handler {
	origins := []string{"*"}
	credentials := false
	if production && frontendURL != "" {
		origins = []string{frontendURL}
		credentials = true
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", SessionHeader},
		ExposedHeaders:   []string{"Retry-After", "X-Story-Source"},
		AllowCredentials: credentials,
		MaxAge:           300,
	})
}
