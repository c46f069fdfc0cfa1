package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS applies the storefront and back-office origin policy. Last-Event-ID is allowed
// so the order event stream can resume after a reconnect. A "*" origin turns credentials
// off since browsers reject that combination.
func CORS(origins []string) func(http.Handler) http.Handler {
	clean := make([]string, 0, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		wildcard = wildcard || origin == "*"
		clean = append(clean, origin)
	}
	if len(clean) == 0 {
		clean = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   clean,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}).Handler
}
