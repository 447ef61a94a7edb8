package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// DefaultAllowedOrigin is used when FRONTEND_URL is empty
const DefaultAllowedOrigin = "http://localhost:3000"

// AllowedOrigins parses a comma-separated origin list, dropping blanks and duplicates
func AllowedOrigins(frontendURL string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, origin := range strings.Split(frontendURL, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{DefaultAllowedOrigin}
	}
	return origins
}

// CORS allows browser clients from frontendURL to use the todo API
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: AllowedOrigins(frontendURL),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         86400,
	})
	return c.Handler
}
