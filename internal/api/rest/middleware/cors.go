package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows any origin and answers preflight requests without reaching the routes.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
		MaxAge:         3600,
	})
}
