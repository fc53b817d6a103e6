package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/papelisco/storefront/pkg/config"
)

// TokenHeader carries a freshly minted access token back to the web client.
const TokenHeader = "X-SF-Token"

// CORS applies the configured origin allowlist. Browsers may read the token, request id
// and replay headers from responses.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", TokenHeader, IdempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{TokenHeader, RequestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
