package middleware

import (
	"net/http"

	"ecoquest/internal/response"
	"ecoquest/internal/services"
)

// RequireDatabase rejects requests with 503 while the store is unreachable.
// isConnected reads the latest background health check and performs no I/O.
func RequireDatabase(isConnected func() bool, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isConnected() {
				builder.WriteError(w, r, services.NewServiceUnavailableError("Database temporarily unavailable. Please try again shortly."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
