package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"ecoquest/internal/contextutils"
	"ecoquest/internal/response"
	"ecoquest/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slices"
)

// Claims carries the identity embedded in access tokens. Role comes from
// the token; there is no local user store to consult.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth parses and verifies the bearer token, storing user identity
// in the request context.
func RequireAuth(secret string, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				builder.WriteError(w, r, services.NewUnauthorizedError("Authentication required"))
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})

			if err != nil || !token.Valid || claims.UserID == 0 {
				builder.WriteError(w, r, services.NewUnauthorizedError("Invalid or expired token"))
				return
			}

			ctx := contextutils.SetUserID(r.Context(), claims.UserID)
			ctx = contextutils.SetUserRole(ctx, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only the listed roles past. Must run after RequireAuth.
func RequireRole(builder *response.Builder, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := contextutils.GetUserRole(r.Context())
			if !slices.Contains(roles, role) {
				builder.WriteError(w, r, services.NewForbiddenError("Insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
