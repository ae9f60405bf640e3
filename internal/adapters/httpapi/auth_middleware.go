package httpapi

import (
	"net/http"
	"strings"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/platform/auth/tokenverifier"
)

// NewAuthMiddleware enforces Authorization: Bearer <JWT> for all endpoints.
//
// On success, it stores the authenticated user ID (JWT `sub`) in request
// context.
func NewAuthMiddleware(v *tokenverifier.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health endpoint is unauthenticated for infra checks.
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			user, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit user via X-Debug-User and stores it in request
// context, falling back to defaultUser when the header is absent. This keeps
// local Docker workflows free of a token issuer. Do NOT use this in
// production deployments.
func NewDevAuthMiddleware(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			user := strings.TrimSpace(r.Header.Get("X-Debug-User"))
			if user == "" {
				user = strings.TrimSpace(defaultUser)
			}
			if user == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user (set X-Debug-User)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), domain.UserID(user))))
		})
	}
}
