package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gridpulse/gridpulse/pkg/log"
)

// requireAdmin validates the Authorization bearer token as a Google ID token
// and checks the email claim against admin-emails. When neither an audience
// nor an admin list is configured the check is skipped.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.bypassAuth {
			next.ServeHTTP(w, r)
			return
		}
		if s.oidcVerifier == nil {
			// an admin list without an audience cannot be verified
			log.Ctx(ctx).ErrorContext(ctx, "admin-emails set without oidc-audience")
			writeJSONError(w, "admin auth not configured", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid authorization header", http.StatusBadRequest)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		idToken, err := s.oidcVerifier(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}

		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse token claims", slog.Any("error", err))
			writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
			return
		}

		if !s.isAdmin(claims.Email) {
			log.Ctx(ctx).WarnContext(ctx, "email not in admin list", slog.String("email", claims.Email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(email string) bool {
	for _, admin := range s.adminEmails {
		if email == admin {
			return true
		}
	}
	return false
}
