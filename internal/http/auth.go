package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"expenses/internal/core"
	"expenses/internal/log"
)

// CookieName holds the access token for browser clients.
const CookieName = "accessToken"

type userKey struct{}

func withUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey{}).(core.User)
	return u, ok
}

// tokenFromRequest reads the access token from the cookie, falling back
// to an Authorization: Bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireAuth rejects requests without a valid token for an existing user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			UnauthorizedError("Unauthorized request").Write(w)
			return
		}

		userID, err := s.auth.VerifyToken(token)
		if err != nil {
			UnauthorizedError("Invalid access token").Write(w)
			return
		}

		user, err := s.auth.CurrentUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				UnauthorizedError("Invalid access token").Write(w)
				return
			}
			writeError(w, r, err, "")
			return
		}

		ctx := withUser(r.Context(), user)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
		next(w, r.WithContext(ctx))
	}
}
