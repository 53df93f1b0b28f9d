package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey carries the authenticated user ID through request contexts.
const UserIDKey contextKey = "userID"

var errNoToken = errors.New("no bearer token")

// RequireAuth rejects requests without a valid bearer token and stashes the
// authenticated user ID in the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or malformed authorization header"})
			return
		}

		userID, err := s.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken pulls the token from the Authorization header, falling back to
// the "token" query parameter for transports that cannot set headers, like
// browser websocket handshakes.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errNoToken
		}
		return token, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errNoToken
}

// UserIDFromContext returns the authenticated user ID, or "" when the request
// did not pass through RequireAuth.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
