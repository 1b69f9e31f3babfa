package auth

import (
	"context"
	"errors"
	"net/http"

	"ms-meetings/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware resolves the bearer session token and puts the identity into
// the request context.
func Middleware(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			id, err := sessions.Resolve(r.Context(), token)
			if errors.Is(err, ErrNoSession) {
				http.Error(w, "session expired or unknown", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "failed to resolve session", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Helper to extract the identity in handlers
func UserIdentity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
