package auth

import (
	"context"
	"net/http"

	"github.com/askora/askora/internal/platform/httpx"
)

// Identity is the verified identity exposed to downstream handlers.
type Identity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type contextKey int

const identityKey contextKey = iota

// ContextWithIdentity stores the identity on the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the identity placed by RequireAuth.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// RequireAuth extracts the session token from the request, verifies it and
// exposes the identity to downstream handlers. Any failure is answered as
// unauthenticated, never as a server error.
func RequireAuth(tokens *TokenService, sessions *SessionBoundary) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessions.Extract(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			claims, err := tokens.Verify(token)
			if err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			id, err := claims.AccountID()
			if err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			identity := &Identity{ID: id, Email: claims.Email, FullName: claims.FullName}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}
