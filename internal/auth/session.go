package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the transport credential cookie name.
const DefaultCookieName = "auth-token"

// SessionBoundary carries the session token across requests. The cookie is
// HttpOnly, Strict same-site, and Secure in production, so page scripts and
// cross-site requests never see it.
type SessionBoundary struct {
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewSessionBoundary constructs the boundary. secure should be true in
// production so the cookie only travels over TLS.
func NewSessionBoundary(cookieName string, secure bool) *SessionBoundary {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionBoundary{cookieName: cookieName, secure: secure, now: time.Now}
}

// CookieName returns the transport credential name.
func (b *SessionBoundary) CookieName() string {
	return b.cookieName
}

// Attach sets the token cookie with a MaxAge matching the token expiry.
func (b *SessionBoundary) Attach(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(b.now()).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear overwrites the cookie with an immediately expiring empty value.
// This is the only revocation mechanism: a still-valid token presented via
// the Authorization header afterwards is still accepted.
func (b *SessionBoundary) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Extract returns the token from the Authorization bearer header or, when
// absent, from the cookie. The header takes precedence.
func (b *SessionBoundary) Extract(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token, true
		}
	}
	cookie, err := r.Cookie(b.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ClientIdentity derives a best-effort client key for rate limiting and
// lockout from forwarded headers. Requests without either header share the
// "unknown" bucket and therefore share quota; the identity is not
// cryptographically authenticated.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return "unknown"
}
