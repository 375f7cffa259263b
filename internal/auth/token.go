package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/askora/askora/internal/platform/httpx"
)

// Claims carries the identity asserted by a session token.
type Claims struct {
	Email    string `json:"email"`
	FullName string `json:"name"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim as a numeric account ID.
func (c *Claims) AccountID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenConfig holds the signing parameters for the token service.
type TokenConfig struct {
	Secret      []byte
	Issuer      string
	Audience    string
	TTL         time.Duration
	ExtendedTTL time.Duration
}

// TokenService issues and verifies signed, time-bounded session tokens.
// Tokens are signed, not encrypted; claims are visible to the bearer.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService constructs a TokenService. A missing secret is a
// configuration fault and must abort startup, never a request.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: token signing secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.ExtendedTTL <= 0 {
		cfg.ExtendedTTL = 30 * 24 * time.Hour
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// TTL returns the token lifetime for the given persistence choice.
func (s *TokenService) TTL(extended bool) time.Duration {
	if extended {
		return s.cfg.ExtendedTTL
	}
	return s.cfg.TTL
}

// Issue signs a token for the account. The returned expiry equals the exp
// claim embedded in the token, so the transport MaxAge derived from it can
// never diverge from the token's own lifetime.
func (s *TokenService) Issue(account *Account, extended bool) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.TTL(extended))
	claims := Claims{
		Email:    account.Email,
		FullName: account.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer, audience and expiry. Every failure
// collapses into httpx.ErrUnauthorized; callers get no detail to use as an
// oracle.
func (s *TokenService) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, httpx.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, httpx.ErrUnauthorized
	}
	return claims, nil
}
