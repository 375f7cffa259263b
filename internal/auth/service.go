package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/askora/askora/internal/observability"
	"github.com/askora/askora/internal/platform/httpx"
)

// RegisterInput is the transient credential payload for registration. It is
// validated at the handler boundary and never persisted.
type RegisterInput struct {
	FullName        string `json:"fullName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	PhoneNumber     string `json:"phoneNumber" validate:"omitempty,e164"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// LoginInput is the transient credential payload for login.
type LoginInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// Session is the result of a successful register or login: the account, the
// signed token, and the expiry shared by token and transport credential.
type Session struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// ServiceParams groups the collaborators composed by the Service.
type ServiceParams struct {
	Logger          *slog.Logger
	Repo            Repository
	Hasher          *Hasher
	RegisterLimiter *Limiter
	LoginLimiter    *Limiter
	Lockouts        *Tracker
	Tokens          *TokenService
	Notifier        Notifier
	Metrics         *observability.AuthMetrics
	RegisterLimit   int
	LoginLimit      int
}

// Service orchestrates register, login and logout over the rate limiter,
// lockout tracker, password hasher, token service and content store.
type Service struct {
	logger          *slog.Logger
	repo            Repository
	hasher          *Hasher
	registerLimiter *Limiter
	loginLimiter    *Limiter
	lockouts        *Tracker
	tokens          *TokenService
	notifier        Notifier
	metrics         *observability.AuthMetrics
	registerLimit   int
	loginLimit      int
	now             func() time.Time
}

// NewService constructs the orchestrator.
func NewService(params ServiceParams) *Service {
	if params.RegisterLimit <= 0 {
		params.RegisterLimit = 5
	}
	if params.LoginLimit <= 0 {
		params.LoginLimit = 5
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	return &Service{
		logger:          params.Logger,
		repo:            params.Repo,
		hasher:          params.Hasher,
		registerLimiter: params.RegisterLimiter,
		loginLimiter:    params.LoginLimiter,
		lockouts:        params.Lockouts,
		tokens:          params.Tokens,
		notifier:        params.Notifier,
		metrics:         params.Metrics,
		registerLimit:   params.RegisterLimit,
		loginLimit:      params.LoginLimit,
		now:             time.Now,
	}
}

// Tokens exposes the token service for the verification middleware.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Register creates an account from validated input, issues a session token
// and returns the sanitized account. A duplicate normalized email maps to
// httpx.ErrDuplicate.
func (s *Service) Register(ctx context.Context, input RegisterInput, clientID string) (*Session, error) {
	if err := s.registerLimiter.Check(ctx, s.registerLimit, clientID); err != nil {
		if errors.Is(err, httpx.ErrRateLimited) {
			s.metrics.RateLimited()
			s.metrics.Registration(observability.OutcomeRateLimited)
		}
		return nil, err
	}

	email := NormalizeEmail(input.Email)
	if _, err := s.repo.FindAccountByEmail(ctx, email); err == nil {
		s.metrics.Registration(observability.OutcomeDuplicate)
		return nil, httpx.ErrDuplicate
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, s.storeFailure("register lookup", err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, s.storeFailure("hash password", err)
	}

	account := &Account{
		FullName:     NormalizeFullName(input.FullName),
		Email:        email,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: digest,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			s.metrics.Registration(observability.OutcomeDuplicate)
			return nil, httpx.ErrDuplicate
		}
		return nil, s.storeFailure("create account", err)
	}

	token, expiresAt, err := s.tokens.Issue(account, false)
	if err != nil {
		return nil, s.storeFailure("issue token", err)
	}
	s.metrics.Registration(observability.OutcomeSuccess)
	return &Session{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// Login verifies credentials and issues a session token. An absent account
// and a wrong password both record a failure and return the same
// httpx.ErrUnauthorized; the two causes are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, input LoginInput, clientID string) (*Session, error) {
	if err := s.loginLimiter.Check(ctx, s.loginLimit, clientID); err != nil {
		if errors.Is(err, httpx.ErrRateLimited) {
			s.metrics.RateLimited()
			s.metrics.Login(observability.OutcomeRateLimited)
		}
		return nil, err
	}

	email := NormalizeEmail(input.Email)
	locked, err := s.lockouts.IsLocked(ctx, email, clientID)
	if err != nil {
		return nil, s.storeFailure("lockout status", err)
	}
	if locked {
		s.metrics.Lockout()
		s.metrics.Login(observability.OutcomeLocked)
		return nil, httpx.ErrLocked
	}

	account, err := s.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, s.credentialFailure(ctx, email, clientID)
		}
		return nil, s.storeFailure("login lookup", err)
	}

	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		return nil, s.credentialFailure(ctx, email, clientID)
	}

	if err := s.lockouts.RecordSuccess(ctx, email, clientID); err != nil {
		s.logger.Warn("clear lockout record", slog.Any("error", err))
	}
	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("update last login", slog.Int64("account_id", account.ID), slog.Any("error", err))
	} else {
		account.LastLoginAt = &now
	}

	token, expiresAt, err := s.tokens.Issue(account, input.RememberMe)
	if err != nil {
		return nil, s.storeFailure("issue token", err)
	}

	if s.notifier != nil {
		if err := s.notifier.LoginRecorded(ctx, account, clientID); err != nil {
			s.logger.Warn("notify login", slog.Any("error", err))
		}
	}
	s.metrics.Login(observability.OutcomeSuccess)
	return &Session{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout notifies downstream consumers best effort. It always succeeds from
// the caller's perspective; the transport credential is cleared by the
// handler.
func (s *Service) Logout(ctx context.Context, clientID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SignedOut(ctx, clientID); err != nil {
		s.logger.Warn("notify signout", slog.Any("error", err))
	}
}

// credentialFailure records the failed attempt and returns the uniform
// authentication error.
func (s *Service) credentialFailure(ctx context.Context, email, clientID string) error {
	if err := s.lockouts.RecordFailure(ctx, email, clientID); err != nil {
		s.logger.Warn("record login failure", slog.Any("error", err))
	}
	s.metrics.Login(observability.OutcomeFailure)
	return httpx.ErrUnauthorized
}

// storeFailure logs the underlying fault and collapses it into a transient
// outcome; internals never reach the client.
func (s *Service) storeFailure(op string, err error) error {
	s.logger.Error(op, slog.Any("error", err))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: deadline exceeded", httpx.ErrTransient)
	}
	return fmt.Errorf("%w: %s", httpx.ErrTransient, op)
}
