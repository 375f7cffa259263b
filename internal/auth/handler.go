package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/askora/askora/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *SessionBoundary
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *SessionBoundary) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	_ = v.RegisterValidation("strongpassword", validateStrongPassword)
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		validator: v,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/logout", h.handleLogout)
	r.With(RequireAuth(h.service.Tokens(), h.sessions)).Get("/me", h.handleMe)
}

type sessionResponse struct {
	Message string      `json:"message"`
	User    AccountView `json:"user"`
	Token   string      `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	input.FullName = NormalizeFullName(input.FullName)
	if n := utf8.RuneCountInString(input.FullName); n < 3 || n > 100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "full name must be between 3 and 100 characters")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	session, err := h.service.Register(r.Context(), input, ClientIdentity(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.sessions.Attach(w, session.Token, session.ExpiresAt)
	httpx.JSON(w, http.StatusCreated, sessionResponse{
		Message: "account created successfully",
		User:    session.Account.View(),
		Token:   session.Token,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	session, err := h.service.Login(r.Context(), input, ClientIdentity(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.sessions.Attach(w, session.Token, session.ExpiresAt)
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Message: "signed in successfully",
		User:    session.Account.View(),
		Token:   session.Token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), ClientIdentity(r))
	h.sessions.Clear(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "signed out successfully"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, identity)
}

// validateStrongPassword enforces the complexity policy: at least 8
// characters with upper, lower, digit and symbol.
func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// validationDetail flattens validator errors into one client-safe line.
func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid input"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, "invalid email format")
		case "e164":
			parts = append(parts, "invalid phone number format")
		case "eqfield":
			parts = append(parts, "password and confirm password do not match")
		case "strongpassword":
			parts = append(parts, "password must be at least 8 characters with upper, lower, digit and symbol")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
