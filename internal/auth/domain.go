package auth

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Account represents a registered forum user as stored by the content store.
// Only PasswordHash and LastLoginAt are owned by this package; everything
// else is read-only identity data.
type Account struct {
	ID           int64
	FullName     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// AccountView is the client-safe projection of an Account. The password
// digest is never part of it.
type AccountView struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View returns the sanitized projection of the account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		FullName:    a.FullName,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		CreatedAt:   a.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an email address. Uniqueness in the
// content store is enforced over this normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeFullName trims surrounding whitespace and applies NFC so that
// visually identical names compare equal regardless of input encoding.
func NormalizeFullName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
