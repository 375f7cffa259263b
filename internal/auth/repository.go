package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askora/askora/internal/platform/httpx"
)

// Repository is the content store boundary for identity records. Forum
// content CRUD lives elsewhere; this package only reads accounts by email,
// creates them, and stamps last logins.
type Repository interface {
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindAccountByEmail fetches an account by normalized email.
func (r *PGRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, COALESCE(phone_number, ''), password_hash, created_at, updated_at, last_login_at
		FROM accounts WHERE email = $1`, NormalizeEmail(email))
	var account Account
	if err := row.Scan(
		&account.ID, &account.FullName, &account.Email, &account.PhoneNumber,
		&account.PasswordHash, &account.CreatedAt, &account.UpdatedAt, &account.LastLoginAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts a new account, filling in the generated ID and
// timestamps. A unique violation on email maps to httpx.ErrDuplicate.
func (r *PGRepository) CreateAccount(ctx context.Context, account *Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (full_name, email, phone_number, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id, created_at, updated_at`,
		account.FullName, account.Email, account.PhoneNumber, account.PasswordHash)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *PGRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1`, id, at.UTC())
	return err
}

var _ Repository = (*PGRepository)(nil)
