package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // empty for guest-style users
	TokenVersion int
	CreatedAt    time.Time
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Public is the user as returned by the API.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ErrUserNotFound is returned by writes that target a missing user.
var ErrUserNotFound = errors.New("user not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	var hash sql.NullString
	if u.PasswordHash != "" {
		hash = sql.NullString{String: u.PasswordHash, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Name, normalizeEmail(u.Email), hash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT id, name, email, password_hash, token_version, created_at
	FROM users
`

func scanUser(row *sql.Row) (*User, error) {
	var (
		u    User
		hash sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &u.TokenVersion, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, selectUser+`WHERE email = ?`, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, selectUser+`WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) (int, error) {
	return r.bump(ctx, `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
		RETURNING token_version
	`, "update password", passwordHash, id)
}

// BumpTokenVersion invalidates every token issued so far for the user.
func (r *Repo) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	return r.bump(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
		RETURNING token_version
	`, "bump token version", id)
}

func (r *Repo) bump(ctx context.Context, query, op string, args ...any) (int, error) {
	var version int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return version, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
