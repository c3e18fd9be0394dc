// Package auth provides user identity for the multi-user deployment: bcrypt
// password hashes, JWT bearer tokens, and the convenience-grade PIN lock.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

// AnonymousUserID is the fallback owner key used when no user is
// authenticated, so single-user deployments still get one stable namespace.
const AnonymousUserID = ""

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

type (
	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// UserStore is implemented by the configured backend (memory, sqlite,
	// or mongo).
	UserStore interface {
		CreateUser(ctx context.Context, email, passwordHash string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
	}
)

// Register hashes the password and creates the user, rejecting duplicate
// emails with ErrUserExists.
func Register(ctx context.Context, users UserStore, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, ErrInvalidEmail
	}
	if len(password) < 6 {
		return User{}, ErrWeakPassword
	}
	if _, err := users.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrUserExists
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return users.CreateUser(ctx, email, hash)
}

// Login verifies credentials and returns the user. Both unknown email and a
// wrong password collapse into ErrInvalidCredentials.
func Login(ctx context.Context, users UserStore, email, password string) (User, error) {
	u, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !CheckPasswordHash(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
