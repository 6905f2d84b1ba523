// Package auth defines the credential store boundary: input validation,
// password hashing, and the Store interface with its backends.
package auth

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameTaken is returned by CreateUser when the username
	// already has a credential record.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername = errors.New("username must be 3-20 characters: letters, digits, underscore or dash")

	// ErrInvalidPassword is returned when a password fails validation.
	ErrInvalidPassword = errors.New("password must be at least 6 characters")
)

// Store is the credential store consumed by the hub. Implementations must
// enforce username uniqueness and store passwords only as salted one-way
// hashes; plaintext never survives past CreateUser.
type Store interface {
	// UsernameExists reports whether a credential record exists for name.
	UsernameExists(ctx context.Context, name string) (bool, error)

	// CreateUser stores a new credential record. Returns ErrUsernameTaken
	// if the username is already registered.
	CreateUser(ctx context.Context, name, password string) error

	// VerifyCredentials reports whether a record exists for name and the
	// password matches its hash. A missing user or a mismatch is (false,
	// nil); only infrastructure failures produce an error.
	VerifyCredentials(ctx context.Context, name, password string) (bool, error)
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// ValidateUsername checks the username shape before it reaches a store.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword checks the password shape before it reaches a store.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return ErrInvalidPassword
	}
	return nil
}

// hashPassword produces a salted bcrypt hash of the password.
func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// checkPassword reports whether password matches the stored bcrypt hash.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
