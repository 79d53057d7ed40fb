// ABOUTME: Verification of the single configured administrator identity
// ABOUTME: Constant-time username check plus bcrypt that always runs, so failures look identical

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login, whichever field was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// MinPasswordLength is enforced by HashPassword.
const MinPasswordLength = 8

// dummyHash is compared against when the username is wrong so both failure
// paths spend the same bcrypt time.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Credentials holds the administrator's username and bcrypt hash.
type Credentials struct {
	username []byte
	hash     []byte
}

// NewCredentials validates that hash is a usable bcrypt hash.
func NewCredentials(username, passwordHash string) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("admin username is empty")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &Credentials{username: []byte(username), hash: []byte(passwordHash)}, nil
}

// Username returns the configured administrator name.
func (c *Credentials) Username() string {
	return string(c.username)
}

// Verify checks a login attempt. It returns ErrInvalidCredentials on any mismatch.
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), c.username) == 1

	hash := c.hash
	if !userOK {
		hash = dummyHash
	}
	passErr := bcrypt.CompareHashAndPassword(hash, []byte(password))

	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
