// Package auth verifies dashboard users and keeps them signed in with a
// JWT session cookie.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"veraz/internal/core"
	"veraz/internal/log"
)

const bcryptCost = 12

// ErrMissingCredentials is returned when both username and password are blank.
var ErrMissingCredentials = errors.New("missing username and password")

// User is a stored dashboard account.
type User struct {
	Username     string
	PasswordHash string
	Role         core.Role
	CreatedAt    time.Time
}

// CredentialStore looks users up by name, ignoring case. Unknown users yield
// core.ErrUserNotFound.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (User, error)
}

// UserWriter manages accounts.
type UserWriter interface {
	SaveUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) ([]User, error)
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", core.ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares password with a stored hash. Hashes that are not
// bcrypt are treated as hex SHA-256, the format of older user tables.
func CheckPassword(hash, password string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	sum := sha256.Sum256([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}

// ValidateLogin reports which of the login fields are blank.
func ValidateLogin(username, password string) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "" && password == "":
		return ErrMissingCredentials
	case username == "":
		return core.ErrEmptyUsername
	case password == "":
		return core.ErrEmptyPassword
	}
	return nil
}

type Service struct {
	store  CredentialStore
	logger *log.Logger
}

func NewService(store CredentialStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{store: store, logger: logger.WithComponent(log.ComponentAuth)}
}

// Verify checks a login attempt and returns the identity with the stored
// spelling of the username. Unknown users and wrong passwords are both
// reported as core.ErrInvalidCredentials.
func (s *Service) Verify(ctx context.Context, username, password string) (core.Identity, error) {
	if err := ValidateLogin(username, password); err != nil {
		return core.Identity{}, err
	}
	u, err := s.store.Lookup(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrUserNotFound) {
		s.logger.DebugContext(ctx, "Unknown user", log.FieldUsername, username)
		return core.Identity{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return core.Identity{}, core.ErrInvalidCredentials
	}
	return core.Identity{Username: u.Username, Role: u.Role}, nil
}
