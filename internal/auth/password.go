package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
	maxUsernameLen = 50
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = &core.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	ErrLongPassword       = &core.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
)

// UserStore is the persistence the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

// PasswordAuthenticator registers and verifies users with bcrypt hashes.
type PasswordAuthenticator struct {
	store UserStore
	cost  int
	// dummyHash is compared against when the user does not exist so a
	// missing account costs as much time as a wrong password.
	dummyHash []byte
}

func NewPasswordAuthenticator(store UserStore) *PasswordAuthenticator {
	return newPasswordAuthenticator(store, bcrypt.DefaultCost)
}

func newPasswordAuthenticator(store UserStore, cost int) *PasswordAuthenticator {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("fintrack-dummy-password"), cost)
	return &PasswordAuthenticator{store: store, cost: cost, dummyHash: dummy}
}

// ValidateCredential checks password length.
func (a *PasswordAuthenticator) ValidateCredential(password string) error {
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	if len(password) > maxPasswordLen {
		return ErrLongPassword
	}
	return nil
}

// ValidateUsername rejects empty names, names with whitespace or control
// characters, and names longer than 50 characters. Case is preserved.
func ValidateUsername(username string) error {
	if username == "" {
		return &core.ValidationError{Field: "username", Reason: "required"}
	}
	if len([]rune(username)) > maxUsernameLen {
		return &core.ValidationError{Field: "username", Reason: fmt.Sprintf("too long (max %d characters)", maxUsernameLen)}
	}
	if strings.IndexFunc(username, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return &core.ValidationError{Field: "username", Reason: "must not contain spaces"}
	}
	return nil
}

// Register creates a user. A taken username yields core.ErrDuplicateUsername.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, password string) (core.User, error) {
	if err := ValidateUsername(username); err != nil {
		return core.User{}, err
	}
	if err := a.ValidateCredential(password); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user when the password matches. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}
