package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired session")

// Identity is the authenticated user a request acts for.
type Identity struct {
	UserID   int64
	Username string
}

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and checks signed session tokens. A token expires
// idleTimeout after it was issued; re-issuing on every request turns that
// into an inactivity window.
type SessionManager struct {
	secretKey   []byte
	idleTimeout time.Duration
}

func NewSessionManager(secretKey string, idleTimeout time.Duration) *SessionManager {
	return &SessionManager{secretKey: []byte(secretKey), idleTimeout: idleTimeout}
}

func (m *SessionManager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Issue signs a token for id valid until now+idleTimeout.
func (m *SessionManager) Issue(id Identity, now time.Time) (string, time.Time, error) {
	expires := now.Add(m.idleTimeout)
	claims := &Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Validate checks the signature and expiry of token as of now.
func (m *SessionManager) Validate(token string, now time.Time) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
