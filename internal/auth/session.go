package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"veraz/internal/core"
)

const (
	CookieName = "veraz_session"
	issuer     = "veraz"
)

var ErrNoSession = errors.New("no session")

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and reads signed session cookies.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions returns a cookie manager. secure marks cookies HTTPS-only.
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Token signs an HS256 token for id.
func (s *Sessions) Token(id core.Identity) (string, error) {
	now := s.now()
	c := claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Parse validates a token and returns the identity it carries.
func (s *Sessions) Parse(token string) (core.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return core.Identity{}, fmt.Errorf("parse session: %w", err)
	}
	id := core.Identity{Username: c.Subject, Role: core.Role(c.Role)}
	if id.Username == "" || !id.Role.IsValid() {
		return core.Identity{}, errors.New("parse session: incomplete claims")
	}
	return id, nil
}

// Issue sets the session cookie for id.
func (s *Sessions) Issue(w http.ResponseWriter, id core.Identity) error {
	token, err := s.Token(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads the identity from the session cookie.
func (s *Sessions) FromRequest(r *http.Request) (core.Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return core.Identity{}, ErrNoSession
	}
	return s.Parse(c.Value)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the middleware.
func IdentityFrom(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(core.Identity)
	return id, ok
}
