// Package auth issues and verifies bearer tokens and carries the
// authenticated actor through request contexts.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// claims is the JWT payload.
type claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// Token is a verified bearer token.
type Token struct {
	ID        string
	Actor     model.Actor
	ExpiresAt time.Time
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokens builds a token service from configuration. A nil now uses time.Now.
func NewTokens(cfg config.Auth, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     cfg.TokenTTL,
		now:     now,
		revoked: make(map[string]time.Time),
	}
}

// Issue signs a token for u.
func (t *Tokens) Issue(u model.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: u.Email,
		Role:  u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses raw and returns the token it carries.
func (t *Tokens) Verify(raw string) (Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Token{}, apperr.Unauthorized("token is required")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Token{}, mapJWTError(err)
	}
	if parsed.Subject == "" || parsed.ID == "" {
		return Token{}, apperr.Unauthorized("token is missing subject")
	}
	if t.isRevoked(parsed.ID) {
		return Token{}, apperr.Unauthorized("token has been revoked")
	}

	return Token{
		ID:        parsed.ID,
		Actor:     model.Actor{ID: parsed.Subject, Email: parsed.Email, Role: parsed.Role},
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

// Revoke rejects tok for the rest of its lifetime.
func (t *Tokens) Revoke(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[tok.ID] = tok.ExpiresAt
	now := t.now()
	for id, exp := range t.revoked {
		if !exp.After(now) {
			delete(t.revoked, id)
		}
	}
}

func (t *Tokens) isRevoked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.revoked[id]
	return ok
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Unauthorized("token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Unauthorized("token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperr.Unauthorized("token alg is invalid")
	default:
		return apperr.Wrap(apperr.KindUnauthorized, err, "token is invalid")
	}
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
