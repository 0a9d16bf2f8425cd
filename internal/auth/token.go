// Package auth issues and verifies the HMAC-signed tokens that carry a caller's identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of tokens issued without an explicit TTL.
const DefaultTTL = 30 * 24 * time.Hour

// Identity is the authenticated caller.
type Identity struct {
	UID       string
	Anonymous bool
}

// Claims is the JWT payload. "sub" holds the uid.
type Claims struct {
	Anonymous bool `json:"anon"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A zero ttl uses DefaultTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for uid.
func (t *TokenIssuer) Issue(uid string, anonymous bool) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", errors.New("uid is required")
	}
	now := t.now()
	claims := Claims{
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns the identity it carries.
func (t *TokenIssuer) Parse(tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("token is missing a subject")
	}
	return Identity{UID: claims.Subject, Anonymous: claims.Anonymous}, nil
}

// NewAnonymousUID returns a fresh identity for an anonymous sign-in.
func NewAnonymousUID() string {
	return "anon-" + uuid.NewString()
}
