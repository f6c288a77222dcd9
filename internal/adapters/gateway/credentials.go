package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StaticToken is a pre-issued bearer token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", errors.New("static token is empty")
	}
	return string(t), nil
}

const (
	DefaultTokenTTL = 15 * time.Minute
	// A cached token is replaced this long before it expires.
	refreshMargin = time.Minute
)

// JWTCredentials mints HS256 service tokens and reuses each one until shortly
// before it expires.
type JWTCredentials struct {
	secret  []byte
	subject string
	ttl     time.Duration
	clock   clockwork.Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewJWTCredentials(secret, subject string, ttl time.Duration, clock clockwork.Clock) (*JWTCredentials, error) {
	if secret == "" {
		return nil, errors.New("jwt credentials: secret is empty")
	}
	if ttl <= refreshMargin {
		ttl = DefaultTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &JWTCredentials{
		secret:  []byte(secret),
		subject: subject,
		ttl:     ttl,
		clock:   clock,
	}, nil
}

func (c *JWTCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.token != "" && now.Before(c.expires.Add(-refreshMargin)) {
		return c.token, nil
	}

	expires := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   c.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}

	c.token, c.expires = signed, expires
	return signed, nil
}
