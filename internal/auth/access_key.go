package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessKeySigner mints short-lived HS256 bearer tokens for calls to the SIP proxy.
// The subject is the access key id; the key secret never leaves the process.
//
// Tokens are cached and reissued once less than a quarter of the TTL remains.
type AccessKeySigner struct {
	keyID  string
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

func NewAccessKeySigner(keyID, secret string, ttl time.Duration) (*AccessKeySigner, error) {
	if keyID == "" || secret == "" {
		return nil, errors.New("auth: access key id and secret are required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AccessKeySigner{keyID: keyID, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *AccessKeySigner) KeyID() string { return s.keyID }

// Token implements rpcclient.TokenSource.
func (s *AccessKeySigner) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != "" && now.Add(s.ttl/4).Before(s.expires) {
		return s.cached, nil
	}

	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   s.keyID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.cached, s.expires = signed, exp
	return signed, nil
}
