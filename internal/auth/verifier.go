package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 168 * time.Hour

// TokenClaims is the verified subset of a token the rest of the stack
// consumes. The subject is an opaque principal id; roles and permissions
// are never embedded in tokens.
type TokenClaims struct {
	SubjectID string
	ExpiresAt time.Time
}

// TokenVerifier issues and verifies HMAC-SHA256 signed bearer tokens.
// Verification is pure: no storage access, no side effects.
type TokenVerifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type VerifierOption func(*TokenVerifier)

func WithIssuer(issuer string) VerifierOption {
	return func(v *TokenVerifier) { v.issuer = issuer }
}

func WithTokenTTL(ttl time.Duration) VerifierOption {
	return func(v *TokenVerifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithVerifierClock substitutes the time source, used by tests to walk
// tokens across their expiry.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *TokenVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewTokenVerifier(secret string, opts ...VerifierOption) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	v := &TokenVerifier{
		secret: []byte(secret),
		issuer: "compliance-api",
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Issue mints a signed token for the given principal id. The returned
// expiry matches the exp claim embedded in the token.
func (v *TokenVerifier) Issue(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, ErrInvalidInput
	}
	now := v.now().UTC()
	expiresAt := now.Add(v.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and issuer. Every failure collapses to
// ErrInvalidCredential so callers cannot distinguish why a token was
// rejected.
func (v *TokenVerifier) Verify(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, ErrInvalidCredential
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidCredential
	}
	return &TokenClaims{
		SubjectID: claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL reports the configured token lifetime.
func (v *TokenVerifier) TTL() time.Duration { return v.ttl }
