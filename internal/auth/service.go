package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"finsense.io/compliance/internal/obs"
)

// TokenDigest returns the SHA-256 hex digest under which a token is
// tracked in the revocation store. Raw tokens are never persisted.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Service is the session authentication front door. Authenticate runs
// the full pipeline in a fixed order: verify the credential, consult the
// revocation store, then resolve the identity. A token that fails an
// earlier stage never reaches a later one.
type Service struct {
	store    Store
	verifier *TokenVerifier
	resolver *Resolver
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithClock substitutes the service time source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, verifier *TokenVerifier, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		resolver: NewResolver(store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves a bearer token to an identity. An empty token is
// the anonymous caller, not an error; whether anonymity suffices is the
// authorization layer's decision. Invalid, expired and revoked tokens
// all come back as ErrInvalidCredential or ErrRevoked, which callers
// present identically.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Anonymous(), nil
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		obs.CountAuthDecision("invalid_token")
		return Anonymous(), ErrInvalidCredential
	}
	revoked, err := s.store.Revocations().IsRevoked(ctx, TokenDigest(token))
	if err != nil {
		return Anonymous(), err
	}
	if revoked {
		obs.CountAuthDecision("revoked")
		return Anonymous(), ErrRevoked
	}
	id, err := s.resolver.Resolve(ctx, claims.SubjectID)
	if err != nil {
		return Anonymous(), err
	}
	if !id.Authenticated() {
		// Valid signature but the principal is gone or soft-deleted.
		obs.CountAuthDecision("unknown_subject")
		return Anonymous(), ErrInvalidCredential
	}
	id.Token = token
	obs.CountAuthDecision("ok")
	return id, nil
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	User        *User
	Role        *Role
	Permissions []string
}

// Login verifies an email/password pair and mints a token. Unknown
// email and wrong password produce the same ErrInvalidCredential, so
// responses never confirm whether an account exists. Suspended and
// invited principals are refused even with a correct password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredential
	}
	u, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		// ErrNotFound deliberately collapses into the generic failure.
		if err == ErrNotFound {
			obs.CountAuthDecision("login_failed")
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !VerifyPassword(u.PasswordHash, password) {
		obs.CountAuthDecision("login_failed")
		return nil, ErrInvalidCredential
	}
	if u.Status != UserStatusActive {
		obs.CountAuthDecision("login_suspended")
		return nil, ErrPrincipalSuspended
	}

	token, expiresAt, err := s.verifier.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().TouchLogin(ctx, u.ID, s.now().UTC()); err != nil {
		return nil, err
	}

	var role *Role
	var perms []Permission
	if u.RoleID != "" {
		if role, err = s.store.Roles().Find(ctx, u.RoleID); err != nil && err != ErrNotFound {
			return nil, err
		}
		if role != nil {
			if perms, err = s.store.Roles().PermissionsForRole(ctx, role.ID); err != nil {
				return nil, err
			}
		}
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	obs.CountAuthDecision("login_ok")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u, Role: role, Permissions: names}, nil
}

// Logout revokes the presented token until its natural expiry. The call
// is idempotent: revoking an already revoked, expired or malformed token
// succeeds silently, so a client retrying logout never sees an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil
	}
	return s.store.Revocations().Revoke(ctx, TokenDigest(token), claims.ExpiresAt)
}

// EnsureBuiltins seeds the permission catalog. Safe to run on every
// start.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Roles().EnsurePermissions(ctx, BuiltinPermissions)
}

// PurgeRevoked drops revocation entries whose tokens have expired on
// their own. Tokens still inside their lifetime are never touched.
func (s *Service) PurgeRevoked(ctx context.Context) (int64, error) {
	n, err := s.store.Revocations().PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	obs.CountPurgedRevocations(n)
	return n, nil
}

// SweepRevocations runs PurgeRevoked on a ticker until the context is
// cancelled. Intended to run as a background goroutine.
func (s *Service) SweepRevocations(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.PurgeRevoked(ctx); err != nil {
				obs.Logger().Printf(`{"level":"error","msg":"revocation sweep failed","err":%q}`, err.Error())
			} else if n > 0 {
				obs.Logger().Printf(`{"level":"info","msg":"revocation sweep","purged":%d}`, n)
			}
		}
	}
}

// Store exposes the underlying store for handlers that manage users
// directly.
func (s *Service) Store() Store { return s.store }

// Now exposes the service clock so handlers stamp with the same source.
func (s *Service) Now() time.Time { return s.now().UTC() }
