package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	v, err := NewTokenVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	return NewService(store, v), store
}

func seedUser(t *testing.T, store *MemoryStore, id, email, password, status string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &User{ID: id, Email: email, PasswordHash: hash, Status: status}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "whatever")
	_, errWrongPw := svc.Login(ctx, "a@example.com", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredential) {
		t.Fatalf("unknown email: expected ErrInvalidCredential, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredential) {
		t.Fatalf("wrong password: expected ErrInvalidCredential, got %v", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("failure messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLoginSuspendedPrincipal(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusSuspended)

	_, err := svc.Login(context.Background(), "a@example.com", "correct-horse")
	if !errors.Is(err, ErrPrincipalSuspended) {
		t.Fatalf("expected ErrPrincipalSuspended, got %v", err)
	}
}

func TestLoginTouchesLastLogin(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.ExpiresAt.IsZero() {
		t.Fatalf("incomplete login result: %+v", res)
	}
	u, err := store.Users().Find(ctx, "user-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
}

func TestAuthenticatePipeline(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	id, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.PrincipalID != "user-1" {
		t.Fatalf("unexpected principal: %q", id.PrincipalID)
	}
	if id.Token != res.Token {
		t.Fatal("raw token not carried on identity")
	}
}

func TestAuthenticateEmptyTokenIsAnonymous(t *testing.T) {
	svc, _ := newTestService(t)
	id, err := svc.Authenticate(context.Background(), "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Authenticated() {
		t.Fatalf("expected anonymous identity, got %+v", id)
	}
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked after logout, got %v", err)
	}

	// Second logout of the same token, and logout of garbage, both
	// succeed silently.
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("repeat Logout: %v", err)
	}
	if err := svc.Logout(ctx, "not-a-token"); err != nil {
		t.Fatalf("garbage Logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("empty Logout: %v", err)
	}
}

func TestRevocationSurvivesUntilExpiry(t *testing.T) {
	store := NewMemoryStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	v, _ := NewTokenVerifier("test-secret", WithVerifierClock(func() time.Time { return now }))
	svc := NewService(store, v, WithClock(func() time.Time { return now }))

	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// Before natural expiry the entry must survive a purge.
	now = t0.Add(3 * 24 * time.Hour)
	if _, err := svc.PurgeRevoked(ctx); err != nil {
		t.Fatalf("PurgeRevoked: %v", err)
	}
	if revoked, _ := store.Revocations().IsRevoked(ctx, TokenDigest(res.Token)); !revoked {
		t.Fatal("revocation entry purged before token expiry")
	}

	// After expiry the purge may drop it.
	now = t0.Add(8 * 24 * time.Hour)
	n, err := svc.PurgeRevoked(ctx)
	if err != nil {
		t.Fatalf("PurgeRevoked: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
}

func TestRoleEditsApplyOnNextRequest(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.PutRole(&Role{ID: "role-1", Name: "Analyst"})
	hash, _ := HashPassword("correct-horse")
	u := &User{ID: "user-1", Email: "a@example.com", PasswordHash: hash,
		Status: UserStatusActive, RoleID: "role-1"}
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	id, _ := svc.Authenticate(ctx, res.Token)
	if id.HasPermission(PermRead(ResourceDocuments)) {
		t.Fatal("permission present before grant")
	}

	// Grant a permission with the token unchanged; the next request
	// must see it.
	store.GrantPermission("role-1", PermRead(ResourceDocuments))
	id, _ = svc.Authenticate(ctx, res.Token)
	if !id.HasPermission(PermRead(ResourceDocuments)) {
		t.Fatal("grant not visible on next request")
	}

	store.RevokeGrant("role-1", PermRead(ResourceDocuments))
	id, _ = svc.Authenticate(ctx, res.Token)
	if id.HasPermission(PermRead(ResourceDocuments)) {
		t.Fatal("revoked grant still visible")
	}
}

func TestAuthenticateDeletedPrincipal(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "user-1", "a@example.com", "correct-horse", UserStatusActive)
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Soft-delete the principal out from under a valid token.
	u, _ := store.Users().Find(ctx, "user-1")
	now := time.Now().UTC()
	u.DeletedBy = "admin-1"
	u.DeletedAt = &now
	if err := store.Users().Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for deleted principal, got %v", err)
	}
}
