package auth

import (
	"context"
	"time"
)

// Store bundles the persistence surfaces the service needs. Postgres,
// Redis-backed and in-memory implementations exist; the service treats
// them uniformly.
type Store interface {
	Users() UserStore
	Roles() RoleStore
	Revocations() RevocationStore
	Audit() AuditStore
}

// UserStore persists principals. Find and FindByEmail exclude
// soft-deleted rows and report ErrNotFound for them, exactly as for rows
// that never existed.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, scope ListScope) ([]*User, error)
	Update(ctx context.Context, u *User) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// RoleStore reads the role and permission catalog. Role membership is
// looked up fresh on every request.
type RoleStore interface {
	Find(ctx context.Context, id string) (*Role, error)
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
	EnsurePermissions(ctx context.Context, perms []Permission) error
}

// RevocationStore tracks explicitly invalidated tokens by digest.
// Revoke is idempotent; revoking an already revoked digest succeeds.
type RevocationStore interface {
	Revoke(ctx context.Context, digest string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, digest string) (bool, error)
	// PurgeExpired removes entries whose tokens have expired on their
	// own and reports how many were dropped. Backends with native
	// expiry may return 0 unconditionally.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditStore appends to the audit log. Entries are never updated or
// deleted.
type AuditStore interface {
	Append(ctx context.Context, e *AuditEntry) error
}

// OverrideRevocations swaps the revocation surface of a base store,
// used to pair the SQL store with a Redis-backed revocation list.
func OverrideRevocations(base Store, r RevocationStore) Store {
	return &revocationOverride{Store: base, revocations: r}
}

type revocationOverride struct {
	Store
	revocations RevocationStore
}

func (s *revocationOverride) Revocations() RevocationStore { return s.revocations }
