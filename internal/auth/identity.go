package auth

import (
	"context"
	"errors"
)

// Identity is the resolved caller attached to a request. The zero value
// is the anonymous identity: no principal, no permissions.
type Identity struct {
	PrincipalID    string
	OrganizationID string
	IsAdmin        bool
	Permissions    map[string]struct{}
	// Token is the raw bearer credential the identity was resolved
	// from, kept so logout can revoke exactly what was presented.
	Token string
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity { return Identity{} }

// Authenticated reports whether a principal backs this identity.
func (id Identity) Authenticated() bool { return id.PrincipalID != "" }

// HasPermission checks set membership on the resolved permission names.
func (id Identity) HasPermission(name string) bool {
	_, ok := id.Permissions[name]
	return ok
}

// IsSelf reports whether the identity refers to the given principal.
// Anonymous identities are never self.
func (id Identity) IsSelf(principalID string) bool {
	return id.PrincipalID != "" && id.PrincipalID == principalID
}

// NewIdentity assembles an identity from a freshly loaded principal and
// role. A nil role yields an empty permission set, never an error; such
// an identity authenticates but passes no permission check.
func NewIdentity(u *User, role *Role, perms []Permission) Identity {
	id := Identity{
		PrincipalID:    u.ID,
		OrganizationID: u.OrganizationID,
		Permissions:    make(map[string]struct{}, len(perms)),
	}
	if role != nil {
		id.IsAdmin = role.Name == AdminRoleName
	}
	for _, p := range perms {
		id.Permissions[p.Name] = struct{}{}
	}
	return id
}

// Resolver loads role and permissions for a verified subject. Nothing is
// cached across requests.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps a verified subject id to its current identity. A subject
// whose principal record is missing or soft-deleted resolves to the
// anonymous identity with a nil error; the caller decides how to treat
// that. Missing roles degrade to an empty permission set.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (Identity, error) {
	u, err := r.store.Users().Find(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return Anonymous(), nil
	}
	if err != nil {
		return Anonymous(), err
	}

	var role *Role
	var perms []Permission
	if u.RoleID != "" {
		role, err = r.store.Roles().Find(ctx, u.RoleID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Anonymous(), err
		}
		if role != nil {
			perms, err = r.store.Roles().PermissionsForRole(ctx, role.ID)
			if err != nil {
				return Anonymous(), err
			}
		}
	}
	return NewIdentity(u, role, perms), nil
}

type identityCtxKey struct{}

// ContextWithIdentity attaches the resolved identity to the request
// context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the attached identity, or the anonymous
// identity when none was attached.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityCtxKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
