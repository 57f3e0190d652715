package auth

import (
	"context"
	"testing"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	id := identityWith("user-1", PermRead(ResourceDocuments))
	ctx := ContextWithIdentity(context.Background(), id)

	got := IdentityFromContext(ctx)
	if got.PrincipalID != "user-1" || !got.HasPermission(PermRead(ResourceDocuments)) {
		t.Fatalf("unexpected identity from context: %+v", got)
	}
}

func TestIdentityFromEmptyContextIsAnonymous(t *testing.T) {
	got := IdentityFromContext(context.Background())
	if got.Authenticated() {
		t.Fatalf("expected anonymous identity, got %+v", got)
	}
}

func TestNewIdentityAdminByRoleName(t *testing.T) {
	u := &User{ID: "user-1"}
	admin := NewIdentity(u, &Role{ID: "r1", Name: AdminRoleName}, nil)
	if !admin.IsAdmin {
		t.Fatal("expected admin identity")
	}
	// Any other name, including near misses, is not admin.
	for _, name := range []string{"admin", "ADMIN", "Administrator", "SuperAdmin"} {
		id := NewIdentity(u, &Role{ID: "r2", Name: name}, nil)
		if id.IsAdmin {
			t.Fatalf("role %q should not be admin", name)
		}
	}
}

func TestResolveUnknownSubjectIsAnonymousNotError(t *testing.T) {
	r := NewResolver(NewMemoryStore())
	id, err := r.Resolve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.Authenticated() {
		t.Fatalf("expected anonymous identity, got %+v", id)
	}
}

func TestResolveWithoutRoleYieldsEmptyPermissions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	u := &User{ID: "user-1", Email: "a@example.com", Status: UserStatusActive}
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	id, err := NewResolver(store).Resolve(ctx, "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !id.Authenticated() {
		t.Fatal("expected authenticated identity")
	}
	if len(id.Permissions) != 0 || id.IsAdmin {
		t.Fatalf("expected empty permission set, got %+v", id)
	}
}

func TestIsSelf(t *testing.T) {
	id := identityWith("user-1")
	if !id.IsSelf("user-1") {
		t.Fatal("expected self match")
	}
	if id.IsSelf("user-2") {
		t.Fatal("unexpected self match")
	}
	if Anonymous().IsSelf("") {
		t.Fatal("anonymous must never be self")
	}
}
