package auth

import (
	"errors"
	"testing"
)

func identityWith(principalID string, perms ...string) Identity {
	id := Identity{PrincipalID: principalID, Permissions: map[string]struct{}{}}
	for _, p := range perms {
		id.Permissions[p] = struct{}{}
	}
	return id
}

func adminIdentity() Identity {
	return Identity{PrincipalID: "admin-1", IsAdmin: true, Permissions: map[string]struct{}{}}
}

func TestAdminBypassesAllChecks(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)
	admin := adminIdentity()

	if !e.ListScope(admin).All {
		t.Fatal("admin should see all rows")
	}
	if err := e.CanGet(admin, "someone-else"); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if err := e.CanCreate(admin); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if err := e.CanUpdate(admin, ""); err != nil {
		t.Fatalf("admin update of ownerless record: %v", err)
	}
	if err := e.CanDelete(admin, "someone-else"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestPermissionAndOwnershipBothRequired(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)

	withPerm := identityWith("user-1", PermUpdate(ResourceDocuments))
	if err := e.CanUpdate(withPerm, "user-1"); err != nil {
		t.Fatalf("own record with permission: %v", err)
	}
	if err := e.CanUpdate(withPerm, "user-2"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("someone else's record: expected ErrAccessDenied, got %v", err)
	}

	noPerm := identityWith("user-1")
	if err := e.CanUpdate(noPerm, "user-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("own record without permission: expected ErrAccessDenied, got %v", err)
	}
}

func TestListDegradesGetDenies(t *testing.T) {
	e := NewEvaluator(ResourceViolations)
	noPerm := identityWith("user-1")

	// List yields the empty scope, never an error.
	if scope := e.ListScope(noPerm); !scope.Empty() {
		t.Fatalf("expected empty scope, got %+v", scope)
	}
	// A direct fetch of the same collection fails loudly.
	if err := e.CanGet(noPerm, "user-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestListScopeForPermittedPrincipal(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)
	id := identityWith("user-1", PermRead(ResourceDocuments))

	scope := e.ListScope(id)
	if scope.All || scope.CreatedBy != "user-1" {
		t.Fatalf("expected own-rows scope, got %+v", scope)
	}
}

func TestMissingCreatorMeansNotOwned(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)
	id := identityWith("user-1",
		PermRead(ResourceDocuments), PermUpdate(ResourceDocuments), PermDelete(ResourceDocuments))

	if err := e.CanGet(id, ""); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ownerless get: expected ErrAccessDenied, got %v", err)
	}
	if err := e.CanDelete(id, ""); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ownerless delete: expected ErrAccessDenied, got %v", err)
	}
}

func TestAnonymousDeniedEverywhere(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)
	anon := Anonymous()

	if scope := e.ListScope(anon); !scope.Empty() {
		t.Fatalf("expected empty scope for anonymous, got %+v", scope)
	}
	if err := e.CanCreate(anon); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("anonymous create: expected ErrAccessDenied, got %v", err)
	}
	if err := e.CanGet(anon, "user-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("anonymous get: expected ErrAccessDenied, got %v", err)
	}
}

func TestSameInputsSameDecision(t *testing.T) {
	e := NewEvaluator(ResourceDocuments)
	id := identityWith("user-1", PermRead(ResourceDocuments))

	first := e.CanGet(id, "user-1")
	for i := 0; i < 10; i++ {
		if got := e.CanGet(id, "user-1"); !errors.Is(got, first) && got != first {
			t.Fatalf("decision changed between calls: %v vs %v", first, got)
		}
	}
}
