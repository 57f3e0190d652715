package auth

// ListScope tells a storage layer which slice of a collection the caller
// may see. The empty scope means no rows at all; lists under it succeed
// with an empty result rather than failing.
type ListScope struct {
	// All grants unrestricted visibility within the collection.
	All bool
	// CreatedBy restricts visibility to rows created by this principal.
	CreatedBy string
}

// Empty reports whether the scope admits no rows.
func (s ListScope) Empty() bool { return !s.All && s.CreatedBy == "" }

// ScopeAll is the unrestricted scope.
func ScopeAll() ListScope { return ListScope{All: true} }

// ScopeCreatedBy limits visibility to one principal's own rows.
func ScopeCreatedBy(principalID string) ListScope {
	return ListScope{CreatedBy: principalID}
}

// Evaluator decides access for one resource collection. It is pure:
// decisions depend only on the identity and record fields passed in, so
// the same inputs always yield the same answer.
//
// The rule for reads and writes on a single record is permission AND
// ownership, with two bypasses: the admin role name skips everything,
// and creation needs only the permission since no record exists yet.
// List visibility degrades instead of failing: see ListScope.
type Evaluator struct {
	resource   string
	readPerm   string
	createPerm string
	updatePerm string
	deletePerm string
}

// NewEvaluator builds the evaluator for a resource key such as
// ResourceDocuments.
func NewEvaluator(resource string) *Evaluator {
	return &Evaluator{
		resource:   resource,
		readPerm:   PermRead(resource),
		createPerm: PermCreate(resource),
		updatePerm: PermUpdate(resource),
		deletePerm: PermDelete(resource),
	}
}

// Resource returns the resource key this evaluator guards.
func (e *Evaluator) Resource() string { return e.resource }

// ListScope computes the visibility window for a list request. Admins
// see everything; a principal holding the read permission sees its own
// rows; everyone else gets the empty scope, never an error.
func (e *Evaluator) ListScope(id Identity) ListScope {
	if id.IsAdmin {
		return ScopeAll()
	}
	if id.Authenticated() && id.HasPermission(e.readPerm) {
		return ScopeCreatedBy(id.PrincipalID)
	}
	return ListScope{}
}

// CanGet checks a direct fetch of one record. Unlike lists, a failed
// check is a loud ErrAccessDenied. A record with a missing or malformed
// creator field is owned by nobody, so only admins reach it.
func (e *Evaluator) CanGet(id Identity, createdBy string) error {
	return e.check(id, e.readPerm, createdBy)
}

// CanCreate checks record creation; only the permission applies.
func (e *Evaluator) CanCreate(id Identity) error {
	if id.IsAdmin {
		return nil
	}
	if id.Authenticated() && id.HasPermission(e.createPerm) {
		return nil
	}
	return ErrAccessDenied
}

// CanUpdate checks mutation of an existing record.
func (e *Evaluator) CanUpdate(id Identity, createdBy string) error {
	return e.check(id, e.updatePerm, createdBy)
}

// CanDelete checks soft deletion of an existing record.
func (e *Evaluator) CanDelete(id Identity, createdBy string) error {
	return e.check(id, e.deletePerm, createdBy)
}

func (e *Evaluator) check(id Identity, perm, createdBy string) error {
	if id.IsAdmin {
		return nil
	}
	if !id.Authenticated() || !id.HasPermission(perm) {
		return ErrAccessDenied
	}
	if createdBy == "" || createdBy != id.PrincipalID {
		return ErrAccessDenied
	}
	return nil
}
