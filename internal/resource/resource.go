// Package resource applies the uniform access policy to any auditable
// collection. Handlers talk to a Gate, never to a store directly, so
// permission checks, ownership checks, lifecycle stamps and audit events
// cannot be skipped.
package resource

import (
	"context"
	"time"

	"finsense.io/compliance/internal/audit"
	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/lifecycle"
	"finsense.io/compliance/internal/obs"
)

// Record is any persisted item carrying lifecycle metadata.
type Record interface {
	RecordID() string
	Lifecycle() *lifecycle.Meta
}

// Store persists one collection. List applies the given visibility
// scope; Find excludes soft-deleted rows and reports auth.ErrNotFound
// for them.
type Store[T Record] interface {
	Create(ctx context.Context, rec T) error
	Find(ctx context.Context, id string) (T, error)
	List(ctx context.Context, scope auth.ListScope) ([]T, error)
	Update(ctx context.Context, rec T) error
}

// Gate wraps a store with the access policy for its collection.
type Gate[T Record] struct {
	eval  *auth.Evaluator
	store Store[T]
	audit auth.AuditStore
	now   func() time.Time
}

func NewGate[T Record](resource string, store Store[T], auditStore auth.AuditStore) *Gate[T] {
	return &Gate[T]{
		eval:  auth.NewEvaluator(resource),
		store: store,
		audit: auditStore,
		now:   time.Now,
	}
}

// List returns the rows visible to the caller. Insufficient permission
// narrows the result, down to an empty slice; it never errors.
func (g *Gate[T]) List(ctx context.Context) ([]T, error) {
	id := auth.IdentityFromContext(ctx)
	scope := g.eval.ListScope(id)
	if scope.Empty() {
		obs.CountAuthDecision("list_empty")
		return []T{}, nil
	}
	obs.CountAuthDecision("allow")
	return g.store.List(ctx, scope)
}

// Get fetches one record. Unlike List, a failed check is loud: the
// caller learns it was denied, though absent and deleted records are
// indistinguishable.
func (g *Gate[T]) Get(ctx context.Context, recordID string) (T, error) {
	var zero T
	id := auth.IdentityFromContext(ctx)
	rec, err := g.store.Find(ctx, recordID)
	if err != nil {
		return zero, err
	}
	if err := g.eval.CanGet(id, rec.Lifecycle().CreatedBy); err != nil {
		g.deny(ctx, "get", recordID)
		return zero, err
	}
	obs.CountAuthDecision("allow")
	return rec, nil
}

// Create stores a new record owned by the caller.
func (g *Gate[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	id := auth.IdentityFromContext(ctx)
	if err := g.eval.CanCreate(id); err != nil {
		g.deny(ctx, "create", "")
		return zero, err
	}
	lifecycle.StampCreate(rec.Lifecycle(), id.PrincipalID)
	if err := g.store.Create(ctx, rec); err != nil {
		return zero, err
	}
	g.record(ctx, audit.EventCreate, rec.RecordID())
	return rec, nil
}

// Update loads the record, checks access, applies the mutation and
// persists. The apply callback sees the current stored state.
func (g *Gate[T]) Update(ctx context.Context, recordID string, apply func(T) error) (T, error) {
	var zero T
	id := auth.IdentityFromContext(ctx)
	rec, err := g.store.Find(ctx, recordID)
	if err != nil {
		return zero, err
	}
	if err := g.eval.CanUpdate(id, rec.Lifecycle().CreatedBy); err != nil {
		g.deny(ctx, "update", recordID)
		return zero, err
	}
	if err := apply(rec); err != nil {
		return zero, err
	}
	lifecycle.StampUpdate(rec.Lifecycle(), id.PrincipalID)
	if err := g.store.Update(ctx, rec); err != nil {
		return zero, err
	}
	g.record(ctx, audit.EventUpdate, recordID)
	return rec, nil
}

// Delete soft-deletes the record. The row stays in storage; every
// default read path excludes it from then on, for admins too.
func (g *Gate[T]) Delete(ctx context.Context, recordID string) error {
	id := auth.IdentityFromContext(ctx)
	rec, err := g.store.Find(ctx, recordID)
	if err != nil {
		return err
	}
	if err := g.eval.CanDelete(id, rec.Lifecycle().CreatedBy); err != nil {
		g.deny(ctx, "delete", recordID)
		return err
	}
	lifecycle.StampDelete(rec.Lifecycle(), id.PrincipalID, g.now())
	if err := g.store.Update(ctx, rec); err != nil {
		return err
	}
	g.record(ctx, audit.EventDelete, recordID)
	return nil
}

func (g *Gate[T]) deny(ctx context.Context, op, recordID string) {
	obs.CountAuthDecision("deny")
	audit.LogEvent(ctx, audit.EventAccessDenied, map[string]any{
		"resource": g.eval.Resource(),
		"op":       op,
		"id":       recordID,
	})
	if g.audit != nil {
		_ = g.audit.Append(ctx, audit.Entry(ctx, audit.EventAccessDenied,
			g.eval.Resource(), recordID, map[string]string{"op": op}))
	}
}

func (g *Gate[T]) record(ctx context.Context, event, recordID string) {
	audit.LogEvent(ctx, event, map[string]any{
		"resource": g.eval.Resource(),
		"id":       recordID,
	})
	if g.audit != nil {
		_ = g.audit.Append(ctx, audit.Entry(ctx, event, g.eval.Resource(), recordID, nil))
	}
}
