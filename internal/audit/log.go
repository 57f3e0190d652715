// Package audit emits structured security events. Every privileged
// mutation and every denied access produces one JSON line carrying the
// acting principal and the request correlation id.
package audit

import (
	"context"
	"time"

	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/obs"
)

type requestIDKey struct{}

// WithRequestID attaches a correlation id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id attached to the context, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Event names used across the service.
const (
	EventLogin         = "auth.login"
	EventLoginFailed   = "auth.login_failed"
	EventLogout        = "auth.logout"
	EventTokenRejected = "auth.token_rejected"
	EventAccessDenied  = "authz.denied"
	EventCreate        = "resource.create"
	EventUpdate        = "resource.update"
	EventDelete        = "resource.delete"
)

// LogEvent writes one structured audit line. The actor is taken from
// the identity on the context; anonymous callers log without one.
func LogEvent(ctx context.Context, event string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "info",
		"kind":  "audit",
		"event": event,
	}
	if id := auth.IdentityFromContext(ctx); id.Authenticated() {
		entry["actor_id"] = id.PrincipalID
	}
	if rid := RequestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	for k, v := range fields {
		entry[k] = v
	}
	obs.LogRequest(entry)
}

// Entry assembles a persistent audit row from the context plus the
// given action, mirroring what LogEvent emits to the log stream.
func Entry(ctx context.Context, action, resourceType, resourceID string, meta map[string]string) *auth.AuditEntry {
	e := &auth.AuditEntry{
		OccurredAt:   time.Now().UTC(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		RequestID:    RequestID(ctx),
	}
	if id := auth.IdentityFromContext(ctx); id.Authenticated() {
		e.ActorID = id.PrincipalID
	}
	return e
}
