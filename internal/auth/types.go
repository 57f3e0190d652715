package auth

import (
	"time"

	"finsense.io/compliance/internal/lifecycle"
)

// AdminRoleName is the reserved role name that bypasses ownership and
// permission checks. Admin status is derived from string equality with
// this literal; there is no separate flag.
const AdminRoleName = "Admin"

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusInvited   = "invited"
)

// User is a principal. It is itself an auditable resource: users own
// records across every collection via created_by, and user records
// carry the same lifecycle fields as everything else.
type User struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	PasswordHash   string     `json:"-"`
	Status         string     `json:"status"`
	RoleID         string     `json:"role_id,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`

	lifecycle.Meta
}

// Role groups permissions. Membership is resolved fresh on every
// request, so edits take effect on the next request.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is an open, database-driven string such as READ_DOCUMENTS.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RevokedToken records an explicitly invalidated token until its natural
// expiry, after which the entry may be purged. The token value is stored
// as a SHA-256 digest.
type RevokedToken struct {
	TokenDigest string    `json:"token_digest"`
	ExpiresAt   time.Time `json:"expires_at"`
	RevokedAt   time.Time `json:"revoked_at"`
}

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID           string            `json:"id"`
	OccurredAt   time.Time         `json:"occurred_at"`
	ActorID      string            `json:"actor_id,omitempty"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
}
