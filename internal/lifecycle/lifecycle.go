// Package lifecycle carries the audit fields shared by every stored
// record and the stamping rules for them. Records are never physically
// removed: delete marks deleted_by/deleted_at and every default read
// path excludes marked rows.
package lifecycle

import (
	"strings"
	"time"
)

// Meta is embedded in every auditable record.
type Meta struct {
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the record has been soft-deleted.
func (m *Meta) Deleted() bool {
	return m.DeletedAt != nil
}

// StampCreate records the creating actor. created_at/updated_at belong
// to the storage layer and are not written here.
func StampCreate(m *Meta, actorID string) {
	m.CreatedBy = strings.TrimSpace(actorID)
}

// StampUpdate records the updating actor; created_by is never touched.
func StampUpdate(m *Meta, actorID string) {
	m.UpdatedBy = strings.TrimSpace(actorID)
}

// StampDelete marks the record deleted. deleted_by and deleted_at are
// always written together; nothing else ever writes them.
func StampDelete(m *Meta, actorID string, now time.Time) {
	at := now.UTC()
	m.DeletedBy = strings.TrimSpace(actorID)
	m.DeletedAt = &at
}
