// Package compliance holds the governed collections: documents under
// retention control and rule violations raised against them.
package compliance

import (
	"finsense.io/compliance/internal/lifecycle"
)

// Document is a tracked compliance artifact.
type Document struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Name           string   `json:"name"`
	Type           string   `json:"type,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ContentHash    string   `json:"content_hash,omitempty"`
	StorageURL     string   `json:"storage_url,omitempty"`
	Version        int      `json:"version"`

	lifecycle.Meta
}

func (d *Document) RecordID() string           { return d.ID }
func (d *Document) Lifecycle() *lifecycle.Meta { return &d.Meta }

// CloneDocument deep-copies a document for the in-memory store.
func CloneDocument(d *Document) *Document {
	cp := *d
	cp.Tags = append([]string(nil), d.Tags...)
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// Violation severities and statuses. Open sets; these are the values
// the service itself writes.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"

	ViolationOpen     = "open"
	ViolationResolved = "resolved"
	ViolationWaived   = "waived"
)

// Violation is a rule breach raised against an organization.
type Violation struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id,omitempty"`
	RuleID         string `json:"rule_id"`
	Severity       string `json:"severity"`
	Status         string `json:"status"`
	Description    string `json:"description,omitempty"`

	lifecycle.Meta
}

func (v *Violation) RecordID() string           { return v.ID }
func (v *Violation) Lifecycle() *lifecycle.Meta { return &v.Meta }

// CloneViolation deep-copies a violation for the in-memory store.
func CloneViolation(v *Violation) *Violation {
	cp := *v
	if v.DeletedAt != nil {
		t := *v.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}
