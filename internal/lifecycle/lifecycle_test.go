package lifecycle

import (
	"testing"
	"time"
)

func TestStampCreateSetsOnlyCreator(t *testing.T) {
	var m Meta
	StampCreate(&m, " user-1 ")

	if m.CreatedBy != "user-1" {
		t.Fatalf("unexpected created_by: %q", m.CreatedBy)
	}
	if m.UpdatedBy != "" || m.DeletedBy != "" || m.DeletedAt != nil {
		t.Fatalf("create stamp touched other fields: %+v", m)
	}
}

func TestStampUpdateNeverTouchesCreator(t *testing.T) {
	m := Meta{CreatedBy: "owner"}
	StampUpdate(&m, "editor")

	if m.CreatedBy != "owner" {
		t.Fatalf("created_by changed: %q", m.CreatedBy)
	}
	if m.UpdatedBy != "editor" {
		t.Fatalf("unexpected updated_by: %q", m.UpdatedBy)
	}
}

func TestStampDeleteWritesBothFieldsTogether(t *testing.T) {
	var m Meta
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	StampDelete(&m, "actor", now)

	if !m.Deleted() {
		t.Fatalf("expected record marked deleted")
	}
	if m.DeletedBy != "actor" {
		t.Fatalf("unexpected deleted_by: %q", m.DeletedBy)
	}
	if m.DeletedAt == nil || !m.DeletedAt.Equal(now) {
		t.Fatalf("unexpected deleted_at: %v", m.DeletedAt)
	}
}
