package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "email", "full_name", "password_hash", "status",
		"role_id", "last_login_at", "created_by", "updated_by", "deleted_by",
		"created_at", "updated_at", "deleted_at",
	})
}

func TestPGFindUserExcludesDeleted(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`from users where id=\$1 and deleted_at is null`).
		WithArgs("user-1").
		WillReturnError(errNoRows())

	if _, err := store.Users().Find(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGFindUserScansLifecycleFields(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`from users where id=\$1 and deleted_at is null`).
		WithArgs("user-1").
		WillReturnRows(userRows().AddRow(
			"user-1", "org-1", "a@example.com", "Ada", "hash", UserStatusActive,
			"role-1", nil, "creator-1", nil, nil, now, now, nil,
		))

	u, err := store.Users().Find(ctx, "user-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.RoleID != "role-1" || u.CreatedBy != "creator-1" || u.Deleted() {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestPGListEmptyScopeSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	users, err := store.Users().List(context.Background(), ListScope{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(users))
	}
	// No SQL was expected and none must have run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGListScopedByCreator(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`and created_by=\$1`).
		WithArgs("user-1").
		WillReturnRows(userRows().AddRow(
			"u-2", nil, "b@example.com", nil, "hash", UserStatusActive,
			nil, nil, "user-1", nil, nil, now, now, nil,
		))

	users, err := store.Users().List(context.Background(), ScopeCreatedBy("user-1"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 1 || users[0].CreatedBy != "user-1" {
		t.Fatalf("unexpected result: %+v", users)
	}
}

func TestPGRevokeOnConflictDoesNothing(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(time.Hour).UTC()

	mock.ExpectExec(`insert into revoked_tokens`).
		WithArgs("digest-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into revoked_tokens`).
		WithArgs("digest-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := store.Revocations().Revoke(ctx, "digest-1", expires); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Revocations().Revoke(ctx, "digest-1", expires); err != nil {
		t.Fatalf("repeat Revoke: %v", err)
	}
}

func TestPGIsRevoked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select exists`).
		WithArgs("digest-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	revoked, err := store.Revocations().IsRevoked(context.Background(), "digest-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoked")
	}
}

func TestPGPurgeExpiredReportsCount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`delete from revoked_tokens where expires_at`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Revocations().PurgeExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 purged, got %d", n)
	}
}

func TestPGUpdateMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update users set`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Users().Update(context.Background(), &User{ID: "ghost", Email: "g@example.com"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func errNoRows() error { return sql.ErrNoRows }
