package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"finsense.io/compliance/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL via database/sql with the
// pgx stdlib driver.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// OpenPG connects to PostgreSQL and verifies the connection.
func OpenPG(ctx context.Context, databaseURL string) (*PGStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewPGStore(db), nil
}

// DB exposes the handle for health checks and the migration runner.
func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) Users() UserStore             { return &pgUsers{db: s.db} }
func (s *PGStore) Roles() RoleStore             { return &pgRoles{db: s.db} }
func (s *PGStore) Revocations() RevocationStore { return &pgRevocations{db: s.db} }
func (s *PGStore) Audit() AuditStore            { return &pgAudit{db: s.db} }

// User store ---------------------------------------------------------------

type pgUsers struct{ db *sql.DB }

const userColumns = `id, organization_id, email, full_name, password_hash, status,
	role_id, last_login_at, created_by, updated_by, deleted_by,
	created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		orgID     sql.NullString
		fullName  sql.NullString
		roleID    sql.NullString
		lastLogin sql.NullTime
		createdBy sql.NullString
		updatedBy sql.NullString
		deletedBy sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &orgID, &u.Email, &fullName, &u.PasswordHash, &u.Status,
		&roleID, &lastLogin, &createdBy, &updatedBy, &deletedBy,
		&u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.OrganizationID = orgID.String
	u.FullName = fullName.String
	u.RoleID = roleID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	u.CreatedBy = createdBy.String
	u.UpdatedBy = updatedBy.String
	u.DeletedBy = deletedBy.String
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *pgUsers) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, organization_id, email, full_name, password_hash, status,
			role_id, created_by, created_at, updated_at)
		 values($1,$2,lower($3),$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, nullStr(u.OrganizationID), u.Email, nullStr(u.FullName), u.PasswordHash,
		u.Status, nullStr(u.RoleID), nullStr(u.CreatedBy), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgUsers) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1 and deleted_at is null`, id)
	return scanUser(row)
}

func (s *pgUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=lower($1) and deleted_at is null`, email)
	return scanUser(row)
}

func (s *pgUsers) List(ctx context.Context, scope ListScope) ([]*User, error) {
	if scope.Empty() {
		return []*User{}, nil
	}
	query := `select ` + userColumns + ` from users where deleted_at is null`
	args := []any{}
	if !scope.All {
		query += ` and created_by=$1`
		args = append(args, scope.CreatedBy)
	}
	query += ` order by created_at asc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *pgUsers) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`update users set organization_id=$2, email=lower($3), full_name=$4,
			password_hash=$5, status=$6, role_id=$7, updated_by=$8,
			deleted_by=$9, deleted_at=$10, updated_at=$11
		 where id=$1 and deleted_at is null`,
		u.ID, nullStr(u.OrganizationID), u.Email, nullStr(u.FullName), u.PasswordHash,
		u.Status, nullStr(u.RoleID), nullStr(u.UpdatedBy),
		nullStr(u.DeletedBy), u.DeletedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgUsers) TouchLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at=$2 where id=$1 and deleted_at is null`,
		id, at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Role store ---------------------------------------------------------------

type pgRoles struct{ db *sql.DB }

func (s *pgRoles) Find(ctx context.Context, id string) (*Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, coalesce(description,''), created_at, updated_at
		 from roles where id=$1`, id)
	var r Role
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *pgRoles) PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select p.id, p.name, coalesce(p.description,''), p.created_at
		 from permissions p
		 join role_permissions rp on rp.permission_id = p.id
		 where rp.role_id=$1
		 order by p.name asc`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *pgRoles) EnsurePermissions(ctx context.Context, perms []Permission) error {
	for _, p := range perms {
		id := p.ID
		if id == "" {
			id = ids.New()
		}
		_, err := s.db.ExecContext(ctx,
			`insert into permissions(id, name, description, created_at)
			 values($1,$2,$3,now())
			 on conflict (name) do nothing`,
			id, p.Name, nullStr(p.Description))
		if err != nil {
			return err
		}
	}
	return nil
}

// Revocation store ---------------------------------------------------------

type pgRevocations struct{ db *sql.DB }

func (s *pgRevocations) Revoke(ctx context.Context, digest string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`insert into revoked_tokens(token_digest, expires_at, revoked_at)
		 values($1,$2,now())
		 on conflict (token_digest) do nothing`,
		digest, expiresAt.UTC())
	return err
}

func (s *pgRevocations) IsRevoked(ctx context.Context, digest string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from revoked_tokens where token_digest=$1)`,
		digest).Scan(&exists)
	return exists, err
}

func (s *pgRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from revoked_tokens where expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Audit store --------------------------------------------------------------

type pgAudit struct{ db *sql.DB }

func (s *pgAudit) Append(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	meta, _ := json.Marshal(e.Metadata)
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, actor_id, action, resource_type,
			resource_id, metadata, request_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.OccurredAt, nullStr(e.ActorID), e.Action, e.ResourceType,
		nullStr(e.ResourceID), meta, nullStr(e.RequestID))
	return err
}

// isUniqueViolation detects the Postgres 23505 error class.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
