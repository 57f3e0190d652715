package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/resource"
)

var (
	_ resource.Store[*Document]  = (*PGDocuments)(nil)
	_ resource.Store[*Violation] = (*PGViolations)(nil)
)

// PGDocuments persists documents in PostgreSQL.
type PGDocuments struct{ db *sql.DB }

func NewPGDocuments(db *sql.DB) *PGDocuments { return &PGDocuments{db: db} }

const documentColumns = `id, organization_id, name, doc_type, tags, content_hash,
	storage_url, version, created_by, updated_by, deleted_by,
	created_at, updated_at, deleted_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var (
		d         Document
		orgID     sql.NullString
		docType   sql.NullString
		tags      []byte
		hash      sql.NullString
		url       sql.NullString
		createdBy sql.NullString
		updatedBy sql.NullString
		deletedBy sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&d.ID, &orgID, &d.Name, &docType, &tags, &hash,
		&url, &d.Version, &createdBy, &updatedBy, &deletedBy,
		&d.CreatedAt, &d.UpdatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	d.OrganizationID = orgID.String
	d.Type = docType.String
	d.ContentHash = hash.String
	d.StorageURL = url.String
	d.CreatedBy = createdBy.String
	d.UpdatedBy = updatedBy.String
	d.DeletedBy = deletedBy.String
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &d.Tags)
	}
	return &d, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *PGDocuments) Create(ctx context.Context, d *Document) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Version == 0 {
		d.Version = 1
	}
	tags, _ := json.Marshal(d.Tags)
	_, err := s.db.ExecContext(ctx,
		`insert into documents(id, organization_id, name, doc_type, tags, content_hash,
			storage_url, version, created_by, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, nullStr(d.OrganizationID), d.Name, nullStr(d.Type), tags, nullStr(d.ContentHash),
		nullStr(d.StorageURL), d.Version, nullStr(d.CreatedBy), d.CreatedAt, d.UpdatedAt)
	return err
}

func (s *PGDocuments) Find(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+documentColumns+` from documents where id=$1 and deleted_at is null`, id)
	return scanDocument(row)
}

func (s *PGDocuments) List(ctx context.Context, scope auth.ListScope) ([]*Document, error) {
	if scope.Empty() {
		return []*Document{}, nil
	}
	query := `select ` + documentColumns + ` from documents where deleted_at is null`
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

	res := []*Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *PGDocuments) Update(ctx context.Context, d *Document) error {
	d.UpdatedAt = time.Now().UTC()
	tags, _ := json.Marshal(d.Tags)
	res, err := s.db.ExecContext(ctx,
		`update documents set name=$2, doc_type=$3, tags=$4, content_hash=$5,
			storage_url=$6, version=$7, updated_by=$8, deleted_by=$9,
			deleted_at=$10, updated_at=$11
		 where id=$1 and deleted_at is null`,
		d.ID, d.Name, nullStr(d.Type), tags, nullStr(d.ContentHash),
		nullStr(d.StorageURL), d.Version, nullStr(d.UpdatedBy), nullStr(d.DeletedBy),
		d.DeletedAt, d.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// PGViolations persists violations in PostgreSQL.
type PGViolations struct{ db *sql.DB }

func NewPGViolations(db *sql.DB) *PGViolations { return &PGViolations{db: db} }

const violationColumns = `id, organization_id, rule_id, severity, status, description,
	created_by, updated_by, deleted_by, created_at, updated_at, deleted_at`

func scanViolation(row interface{ Scan(...any) error }) (*Violation, error) {
	var (
		v         Violation
		orgID     sql.NullString
		desc      sql.NullString
		createdBy sql.NullString
		updatedBy sql.NullString
		deletedBy sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &orgID, &v.RuleID, &v.Severity, &v.Status, &desc,
		&createdBy, &updatedBy, &deletedBy, &v.CreatedAt, &v.UpdatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	v.OrganizationID = orgID.String
	v.Description = desc.String
	v.CreatedBy = createdBy.String
	v.UpdatedBy = updatedBy.String
	v.DeletedBy = deletedBy.String
	if deletedAt.Valid {
		t := deletedAt.Time
		v.DeletedAt = &t
	}
	return &v, nil
}

func (s *PGViolations) Create(ctx context.Context, v *Violation) error {
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.Status == "" {
		v.Status = ViolationOpen
	}
	_, err := s.db.ExecContext(ctx,
		`insert into violations(id, organization_id, rule_id, severity, status,
			description, created_by, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, nullStr(v.OrganizationID), v.RuleID, v.Severity, v.Status,
		nullStr(v.Description), nullStr(v.CreatedBy), v.CreatedAt, v.UpdatedAt)
	return err
}

func (s *PGViolations) Find(ctx context.Context, id string) (*Violation, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+violationColumns+` from violations where id=$1 and deleted_at is null`, id)
	return scanViolation(row)
}

func (s *PGViolations) List(ctx context.Context, scope auth.ListScope) ([]*Violation, error) {
	if scope.Empty() {
		return []*Violation{}, nil
	}
	query := `select ` + violationColumns + ` from violations where deleted_at is null`
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

	res := []*Violation{}
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (s *PGViolations) Update(ctx context.Context, v *Violation) error {
	v.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`update violations set rule_id=$2, severity=$3, status=$4, description=$5,
			updated_by=$6, deleted_by=$7, deleted_at=$8, updated_at=$9
		 where id=$1 and deleted_at is null`,
		v.ID, v.RuleID, v.Severity, v.Status, nullStr(v.Description),
		nullStr(v.UpdatedBy), nullStr(v.DeletedBy), v.DeletedAt, v.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
