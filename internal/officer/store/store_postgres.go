package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"suvidha/internal/officer/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
	txcontext "suvidha/pkg/platform/tx"
)

// uniqueViolation is the postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres persists officers in the officers table. The embedded assignment
// history lives in a jsonb column; it is only ever read and written whole,
// together with its officer.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, o *models.Officer) error {
	history, err := json.Marshal(o.History)
	if err != nil {
		return fmt.Errorf("marshal officer history: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO officers
			(code, name, contact, password_hash, temporary_password, role,
			 department, sub_department, active, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.Code, o.Name, o.Contact, o.PasswordHash, o.TemporaryPassword, string(o.Role),
		nullable(string(o.Department)), nullable(string(o.SubDepartment)), o.Active,
		history, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create officer: %w", err)
	}
	return nil
}

func (s *Postgres) FindByCode(ctx context.Context, code domain.OfficerCode) (*models.Officer, error) {
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx,
		selectOfficer+` WHERE code = $1`, code))
}

func (s *Postgres) Update(ctx context.Context, o *models.Officer) error {
	history, err := json.Marshal(o.History)
	if err != nil {
		return fmt.Errorf("marshal officer history: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE officers SET
			name = $2, contact = $3, password_hash = $4, temporary_password = $5,
			department = $6, sub_department = $7, active = $8, history = $9, updated_at = $10
		WHERE code = $1`,
		o.Code, o.Name, o.Contact, o.PasswordHash, o.TemporaryPassword,
		nullable(string(o.Department)), nullable(string(o.SubDepartment)), o.Active,
		history, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update officer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, code domain.OfficerCode) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM officers WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete officer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// MaxCodeForPrefix returns the greatest existing code for a prefix. Two
// concurrent creations can read the same maximum; the primary key on code
// makes the loser fail with a unique violation, which the service surfaces as
// a retryable conflict.
func (s *Postgres) MaxCodeForPrefix(ctx context.Context, prefix string) (domain.OfficerCode, error) {
	var code sql.NullString
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT max(code) FROM officers WHERE code LIKE $1 || '%'`, prefix).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("max officer code: %w", err)
	}
	return domain.OfficerCode(code.String), nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Officer, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectOfficer+` ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	defer rows.Close()

	var out []*models.Officer
	for rows.Next() {
		o, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Execute runs validate-then-mutate against a row locked with FOR UPDATE.
// Callers must invoke it inside a transaction for the lock to be meaningful.
func (s *Postgres) Execute(ctx context.Context, code domain.OfficerCode, validate func(*models.Officer) error, mutate func(*models.Officer)) (*models.Officer, error) {
	o, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx,
		selectOfficer+` WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		return nil, err
	}
	if err := validate(o); err != nil {
		return nil, err
	}
	mutate(o)
	if err := s.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

const selectOfficer = `
	SELECT code, name, contact, password_hash, temporary_password, role,
	       department, sub_department, active, history, created_at, updated_at
	FROM officers`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Officer, error) {
	o, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return o, err
}

func (s *Postgres) scanRow(row rowScanner) (*models.Officer, error) {
	var (
		o       models.Officer
		dept    sql.NullString
		sub     sql.NullString
		role    string
		history []byte
	)
	err := row.Scan(&o.Code, &o.Name, &o.Contact, &o.PasswordHash, &o.TemporaryPassword,
		&role, &dept, &sub, &o.Active, &history, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Role = domain.Role(role)
	o.Department = domain.DepartmentID(dept.String)
	o.SubDepartment = domain.SubDepartmentID(sub.String)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &o.History); err != nil {
			return nil, fmt.Errorf("decode officer history: %w", err)
		}
	}
	return &o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
