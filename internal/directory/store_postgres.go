package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
	txcontext "suvidha/pkg/platform/tx"
	"suvidha/pkg/requestcontext"
)

// PostgresStore persists the directory in the departments and sub_departments
// tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetDepartment(ctx context.Context, id domain.DepartmentID) (*Department, error) {
	var d Department
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetSubDepartment(ctx context.Context, id domain.SubDepartmentID) (*SubDepartment, error) {
	var sd SubDepartment
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, parent_id, name, active, created_at, updated_at
		FROM sub_departments WHERE id = $1`, id).
		Scan(&sd.ID, &sd.ParentID, &sd.Name, &sd.Active, &sd.CreatedAt, &sd.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sub-department: %w", err)
	}
	return &sd, nil
}

func (s *PostgresStore) ListDepartments(ctx context.Context) ([]*Department, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, active, created_at, updated_at FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSubDepartments(ctx context.Context) ([]*SubDepartment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, parent_id, name, active, created_at, updated_at
		FROM sub_departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sub-departments: %w", err)
	}
	defer rows.Close()

	var out []*SubDepartment
	for rows.Next() {
		var sd SubDepartment
		if err := rows.Scan(&sd.ID, &sd.ParentID, &sd.Name, &sd.Active, &sd.CreatedAt, &sd.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sub-department: %w", err)
		}
		out = append(out, &sd)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveDepartment(ctx context.Context, d *Department) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO departments (id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, active = $3, updated_at = $5`,
		d.ID, d.Name, d.Active, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save department: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSubDepartment(ctx context.Context, sd *SubDepartment) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO sub_departments (id, parent_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET parent_id = $2, name = $3, active = $4, updated_at = $6`,
		sd.ID, sd.ParentID, sd.Name, sd.Active, sd.CreatedAt, sd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save sub-department: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeactivateSubDepartment(ctx context.Context, id domain.SubDepartmentID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE sub_departments SET active = FALSE, updated_at = $2 WHERE id = $1`,
		id, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("deactivate sub-department: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
