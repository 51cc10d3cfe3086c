package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"suvidha/internal/complaint/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
	txcontext "suvidha/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists complaints in the complaints table, with the embedded
// transfer history in a jsonb column.
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

func (s *Postgres) Create(ctx context.Context, c *models.Complaint) error {
	history, err := json.Marshal(c.TransferHistory)
	if err != nil {
		return fmt.Errorf("marshal transfer history: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO complaints
			(number, subject, description, citizen_contact, department,
			 sub_department, status, assigned_officer, transfer_history,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.Number, c.Subject, c.Description, c.CitizenContact, c.Department,
		nullable(string(c.SubDepartment)), string(c.Status),
		nullable(string(c.AssignedOfficer)), history, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

func (s *Postgres) FindByNumber(ctx context.Context, number domain.ComplaintNumber) (*models.Complaint, error) {
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx,
		selectComplaint+` WHERE number = $1`, number))
}

func (s *Postgres) Update(ctx context.Context, c *models.Complaint) error {
	history, err := json.Marshal(c.TransferHistory)
	if err != nil {
		return fmt.Errorf("marshal transfer history: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE complaints SET
			subject = $2, description = $3, citizen_contact = $4, department = $5,
			sub_department = $6, status = $7, assigned_officer = $8,
			transfer_history = $9, updated_at = $10
		WHERE number = $1`,
		c.Number, c.Subject, c.Description, c.CitizenContact, c.Department,
		nullable(string(c.SubDepartment)), string(c.Status),
		nullable(string(c.AssignedOfficer)), history, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListAssigned(ctx context.Context) ([]*models.Complaint, error) {
	return s.list(ctx, selectComplaint+` WHERE assigned_officer IS NOT NULL ORDER BY number`)
}

func (s *Postgres) list(ctx context.Context, query string) ([]*models.Complaint, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []*models.Complaint
	for rows.Next() {
		c, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const selectComplaint = `
	SELECT number, subject, description, citizen_contact, department,
	       sub_department, status, assigned_officer, transfer_history,
	       created_at, updated_at
	FROM complaints`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Complaint, error) {
	c, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func (s *Postgres) scanRow(row rowScanner) (*models.Complaint, error) {
	var (
		c        models.Complaint
		sub      sql.NullString
		status   string
		assigned sql.NullString
		history  []byte
	)
	err := row.Scan(&c.Number, &c.Subject, &c.Description, &c.CitizenContact,
		&c.Department, &sub, &status, &assigned, &history, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SubDepartment = domain.SubDepartmentID(sub.String)
	c.Status = models.Status(status)
	c.AssignedOfficer = domain.OfficerCode(assigned.String)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &c.TransferHistory); err != nil {
			return nil, fmt.Errorf("decode transfer history: %w", err)
		}
	}
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
