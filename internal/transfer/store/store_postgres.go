package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
	txcontext "suvidha/pkg/platform/tx"
)

const uniqueViolation = "23505"

// pendingPerComplaintIndex backs the single-pending invariant: a partial
// unique index on complaint_number WHERE status = 'PENDING'.
const pendingPerComplaintIndex = "transfers_pending_per_complaint"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// PostgresTransfers persists transfer records in the transfers table.
type PostgresTransfers struct {
	db *sql.DB
}

func NewPostgresTransfers(db *sql.DB) *PostgresTransfers {
	return &PostgresTransfers{db: db}
}

func (s *PostgresTransfers) Create(ctx context.Context, t *models.Transfer) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transfers
			(id, complaint_number, from_department, from_sub_department,
			 to_department, to_sub_department, type, reason, notes,
			 initiated_by, initiator_role, status, resolved_by, resolved_at,
			 rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.ID, t.ComplaintNumber, t.FromDepartment, nullable(string(t.FromSubDepartment)),
		t.ToDepartment, nullable(string(t.ToSubDepartment)), string(t.Type), string(t.Reason),
		t.Notes, t.InitiatedBy, string(t.InitiatorRole), string(t.Status),
		nullable(t.ResolvedBy), t.ResolvedAt, nullable(t.RejectionReason),
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == pendingPerComplaintIndex {
				return sentinel.ErrConflict
			}
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *PostgresTransfers) FindByID(ctx context.Context, id domain.TransferID) (*models.Transfer, error) {
	return scanOneTransfer(execer(ctx, s.db).QueryRowContext(ctx,
		selectTransfer+` WHERE id = $1`, id))
}

// Execute runs validate-then-mutate against a row locked with FOR UPDATE.
// Callers must invoke it inside a transaction for the lock to be meaningful.
func (s *PostgresTransfers) Execute(ctx context.Context, id domain.TransferID, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error) {
	t, err := scanOneTransfer(execer(ctx, s.db).QueryRowContext(ctx,
		selectTransfer+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	res, err := execer(ctx, s.db).ExecContext(ctx, `
		UPDATE transfers SET
			status = $2, resolved_by = $3, resolved_at = $4,
			rejection_reason = $5, updated_at = $6
		WHERE id = $1`,
		t.ID, string(t.Status), nullable(t.ResolvedBy), t.ResolvedAt,
		nullable(t.RejectionReason), t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update transfer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *PostgresTransfers) PendingByComplaint(ctx context.Context, number domain.ComplaintNumber) (*models.Transfer, error) {
	return scanOneTransfer(execer(ctx, s.db).QueryRowContext(ctx,
		selectTransfer+` WHERE complaint_number = $1 AND status = 'PENDING'`, number))
}

func (s *PostgresTransfers) PendingByDepartment(ctx context.Context, dept domain.DepartmentID) ([]*models.Transfer, error) {
	return s.list(ctx,
		selectTransfer+` WHERE to_department = $1 AND status = 'PENDING' ORDER BY created_at`, dept)
}

func (s *PostgresTransfers) HistoryByComplaint(ctx context.Context, number domain.ComplaintNumber) ([]*models.Transfer, error) {
	return s.list(ctx,
		selectTransfer+` WHERE complaint_number = $1 ORDER BY created_at DESC`, number)
}

func (s *PostgresTransfers) ListByDepartmentAndRange(ctx context.Context, dept domain.DepartmentID, from, to time.Time) ([]*models.Transfer, error) {
	return s.list(ctx, selectTransfer+`
		WHERE (from_department = $1 OR to_department = $1)
		  AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`, dept, from, to)
}

func (s *PostgresTransfers) list(ctx context.Context, query string, args ...any) ([]*models.Transfer, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []*models.Transfer
	for rows.Next() {
		t, err := scanTransferRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const selectTransfer = `
	SELECT id, complaint_number, from_department, from_sub_department,
	       to_department, to_sub_department, type, reason, notes,
	       initiated_by, initiator_role, status, resolved_by, resolved_at,
	       rejection_reason, created_at, updated_at
	FROM transfers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOneTransfer(row *sql.Row) (*models.Transfer, error) {
	t, err := scanTransferRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return t, err
}

func scanTransferRow(row rowScanner) (*models.Transfer, error) {
	var (
		t          models.Transfer
		fromSub    sql.NullString
		toSub      sql.NullString
		typ        string
		reason     string
		role       string
		status     string
		resolvedBy sql.NullString
		rejection  sql.NullString
	)
	err := row.Scan(&t.ID, &t.ComplaintNumber, &t.FromDepartment, &fromSub,
		&t.ToDepartment, &toSub, &typ, &reason, &t.Notes,
		&t.InitiatedBy, &role, &status, &resolvedBy, &t.ResolvedAt,
		&rejection, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.FromSubDepartment = domain.SubDepartmentID(fromSub.String)
	t.ToSubDepartment = domain.SubDepartmentID(toSub.String)
	t.Type = models.Type(typ)
	t.Reason = models.Reason(reason)
	t.InitiatorRole = domain.Role(role)
	t.Status = models.Status(status)
	t.ResolvedBy = resolvedBy.String
	t.RejectionReason = rejection.String
	return &t, nil
}

// PostgresConnections persists department connections, keyed by the sorted
// department pair.
type PostgresConnections struct {
	db *sql.DB
}

func NewPostgresConnections(db *sql.DB) *PostgresConnections {
	return &PostgresConnections{db: db}
}

func (s *PostgresConnections) Get(ctx context.Context, a, b domain.DepartmentID) (*models.Connection, error) {
	a, b = models.PairKey(a, b)
	c, err := scanConnectionRow(execer(ctx, s.db).QueryRowContext(ctx,
		selectConnection+` WHERE department_a = $1 AND department_b = $2`, a, b))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func (s *PostgresConnections) Create(ctx context.Context, c *models.Connection) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO department_connections
			(department_a, department_b, transfer_enabled, established_by,
			 active, transfer_count, last_transfer_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.DepartmentA, c.DepartmentB, c.TransferEnabled, c.EstablishedBy,
		c.Active, c.TransferCount, c.LastTransferAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}

func (s *PostgresConnections) Update(ctx context.Context, c *models.Connection) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `
		UPDATE department_connections SET
			transfer_enabled = $3, active = $4, transfer_count = $5,
			last_transfer_at = $6, updated_at = $7
		WHERE department_a = $1 AND department_b = $2`,
		c.DepartmentA, c.DepartmentB, c.TransferEnabled, c.Active,
		c.TransferCount, c.LastTransferAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresConnections) List(ctx context.Context) ([]*models.Connection, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		selectConnection+` ORDER BY department_a, department_b`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var out []*models.Connection
	for rows.Next() {
		c, err := scanConnectionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const selectConnection = `
	SELECT department_a, department_b, transfer_enabled, established_by,
	       active, transfer_count, last_transfer_at, created_at, updated_at
	FROM department_connections`

func scanConnectionRow(row rowScanner) (*models.Connection, error) {
	var c models.Connection
	err := row.Scan(&c.DepartmentA, &c.DepartmentB, &c.TransferEnabled,
		&c.EstablishedBy, &c.Active, &c.TransferCount,
		&c.LastTransferAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
