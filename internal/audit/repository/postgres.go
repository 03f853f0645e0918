package repository

import (
	"context"
	"database/sql"
	"errors"

	"fleet-provisioning/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const auditColumns = `id, customer_id, run_id, action, resource, item_id, metadata, created_at`

const getAuditLog = `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`

const listAuditLogsByCustomer = `SELECT ` + auditColumns + ` FROM audit_logs
WHERE customer_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

const createAuditLog = `INSERT INTO audit_logs (` + auditColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(row scanner) (*domain.AuditLog, error) {
	var (
		a    domain.AuditLog
		meta sql.NullString
	)
	if err := row.Scan(&a.ID, &a.CustomerID, &a.RunID, &a.Action, &a.Resource, &a.ItemID, &meta, &a.CreatedAt); err != nil {
		return nil, err
	}
	if meta.Valid {
		a.Metadata = meta.String
	}
	return &a, nil
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	a, err := scanAuditLog(r.db.QueryRowContext(ctx, getAuditLog, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListByCustomer returns audit logs for the given customer, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, listAuditLogsByCustomer, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, createAuditLog,
		a.ID, a.CustomerID, a.RunID, a.Action, a.Resource, a.ItemID, meta, a.CreatedAt,
	)
	return err
}
