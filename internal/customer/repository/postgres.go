package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleet-provisioning/internal/customer/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a customer repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const getCustomer = `
SELECT id, super_user_id, end_user_id, account_id, plan, provisioned_at, created_at, updated_at
FROM customers WHERE id = $1`

const listCustomerUnits = `
SELECT unit_id, external_id FROM customer_units WHERE customer_id = $1 ORDER BY attached_at, unit_id`

const upsertCustomer = `
INSERT INTO customers (id, super_user_id, end_user_id, account_id, plan, provisioned_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (id) DO UPDATE SET
    super_user_id  = EXCLUDED.super_user_id,
    end_user_id    = EXCLUDED.end_user_id,
    account_id     = EXCLUDED.account_id,
    plan           = EXCLUDED.plan,
    provisioned_at = EXCLUDED.provisioned_at,
    updated_at     = EXCLUDED.updated_at`

const insertCustomerUnit = `
INSERT INTO customer_units (customer_id, unit_id, external_id, attached_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (customer_id, unit_id) DO NOTHING`

// GetByID returns the customer for id with its units, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var (
		c                           domain.Customer
		superUser, endUser, account sql.NullInt64
		provisionedAt               sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, getCustomer, id).Scan(
		&c.ID, &superUser, &endUser, &account, &c.Plan, &provisionedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.SuperUserID = superUser.Int64
	c.EndUserID = endUser.Int64
	c.AccountID = account.Int64
	if provisionedAt.Valid {
		t := provisionedAt.Time
		c.ProvisionedAt = &t
	}

	rows, err := r.db.QueryContext(ctx, listCustomerUnits, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.UnitID, &u.ExternalID); err != nil {
			return nil, err
		}
		c.Units = append(c.Units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordProvisioning validates c and upserts it with its units. UpdatedAt is set to now.
func (r *PostgresRepository) RecordProvisioning(ctx context.Context, c *domain.Customer) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var provisionedAt sql.NullTime
	if c.ProvisionedAt != nil {
		provisionedAt = sql.NullTime{Time: *c.ProvisionedAt, Valid: true}
	}
	if _, err = tx.ExecContext(ctx, upsertCustomer,
		c.ID, c.SuperUserID, c.EndUserID, c.AccountID, c.Plan, provisionedAt, now,
	); err != nil {
		return fmt.Errorf("upsert customer %s: %w", c.ID, err)
	}
	for _, u := range c.Units {
		if _, err = tx.ExecContext(ctx, insertCustomerUnit, c.ID, u.UnitID, u.ExternalID, now); err != nil {
			return fmt.Errorf("attach unit %d to customer %s: %w", u.UnitID, c.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}
