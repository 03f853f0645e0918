package repository

import (
	"context"

	"fleet-provisioning/internal/customer/domain"
)

// Repository defines persistence for customer records.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// RecordProvisioning inserts or updates the customer and its attached units in one transaction.
	// Units already recorded for the customer are kept.
	RecordProvisioning(ctx context.Context, c *domain.Customer) error
}
