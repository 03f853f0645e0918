package domain

import "time"

// AuditLog represents one remote mutation performed while provisioning a customer.
type AuditLog struct {
	ID         string
	CustomerID string
	RunID      string
	Action     string
	Resource   string
	ItemID     int64 // remote item id affected; 0 when not applicable
	Metadata   string
	CreatedAt  time.Time
}
