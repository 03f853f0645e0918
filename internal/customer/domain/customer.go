package domain

import (
	"errors"
	"time"
)

// Customer is the local record of a provisioned customer and the remote ids created for it.
type Customer struct {
	ID            string
	SuperUserID   int64
	EndUserID     int64
	AccountID     int64
	Plan          string
	Units         []Unit
	ProvisionedAt *time.Time // nil until every provisioning step has completed
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Unit is a unit attached to the customer's account.
type Unit struct {
	UnitID     int64
	ExternalID string
}

// Provisioned reports whether the customer completed provisioning.
func (c *Customer) Provisioned() bool {
	return c.ProvisionedAt != nil
}

// Validate validates the customer for persistence. Returns an error describing the first validation failure.
func (c *Customer) Validate() error {
	if c.ID == "" {
		return errors.New("customer id is required")
	}
	if c.SuperUserID <= 0 {
		return errors.New("super-user id is required")
	}
	if c.EndUserID <= 0 {
		return errors.New("end-user id is required")
	}
	if c.AccountID <= 0 {
		return errors.New("account id is required")
	}
	for _, u := range c.Units {
		if u.UnitID <= 0 {
			return errors.New("unit id is required")
		}
	}
	return nil
}
