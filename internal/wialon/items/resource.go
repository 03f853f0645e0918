package items

import (
	"context"
	"fmt"
	"strings"

	"fleet-provisioning/internal/wialon"
)

const resourceFlags = commonFlags

// Resource is a container for units, users and their settings. A Resource promoted with
// PromoteToAccount is an Account.
type Resource struct {
	base
}

// CreateResource creates a resource owned by creatorID.
func CreateResource(ctx context.Context, s *wialon.Session, creatorID int64, name string) (*Resource, error) {
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validateID(creatorID); err != nil {
		return nil, err
	}
	var res wialon.ItemResult
	err := s.Call(ctx, wialon.SvcCreateResource, wialon.CreateResourceParams{
		CreatorID:        creatorID,
		Name:             name,
		DataFlags:        resourceFlags,
		SkipCreatorCheck: 1,
	}, &res)
	if err != nil {
		return nil, err
	}
	r := &Resource{base: newBase(wialon.ItemTypeResource, 0, resourceFlags)}
	if err := r.adopt(wialon.SvcCreateResource, res); err != nil {
		return nil, err
	}
	return r, nil
}

// GetResource loads an existing resource.
func GetResource(ctx context.Context, s *wialon.Session, id int64) (*Resource, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	r := &Resource{base: newBase(wialon.ItemTypeResource, id, resourceFlags)}
	if err := r.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return r, nil
}

// IsAccount reports whether the resource is billed as its own account, as of the last refresh.
func (r *Resource) IsAccount() bool { return r.id != 0 && r.item.AccountID == r.id }

// PromoteToAccount turns the resource into a billing account under plan. The receiver is refreshed too,
// so r.IsAccount reports true afterwards.
func (r *Resource) PromoteToAccount(ctx context.Context, s *wialon.Session, plan string) (*Account, error) {
	if strings.TrimSpace(plan) == "" {
		return nil, &wialon.ValidationError{Field: "plan", Reason: "must not be empty"}
	}
	if err := s.Call(ctx, wialon.SvcCreateAccount, wialon.CreateAccountParams{ItemID: r.id, Plan: plan}, nil); err != nil {
		return nil, err
	}
	a := &Account{Resource: Resource{base: r.base}}
	if err := a.Refresh(ctx, s); err != nil {
		return nil, err
	}
	r.base = a.base
	return a, nil
}

// Account is a Resource that carries a billing plan.
type Account struct {
	Resource

	data wialon.AccountData
}

// GetAccount loads an existing account. A resource that is not an account yields a RemoteAPIError.
func GetAccount(ctx context.Context, s *wialon.Session, id int64) (*Account, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	a := &Account{Resource: Resource{base: newBase(wialon.ItemTypeResource, id, resourceFlags)}}
	if err := a.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh re-reads the resource and its billing data.
func (a *Account) Refresh(ctx context.Context, s *wialon.Session) error {
	if err := a.Resource.Refresh(ctx, s); err != nil {
		return err
	}
	var data wialon.AccountData
	if err := s.Call(ctx, wialon.SvcGetAccountData, wialon.GetAccountDataParams{ItemID: a.id, Type: 1}, &data); err != nil {
		return err
	}
	a.data = data
	return nil
}

// Plan is the billing plan as of the last refresh.
func (a *Account) Plan() string { return a.data.Plan }

// Enabled reports whether the account was enabled as of the last refresh.
func (a *Account) Enabled() bool { return a.data.Enabled != 0 }

// Days is the remaining paid days counter as of the last refresh.
func (a *Account) Days() int { return a.data.Days }

// Enable enables the account and refreshes.
func (a *Account) Enable(ctx context.Context, s *wialon.Session) error { return a.setEnabled(ctx, s, true) }

// Disable disables the account and refreshes.
func (a *Account) Disable(ctx context.Context, s *wialon.Session) error { return a.setEnabled(ctx, s, false) }

func (a *Account) setEnabled(ctx context.Context, s *wialon.Session, on bool) error {
	enable := 0
	if on {
		enable = 1
	}
	if err := s.Call(ctx, wialon.SvcEnableAccount, wialon.EnableAccountParams{ItemID: a.id, Enable: enable}, nil); err != nil {
		return err
	}
	return a.Refresh(ctx, s)
}

// AddDays credits the account with days of service.
func (a *Account) AddDays(ctx context.Context, s *wialon.Session, days int) error {
	if days <= 0 {
		return &wialon.ValidationError{Field: "days", Reason: fmt.Sprintf("must be positive, got %d", days)}
	}
	err := s.Call(ctx, wialon.SvcDoPayment, wialon.DoPaymentParams{
		ItemID:      a.id,
		BalanceUpd:  "0.00",
		DaysUpd:     days,
		Description: fmt.Sprintf("Added %d days.", days),
	}, nil)
	if err != nil {
		return err
	}
	return a.Refresh(ctx, s)
}

// MigrateUnit moves u into the account and refreshes u.
func (a *Account) MigrateUnit(ctx context.Context, s *wialon.Session, u *Unit) error {
	return u.MigrateTo(ctx, s, a)
}
