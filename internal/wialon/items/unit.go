package items

import (
	"context"
	"fmt"

	"fleet-provisioning/internal/wialon"
	"fleet-provisioning/internal/wialon/lookup"
)

const unitFlags = commonFlags | wialon.DataFlagUnitAdvanced

// phoneFieldName marks custom or admin fields that hold an extra notification phone number.
const phoneFieldName = "to_number"

// Unit is a tracked asset identified by its external id (IMEI).
type Unit struct {
	base
}

// CreateUnit creates a unit of hardware type hwTypeID owned by creatorID.
func CreateUnit(ctx context.Context, s *wialon.Session, creatorID int64, name string, hwTypeID int64) (*Unit, error) {
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validateID(creatorID); err != nil {
		return nil, err
	}
	if hwTypeID <= 0 {
		return nil, &wialon.ValidationError{Field: "hwTypeId", Reason: fmt.Sprintf("must be positive, got %d", hwTypeID)}
	}
	var res wialon.ItemResult
	err := s.Call(ctx, wialon.SvcCreateUnit, wialon.CreateUnitParams{
		CreatorID: creatorID,
		Name:      name,
		HWTypeID:  hwTypeID,
		DataFlags: unitFlags,
	}, &res)
	if err != nil {
		return nil, err
	}
	u := &Unit{base: newBase(wialon.ItemTypeUnit, 0, unitFlags)}
	if err := u.adopt(wialon.SvcCreateUnit, res); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUnit loads an existing unit.
func GetUnit(ctx context.Context, s *wialon.Session, id int64) (*Unit, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	u := &Unit{base: newBase(wialon.ItemTypeUnit, id, unitFlags)}
	if err := u.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return u, nil
}

// ResolveUnit loads the single unit whose external id is externalID.
func ResolveUnit(ctx context.Context, s *wialon.Session, externalID string) (*Unit, error) {
	ref, err := lookup.ResolveUnitByExternalID(ctx, s, externalID)
	if err != nil {
		return nil, err
	}
	return GetUnit(ctx, s, ref.ID())
}

// ExternalID is the unit's unique hardware identifier.
func (u *Unit) ExternalID() string { return u.item.UniqueID }

// Phone is the unit's SIM phone number.
func (u *Unit) Phone() string { return u.item.Phone }

// Active reports whether the unit is active.
func (u *Unit) Active() bool { return u.item.Active != 0 }

// HWTypeID is the unit's hardware type.
func (u *Unit) HWTypeID() int64 { return u.item.HWTypeID }

// PhoneNumbers returns the SIM number followed by every "to_number" admin or custom field value.
func (u *Unit) PhoneNumbers() []string {
	var out []string
	if u.item.Phone != "" {
		out = append(out, u.item.Phone)
	}
	for _, f := range append(u.AdminFields(), u.CustomFields()...) {
		if f.Name == phoneFieldName && f.Value != "" {
			out = append(out, f.Value)
		}
	}
	return out
}

// MigrateTo moves the unit into account and refreshes.
func (u *Unit) MigrateTo(ctx context.Context, s *wialon.Session, account *Account) error {
	if account == nil || account.ID() == 0 {
		return &wialon.ValidationError{Field: "account", Reason: "must be a saved account"}
	}
	err := s.Call(ctx, wialon.SvcChangeAccount, wialon.ChangeAccountParams{ItemID: u.id, ResourceID: account.ID()}, nil)
	if err != nil {
		return err
	}
	return u.Refresh(ctx, s)
}

// SetActive activates or deactivates the unit. It is a no-op when the cached state already matches.
func (u *Unit) SetActive(ctx context.Context, s *wialon.Session, active bool) error {
	if u.Active() == active {
		return nil
	}
	flag := 0
	if active {
		flag = 1
	}
	if err := s.Call(ctx, wialon.SvcSetUnitActive, wialon.SetActiveParams{ItemID: u.id, Active: flag}, nil); err != nil {
		return err
	}
	return u.Refresh(ctx, s)
}

// AssignPhone sets the unit's SIM phone number and refreshes.
func (u *Unit) AssignPhone(ctx context.Context, s *wialon.Session, phone string) error {
	if err := s.Call(ctx, wialon.SvcUpdateUnitPhone, wialon.UpdatePhoneParams{ItemID: u.id, PhoneNumber: phone}, nil); err != nil {
		return err
	}
	return u.Refresh(ctx, s)
}
