package items

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fleet-provisioning/internal/wialon"
)

// driverFlags marks a driver as assignable to units from the mobile app.
const driverFlags = 1

// Driver is an entry in a resource's driver list. Drivers are not items of their own and are
// addressed by the owning resource and the driver id.
type Driver struct {
	ResourceID int64
	ID         int64
	Name       string
}

// CreateDriver adds a driver to the resource. password is the PIN the driver signs in with.
func (r *Resource) CreateDriver(ctx context.Context, s *wialon.Session, name, password string) (*Driver, error) {
	if err := validateID(r.id); err != nil {
		return nil, err
	}
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, &wialon.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	var res []json.RawMessage
	err := s.Call(ctx, wialon.SvcUpdateDriver, wialon.UpdateDriverParams{
		ItemID:   r.id,
		CallMode: wialon.CallModeCreate,
		Name:     name,
		Flags:    driverFlags,
		Password: password,
	}, &res)
	if err != nil {
		return nil, err
	}
	var id int64
	if len(res) > 0 {
		if err := json.Unmarshal(res[0], &id); err != nil {
			return nil, &wialon.RemoteAPIError{Service: wialon.SvcUpdateDriver, Code: wialon.CodeInvalidResult, Message: err.Error()}
		}
	}
	if id == 0 {
		return nil, &wialon.RemoteAPIError{Service: wialon.SvcUpdateDriver, Code: wialon.CodeInvalidResult, Message: "create returned no driver id"}
	}
	return &Driver{ResourceID: r.id, ID: id, Name: name}, nil
}

func (d *Driver) String() string {
	return fmt.Sprintf("driver #%d %q in resource #%d", d.ID, d.Name, d.ResourceID)
}

// BindUnit assigns the driver to u starting now.
func (d *Driver) BindUnit(ctx context.Context, s *wialon.Session, u *Unit) error {
	return d.bind(ctx, s, u, 1)
}

// UnbindUnit ends the driver's assignment to u.
func (d *Driver) UnbindUnit(ctx context.Context, s *wialon.Session, u *Unit) error {
	return d.bind(ctx, s, u, 0)
}

func (d *Driver) bind(ctx context.Context, s *wialon.Session, u *Unit, mode int) error {
	if u == nil || u.id == 0 {
		return &wialon.ValidationError{Field: "unit", Reason: "unit has not been created"}
	}
	if d.ID == 0 || d.ResourceID == 0 {
		return &wialon.ValidationError{Field: "driver", Reason: "driver has not been created"}
	}
	return s.Call(ctx, wialon.SvcBindUnitDriver, wialon.BindUnitDriverParams{
		ResourceID: d.ResourceID,
		UnitID:     u.id,
		DriverID:   d.ID,
		Mode:       mode,
	}, nil)
}
