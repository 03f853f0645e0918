// Package items models remote Wialon items (users, resources, accounts, units, unit groups and
// retranslators) as local caches backed by remote calls. Every method takes the Session explicitly; objects never
// hold one.
package items

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fleet-provisioning/internal/wialon"
)

// Object is a remote item. The set of implementations is closed: *User, *Resource, *Account,
// *Unit, *UnitGroup and *Retranslator.
type Object interface {
	// ID is assigned by a successful create or load and never changes afterwards.
	ID() int64
	Name() string
	Kind() wialon.ItemType
	// Refresh re-reads the remote item into the local copy.
	Refresh(ctx context.Context, s *wialon.Session) error

	sealed()
}

const commonFlags = wialon.DataFlagBase | wialon.DataFlagCustomProperties | wialon.DataFlagBillingProperties |
	wialon.DataFlagCustomFields | wialon.DataFlagAdminFields

// base is the state and behaviour every kind shares.
type base struct {
	id    int64
	kind  wialon.ItemType
	flags uint64
	item  wialon.Item
}

func newBase(kind wialon.ItemType, id int64, flags uint64) base {
	return base{id: id, kind: kind, flags: flags}
}

func (b *base) sealed() {}

func (b *base) ID() int64 { return b.id }

func (b *base) Name() string { return b.item.Name }

func (b *base) Kind() wialon.ItemType { return b.kind }

// CreatorID is the id of the user that created the item, as of the last refresh.
func (b *base) CreatorID() int64 { return b.item.CreatorID }

// AccountID is the id of the account the item is billed to, as of the last refresh.
func (b *base) AccountID() int64 { return b.item.AccountID }

// CustomProperty returns a custom property as of the last refresh.
func (b *base) CustomProperty(name string) (string, bool) {
	v, ok := b.item.CustomProps[name]
	return v, ok
}

// CustomFields returns the custom fields as of the last refresh, ordered by field id.
func (b *base) CustomFields() []wialon.Field { return sortedFields(b.item.CustomFields) }

// AdminFields returns the administrative fields as of the last refresh, ordered by field id.
func (b *base) AdminFields() []wialon.Field { return sortedFields(b.item.AdminFields) }

func (b *base) String() string { return fmt.Sprintf("%s #%d %q", b.kind, b.id, b.item.Name) }

// Refresh re-reads the item with the kind's data flags.
func (b *base) Refresh(ctx context.Context, s *wialon.Session) error {
	if b.id == 0 {
		return &wialon.ValidationError{Field: "id", Reason: "item has not been created"}
	}
	var res wialon.ItemResult
	if err := s.Call(ctx, wialon.SvcSearchItem, wialon.SearchItemParams{ID: b.id, Flags: b.flags}, &res); err != nil {
		return err
	}
	if res.Item.ID != b.id {
		return &wialon.RemoteAPIError{Service: wialon.SvcSearchItem, Code: wialon.CodeInvalidResult,
			Message: fmt.Sprintf("asked for item %d, got %d", b.id, res.Item.ID)}
	}
	b.item = res.Item
	return nil
}

// Rename changes the display name and refreshes.
func (b *base) Rename(ctx context.Context, s *wialon.Session, name string) error {
	if err := wialon.ValidateName(name); err != nil {
		return err
	}
	if err := s.Call(ctx, wialon.SvcUpdateName, wialon.UpdateNameParams{ItemID: b.id, Name: name}, nil); err != nil {
		return err
	}
	return b.Refresh(ctx, s)
}

// AddCustomField appends a custom field. Calling it twice creates two fields with the same key.
func (b *base) AddCustomField(ctx context.Context, s *wialon.Session, key, value string) error {
	return b.addField(ctx, s, wialon.SvcUpdateCustomField, key, value)
}

// AddAdminField appends an administrative field. Calling it twice creates two fields with the same key.
func (b *base) AddAdminField(ctx context.Context, s *wialon.Session, key, value string) error {
	return b.addField(ctx, s, wialon.SvcUpdateAdminField, key, value)
}

func (b *base) addField(ctx context.Context, s *wialon.Session, svc, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return &wialon.ValidationError{Field: "key", Reason: "must not be empty"}
	}
	return s.Call(ctx, svc, wialon.UpdateFieldParams{
		ItemID:   b.id,
		CallMode: wialon.CallModeCreate,
		Name:     key,
		Value:    value,
	}, nil)
}

// SetCustomProperty sets or, with an empty value, removes a custom property.
func (b *base) SetCustomProperty(ctx context.Context, s *wialon.Session, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return &wialon.ValidationError{Field: "name", Reason: "property name must not be empty"}
	}
	err := s.Call(ctx, wialon.SvcUpdateCustomProp, wialon.UpdateCustomPropertyParams{ItemID: b.id, Name: name, Value: value}, nil)
	if err != nil {
		return err
	}
	if b.item.CustomProps == nil {
		b.item.CustomProps = make(map[string]string)
	}
	if value == "" {
		delete(b.item.CustomProps, name)
	} else {
		b.item.CustomProps[name] = value
	}
	return nil
}

// Delete removes the item remotely. The local id is kept for reference.
func (b *base) Delete(ctx context.Context, s *wialon.Session) error {
	return s.Call(ctx, wialon.SvcDeleteItem, wialon.DeleteItemParams{ItemID: b.id}, nil)
}

// adopt takes the id and first read from a create response.
func (b *base) adopt(svc string, res wialon.ItemResult) error {
	if res.Item.ID == 0 {
		return &wialon.RemoteAPIError{Service: svc, Code: wialon.CodeInvalidResult, Message: "create returned no item id"}
	}
	b.id = res.Item.ID
	b.item = res.Item
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return &wialon.ValidationError{Field: "id", Reason: fmt.Sprintf("must be positive, got %d", id)}
	}
	return nil
}

func sortedFields(m map[string]wialon.Field) []wialon.Field {
	out := make([]wialon.Field, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load fetches an existing item of the given kind by id.
func Load(ctx context.Context, s *wialon.Session, kind wialon.ItemType, id int64) (Object, error) {
	var (
		obj Object
		err error
	)
	switch kind {
	case wialon.ItemTypeUser:
		obj, err = GetUser(ctx, s, id)
	case wialon.ItemTypeResource:
		obj, err = GetResource(ctx, s, id)
	case wialon.ItemTypeUnit:
		obj, err = GetUnit(ctx, s, id)
	case wialon.ItemTypeUnitGroup:
		obj, err = GetUnitGroup(ctx, s, id)
	case wialon.ItemTypeRetranslator:
		obj, err = GetRetranslator(ctx, s, id)
	default:
		return nil, &wialon.ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported item kind %q", kind)}
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}
