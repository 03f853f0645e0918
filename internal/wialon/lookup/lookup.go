// Package lookup answers questions about existing remote items: name uniqueness, unit resolution by
// external identifier, and exact-name search.
package lookup

import (
	"context"
	"fmt"
	"strings"

	"fleet-provisioning/internal/wialon"
)

// Ref is a search hit.
type Ref struct {
	Kind wialon.ItemType
	Item wialon.Item
}

// ID returns the remote id of the hit.
func (r Ref) ID() int64 { return r.Item.ID }

// Name returns the display name of the hit.
func (r Ref) Name() string { return r.Item.Name }

// NameIsUnique reports whether no item of kind already uses name.
func NameIsUnique(ctx context.Context, s *wialon.Session, name string, kind wialon.ItemType) (bool, error) {
	if err := wialon.ValidateName(name); err != nil {
		return false, err
	}
	if !kind.Valid() {
		return false, &wialon.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown item type %q", kind)}
	}
	var res wialon.CheckUniqueResult
	if err := s.Call(ctx, wialon.SvcCheckUnique, wialon.CheckUniqueParams{Type: kind, Value: name}, &res); err != nil {
		return false, err
	}
	return res.Result == 0, nil
}

// ResolveUnitByExternalID returns the single unit whose unique id equals externalID.
// Zero matches is a NotFoundError, more than one an AmbiguousResultError.
func ResolveUnitByExternalID(ctx context.Context, s *wialon.Session, externalID string) (Ref, error) {
	externalID = strings.TrimSpace(externalID)
	if err := validateExact("externalID", externalID); err != nil {
		return Ref{}, err
	}
	return one(ctx, s, wialon.ItemTypeUnit, wialon.PropUniqueID, externalID,
		wialon.DataFlagBase|wialon.DataFlagUnitAdvanced|wialon.DataFlagBillingProperties)
}

// FindByName returns the single item of kind named exactly name.
func FindByName(ctx context.Context, s *wialon.Session, kind wialon.ItemType, name string) (Ref, error) {
	if err := wialon.ValidateName(name); err != nil {
		return Ref{}, err
	}
	if err := validateExact("name", name); err != nil {
		return Ref{}, err
	}
	if !kind.Valid() {
		return Ref{}, &wialon.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown item type %q", kind)}
	}
	return one(ctx, s, kind, wialon.PropName, name, wialon.DataFlagBase|wialon.DataFlagBillingProperties)
}

// UnitExists reports whether exactly one unit carries externalID. Ambiguity is an error.
func UnitExists(ctx context.Context, s *wialon.Session, externalID string) (bool, error) {
	_, err := ResolveUnitByExternalID(ctx, s, externalID)
	if wialon.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Search runs an arbitrary core/search_items query and returns every hit.
func Search(ctx context.Context, s *wialon.Session, spec wialon.SearchSpec, flags uint64) ([]Ref, error) {
	if !spec.ItemsType.Valid() {
		return nil, &wialon.ValidationError{Field: "itemsType", Reason: fmt.Sprintf("unknown item type %q", spec.ItemsType)}
	}
	if spec.SortType == "" {
		spec.SortType = wialon.PropName
	}
	var res wialon.SearchItemsResult
	err := s.Call(ctx, wialon.SvcSearchItems, wialon.SearchItemsParams{
		Spec:  spec,
		Force: 1,
		Flags: flags,
		From:  0,
		To:    0,
	}, &res)
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(res.Items))
	for _, it := range res.Items {
		refs = append(refs, Ref{Kind: spec.ItemsType, Item: it})
	}
	return refs, nil
}

func one(ctx context.Context, s *wialon.Session, kind wialon.ItemType, prop, value string, flags uint64) (Ref, error) {
	query := fmt.Sprintf("%s %s=%q", kind, prop, value)
	refs, err := Search(ctx, s, wialon.SearchSpec{
		ItemsType:     kind,
		PropName:      prop,
		PropValueMask: "=" + value,
		SortType:      prop,
	}, flags)
	if err != nil {
		return Ref{}, err
	}
	switch len(refs) {
	case 0:
		return Ref{}, &wialon.NotFoundError{Query: query}
	case 1:
		return refs[0], nil
	}
	return Ref{}, &wialon.AmbiguousResultError{Query: query, Count: len(refs)}
}

// validateExact rejects values the search mask would interpret as patterns.
func validateExact(field, v string) error {
	if v == "" {
		return &wialon.ValidationError{Field: field, Reason: "must not be empty"}
	}
	if strings.ContainsAny(v, "*,") {
		return &wialon.ValidationError{Field: field, Reason: "must not contain '*' or ','"}
	}
	return nil
}
