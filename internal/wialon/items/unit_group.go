package items

import (
	"context"
	"slices"
	"strconv"

	"fleet-provisioning/internal/wialon"
)

const unitGroupFlags = commonFlags

// UnitGroup is a named set of units. Membership is written as a whole list; AddMember and
// RemoveMember re-read the list before writing and fail with wialon.ErrConcurrentModification
// if it changed in between. Concurrent writers that slip past that check are last-writer-wins.
type UnitGroup struct {
	base
}

// CreateUnitGroup creates an empty unit group owned by creatorID.
func CreateUnitGroup(ctx context.Context, s *wialon.Session, creatorID int64, name string) (*UnitGroup, error) {
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validateID(creatorID); err != nil {
		return nil, err
	}
	var res wialon.ItemResult
	err := s.Call(ctx, wialon.SvcCreateUnitGroup, wialon.CreateUnitGroupParams{
		CreatorID: creatorID,
		Name:      name,
		DataFlags: unitGroupFlags,
	}, &res)
	if err != nil {
		return nil, err
	}
	g := &UnitGroup{base: newBase(wialon.ItemTypeUnitGroup, 0, unitGroupFlags)}
	if err := g.adopt(wialon.SvcCreateUnitGroup, res); err != nil {
		return nil, err
	}
	return g, nil
}

// GetUnitGroup loads an existing unit group.
func GetUnitGroup(ctx context.Context, s *wialon.Session, id int64) (*UnitGroup, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	g := &UnitGroup{base: newBase(wialon.ItemTypeUnitGroup, id, unitGroupFlags)}
	if err := g.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return g, nil
}

// Members reads the current member ids from the remote side, in remote order.
func (g *UnitGroup) Members(ctx context.Context, s *wialon.Session) ([]int64, error) {
	var res wialon.ItemResult
	if err := s.Call(ctx, wialon.SvcSearchItem, wialon.SearchItemParams{ID: g.id, Flags: wialon.DataFlagBase}, &res); err != nil {
		return nil, err
	}
	g.item.Units = res.Item.Units
	return slices.Clone(res.Item.Units), nil
}

// IsMember reports whether u is currently in the group.
func (g *UnitGroup) IsMember(ctx context.Context, s *wialon.Session, u *Unit) (bool, error) {
	members, err := g.Members(ctx, s)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, u.ID()), nil
}

// AddMember appends u to the group. Adding an existing member writes nothing.
func (g *UnitGroup) AddMember(ctx context.Context, s *wialon.Session, u *Unit) error {
	return g.update(ctx, s, func(members []int64) ([]int64, bool) {
		if slices.Contains(members, u.ID()) {
			return members, false
		}
		return append(slices.Clone(members), u.ID()), true
	})
}

// RemoveMember removes u from the group. Removing a non-member writes nothing.
func (g *UnitGroup) RemoveMember(ctx context.Context, s *wialon.Session, u *Unit) error {
	return g.update(ctx, s, func(members []int64) ([]int64, bool) {
		if !slices.Contains(members, u.ID()) {
			return members, false
		}
		out := make([]int64, 0, len(members)-1)
		for _, id := range members {
			if id != u.ID() {
				out = append(out, id)
			}
		}
		return out, true
	})
}

func (g *UnitGroup) update(ctx context.Context, s *wialon.Session, compute func([]int64) ([]int64, bool)) error {
	before, err := g.Members(ctx, s)
	if err != nil {
		return err
	}
	next, changed := compute(before)
	if !changed {
		return nil
	}
	current, err := g.Members(ctx, s)
	if err != nil {
		return err
	}
	if !slices.Equal(before, current) {
		return wialon.ErrConcurrentModification
	}
	units := make([]string, len(next))
	for i, id := range next {
		units[i] = strconv.FormatInt(id, 10)
	}
	var res wialon.UpdateGroupUnitsResult
	if err := s.Call(ctx, wialon.SvcUpdateGroupUnits, wialon.UpdateGroupUnitsParams{ItemID: g.id, Units: units}, &res); err != nil {
		return err
	}
	g.item.Units = res.Units
	return nil
}
