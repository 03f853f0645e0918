// Package access holds the catalogue of named access capabilities and grants composed masks
// from one user to a remote item.
package access

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"strings"

	"fleet-provisioning/internal/wialon"
)

// Mask is a composed access bitmask as sent to user/update_item_access.
type Mask uint64

// FullAccess sets every access bit. Reserved for administrative grants through GrantFull.
const FullAccess Mask = 0xFFFFFFFFFFFFFFF

// Scope is the item kind a capability bit is meaningful for. Bits above the general range are
// reused with different meanings per scope.
type Scope string

const (
	ScopeGeneral  Scope = "general"
	ScopeUnit     Scope = "unit"
	ScopeResource Scope = "resource"
	ScopeUser     Scope = "user"
)

// Capability is one named access bit.
type Capability struct {
	Name  string
	Scope Scope
	Value Mask
}

func (c Capability) String() string { return string(c.Scope) + "." + c.Name }

// General capabilities apply to every item kind.
var (
	ViewBasic               = Capability{"view_basic", ScopeGeneral, 0x0001}
	ViewDetailed            = Capability{"view_detailed", ScopeGeneral, 0x0002}
	ManageAccess            = Capability{"manage_access", ScopeGeneral, 0x0004}
	DeleteItem              = Capability{"delete", ScopeGeneral, 0x0008}
	Rename                  = Capability{"rename", ScopeGeneral, 0x0010}
	ViewCustomFields        = Capability{"view_custom_fields", ScopeGeneral, 0x0020}
	ManageCustomFields      = Capability{"manage_custom_fields", ScopeGeneral, 0x0040}
	ManageUnmentionedFields = Capability{"manage_unmentioned_fields", ScopeGeneral, 0x0080}
	ManageIcon              = Capability{"manage_icon", ScopeGeneral, 0x0100}
	QueryReports            = Capability{"query_reports", ScopeGeneral, 0x0200}
	ManageACL               = Capability{"manage_acl", ScopeGeneral, 0x0400}
	ManageItemLog           = Capability{"manage_log", ScopeGeneral, 0x0800}
	ViewAdminFields         = Capability{"view_admin_fields", ScopeGeneral, 0x1000}
	ManageAdminFields       = Capability{"manage_admin_fields", ScopeGeneral, 0x2000}
	ViewAttachedFiles       = Capability{"view_attached_files", ScopeGeneral, 0x4000}
	ManageAttachedFiles     = Capability{"manage_attached_files", ScopeGeneral, 0x8000}
)

// Unit and unit group capabilities.
var (
	UnitManageConnectivity     = Capability{"manage_connectivity", ScopeUnit, 0x0000100000}
	UnitManageSensors          = Capability{"manage_sensors", ScopeUnit, 0x0000200000}
	UnitManageCounters         = Capability{"manage_counters", ScopeUnit, 0x0000400000}
	UnitDeleteMessages         = Capability{"delete_messages", ScopeUnit, 0x0000800000}
	UnitExecuteCommands        = Capability{"execute_commands", ScopeUnit, 0x0001000000}
	UnitRegisterEvents         = Capability{"register_events", ScopeUnit, 0x0002000000}
	UnitViewConnectivity       = Capability{"view_connectivity", ScopeUnit, 0x0004000000}
	UnitViewServiceIntervals   = Capability{"view_service_intervals", ScopeUnit, 0x0010000000}
	UnitManageServiceIntervals = Capability{"manage_service_intervals", ScopeUnit, 0x0020000000}
	UnitImportMessages         = Capability{"import_messages", ScopeUnit, 0x0040000000}
	UnitExportMessages         = Capability{"export_messages", ScopeUnit, 0x0080000000}
	UnitViewCommands           = Capability{"view_commands", ScopeUnit, 0x0400000000}
	UnitManageCommands         = Capability{"manage_commands", ScopeUnit, 0x0800000000}
	UnitManageTripDetector     = Capability{"manage_trip_detector", ScopeUnit, 0x4000000000}
	UnitManageAssignments      = Capability{"manage_assignments", ScopeUnit, 0x8000000000}
)

// Resource (account) capabilities.
var (
	ResourceViewNotifications     = Capability{"view_notifications", ScopeResource, 0x0000000100000}
	ResourceManageNotifications   = Capability{"manage_notifications", ScopeResource, 0x0000000200000}
	ResourceViewPOIs              = Capability{"view_pois", ScopeResource, 0x0000000400000}
	ResourceManagePOIs            = Capability{"manage_pois", ScopeResource, 0x0000000800000}
	ResourceViewGeofences         = Capability{"view_geofences", ScopeResource, 0x0000001000000}
	ResourceManageGeofences       = Capability{"manage_geofences", ScopeResource, 0x0000002000000}
	ResourceViewJobs              = Capability{"view_jobs", ScopeResource, 0x0000004000000}
	ResourceManageJobs            = Capability{"manage_jobs", ScopeResource, 0x0000008000000}
	ResourceViewReportTemplates   = Capability{"view_report_templates", ScopeResource, 0x0000010000000}
	ResourceManageReportTemplates = Capability{"manage_report_templates", ScopeResource, 0x0000020000000}
	ResourceViewDrivers           = Capability{"view_drivers", ScopeResource, 0x0000040000000}
	ResourceManageDrivers         = Capability{"manage_drivers", ScopeResource, 0x0000080000000}
	ResourceManageAccount         = Capability{"manage_account", ScopeResource, 0x0000100000000}
	ResourceViewOrders            = Capability{"view_orders", ScopeResource, 0x0000200000000}
	ResourceManageOrders          = Capability{"manage_orders", ScopeResource, 0x0000400000000}
	ResourceViewTrailers          = Capability{"view_trailers", ScopeResource, 0x0100000000000}
	ResourceManageTrailers        = Capability{"manage_trailers", ScopeResource, 0x0200000000000}
)

// User capabilities.
var (
	UserManageAccessRights = Capability{"manage_access_rights", ScopeUser, 0x100000}
	UserActAs              = Capability{"act_as", ScopeUser, 0x200000}
	UserManageFlags        = Capability{"manage_flags", ScopeUser, 0x400000}
	UserViewPushMessages   = Capability{"view_push_messages", ScopeUser, 0x800000}
	UserManagePushMessages = Capability{"manage_push_messages", ScopeUser, 0x1000000}
)

// Catalogue lists every known capability.
var Catalogue = []Capability{
	ViewBasic, ViewDetailed, ManageAccess, DeleteItem, Rename, ViewCustomFields, ManageCustomFields,
	ManageUnmentionedFields, ManageIcon, QueryReports, ManageACL, ManageItemLog, ViewAdminFields,
	ManageAdminFields, ViewAttachedFiles, ManageAttachedFiles,

	UnitManageConnectivity, UnitManageSensors, UnitManageCounters, UnitDeleteMessages,
	UnitExecuteCommands, UnitRegisterEvents, UnitViewConnectivity, UnitViewServiceIntervals,
	UnitManageServiceIntervals, UnitImportMessages, UnitExportMessages, UnitViewCommands,
	UnitManageCommands, UnitManageTripDetector, UnitManageAssignments,

	ResourceViewNotifications, ResourceManageNotifications, ResourceViewPOIs, ResourceManagePOIs,
	ResourceViewGeofences, ResourceManageGeofences, ResourceViewJobs, ResourceManageJobs,
	ResourceViewReportTemplates, ResourceManageReportTemplates, ResourceViewDrivers,
	ResourceManageDrivers, ResourceManageAccount, ResourceViewOrders, ResourceManageOrders,
	ResourceViewTrailers, ResourceManageTrailers,

	UserManageAccessRights, UserActAs, UserManageFlags, UserViewPushMessages, UserManagePushMessages,
}

var byName = func() map[string]Capability {
	m := make(map[string]Capability, len(Catalogue))
	for _, c := range Catalogue {
		m[c.String()] = c
	}
	return m
}()

// Lookup finds a capability by its qualified name, e.g. "unit.view_commands" or "general.rename".
// An unqualified name is looked up in the general scope.
func Lookup(name string) (Capability, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.Contains(name, ".") {
		name = string(ScopeGeneral) + "." + name
	}
	c, ok := byName[name]
	return c, ok
}

// ComposeMask ORs the capabilities together. The result does not depend on order or repetition.
func ComposeMask(caps ...Capability) Mask {
	var m Mask
	for _, c := range caps {
		m |= c.Value
	}
	return m
}

// Has reports whether every bit of c is set in m.
func (m Mask) Has(c Capability) bool { return m&c.Value == c.Value }

// Capabilities returns the catalogue entries set in m, limited to the general scope plus scopes.
func (m Mask) Capabilities(scopes ...Scope) []Capability {
	want := map[Scope]bool{ScopeGeneral: true}
	for _, s := range scopes {
		want[s] = true
	}
	var out []Capability
	for _, c := range Catalogue {
		if want[c.Scope] && m.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m Mask) String() string { return fmt.Sprintf("0x%x", uint64(m)) }

// BaselineUnit is granted to an end-user on each of their units: viewing, reports, messages, commands.
var BaselineUnit = ComposeMask(
	ViewBasic, ViewDetailed, Rename, ViewCustomFields, ManageCustomFields, ManageIcon, QueryReports,
	ViewAdminFields, ViewAttachedFiles, UnitViewConnectivity, UnitViewServiceIntervals,
	UnitImportMessages, UnitExportMessages, UnitViewCommands,
)

// BaselineUnitGroup is granted to an end-user on a unit group they own.
var BaselineUnitGroup = ComposeMask(
	ViewBasic, ViewDetailed, Rename, ViewCustomFields, ManageCustomFields, ManageIcon, QueryReports,
	ViewAttachedFiles, UnitExecuteCommands, UnitViewServiceIntervals, UnitRegisterEvents,
	UnitImportMessages, UnitExportMessages,
)

// BaselineResource is granted to an end-user on their account.
var BaselineResource = ComposeMask(
	ViewBasic, ViewDetailed, ViewCustomFields, QueryReports, ViewAttachedFiles,
	ResourceViewNotifications, ResourceManageNotifications, ResourceViewPOIs, ResourceManagePOIs,
	ResourceViewGeofences, ResourceManageGeofences, ResourceViewReportTemplates, ResourceViewDrivers,
	ResourceViewTrailers,
)

// Item is anything with a remote id.
type Item interface {
	ID() int64
}

// Grant gives user the mask on target. FullAccess is refused; use GrantFull.
func Grant(ctx context.Context, s *wialon.Session, user, target Item, mask Mask) error {
	if mask == FullAccess {
		return &wialon.ValidationError{Field: "accessMask", Reason: "full access is reserved for administrative grants"}
	}
	return grant(ctx, s, user, target, mask)
}

// GrantFull gives user every access bit on target.
func GrantFull(ctx context.Context, s *wialon.Session, user, target Item) error {
	if err := validateItems(user, target); err != nil {
		return err
	}
	log.Printf("access: granting full access user=%d item=%d", user.ID(), target.ID())
	return grant(ctx, s, user, target, FullAccess)
}

// Revoke clears every access bit user holds on target.
func Revoke(ctx context.Context, s *wialon.Session, user, target Item) error {
	return grant(ctx, s, user, target, 0)
}

func grant(ctx context.Context, s *wialon.Session, user, target Item, mask Mask) error {
	if err := validateItems(user, target); err != nil {
		return err
	}
	return s.Call(ctx, wialon.SvcUpdateItemAccess, wialon.UpdateItemAccessParams{
		UserID:     user.ID(),
		ItemID:     target.ID(),
		AccessMask: uint64(mask),
	}, nil)
}

func validateItems(user, target Item) error {
	if isNil(user) || isNil(target) {
		return &wialon.ValidationError{Field: "itemId", Reason: "grant requires a user and a target"}
	}
	if user.ID() == 0 || target.ID() == 0 {
		return &wialon.ValidationError{Field: "itemId", Reason: "grant requires saved user and target"}
	}
	return nil
}

// isNil also catches typed nil pointers such as (*items.User)(nil).
func isNil(i Item) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
