package audit

import "strings"

// ActionResource holds action and resource derived from a Remote API service name.
type ActionResource struct {
	Action   string
	Resource string
}

// Service overrides where the generic verb/noun split reads badly.
var serviceOverrides = map[string]ActionResource{
	"account/change_account":   {Action: "migrate", Resource: "unit"},
	"account/do_payment":       {Action: "add_days", Resource: "account"},
	"user/update_item_access":  {Action: "grant", Resource: "access"},
	"unit_group/update_units":  {Action: "update_members", Resource: "unit_group"},
	"user/update_user_flags":   {Action: "update_flags", Resource: "user"},
	"item/update_custom_field": {Action: "update_custom_field", Resource: "item"},
	"item/update_admin_field":  {Action: "update_admin_field", Resource: "item"},
}

// ActionForService returns action and resource for a Remote API service (e.g. core/create_user).
// Action is the leading verb of the method: create, update, delete, enable, set, ...
// Resource is the rest of the method for the "core" group (core/create_unit_group -> unit_group)
// and the group name otherwise (account/enable_account -> account, unit/set_active -> unit).
func ActionForService(svc string) ActionResource {
	if ar, ok := serviceOverrides[svc]; ok {
		return ar
	}
	slash := strings.Index(svc, "/")
	if slash <= 0 || slash == len(svc)-1 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	group, method := svc[:slash], svc[slash+1:]
	verb, rest, found := strings.Cut(method, "_")
	if group == "core" {
		if !found {
			return ActionResource{Action: verb, Resource: "unknown"}
		}
		return ActionResource{Action: verb, Resource: rest}
	}
	return ActionResource{Action: verb, Resource: group}
}
