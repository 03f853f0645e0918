package wialon

// Display-name bounds accepted by the Remote API for every item kind.
const (
	MinNameLength = 4
	MaxNameLength = 50
)

// ItemType is the Remote API item superclass ("itemsType" in searches, "type" in check_unique).
type ItemType string

const (
	ItemTypeUser         ItemType = "user"
	ItemTypeResource     ItemType = "avl_resource"
	ItemTypeUnit         ItemType = "avl_unit"
	ItemTypeUnitGroup    ItemType = "avl_unit_group"
	ItemTypeHardware     ItemType = "avl_hw"
	ItemTypeRetranslator ItemType = "avl_retranslator"
	ItemTypeRoute        ItemType = "avl_route"
)

// Valid reports whether t is a known item superclass.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeUser, ItemTypeResource, ItemTypeUnit, ItemTypeUnitGroup,
		ItemTypeHardware, ItemTypeRetranslator, ItemTypeRoute:
		return true
	}
	return false
}

// Search property names used by core/search_items.
const (
	PropName     = "sys_name"
	PropID       = "sys_id"
	PropUniqueID = "sys_unique_id"
	PropPhone    = "sys_phone_number"
	PropCreator  = "sys_user_creator"
	PropIsAcct   = "rel_is_account"
)

// Data flags select which item sections core/search_item(s) returns.
const (
	DataFlagBase               uint64 = 0x00000001
	DataFlagCustomProperties   uint64 = 0x00000002
	DataFlagBillingProperties  uint64 = 0x00000004
	DataFlagCustomFields       uint64 = 0x00000008
	DataFlagGUID               uint64 = 0x00000040
	DataFlagAdminFields        uint64 = 0x00000080
	DataFlagUnitAdvanced       uint64 = 0x00000100
	DataFlagRetranslatorConfig uint64 = 0x00000100
	DataFlagUnitLastMessage    uint64 = 0x00000400
	DataFlagUnitConnectionStat uint64 = 0x00200000
)

// User settings flags for user/update_user_flags.
const (
	SettingsUserDisabled             int64 = 0x01
	SettingsUserCannotChangePassword int64 = 0x02
	SettingsUserCanCreateItems       int64 = 0x04
	SettingsUserCannotChangeSettings int64 = 0x10
	SettingsUserCanSendSMS           int64 = 0x20
)

// loginFlags requests base user data, GIS info and the user's custom properties on token/login.
const loginFlags = 0x1 | 0x2 | 0x20
