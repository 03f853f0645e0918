package wialon

// Remote API service names.
const (
	SvcTokenLogin         = "token/login"
	SvcLogout             = "core/logout"
	SvcCreateUser         = "core/create_user"
	SvcCreateResource     = "core/create_resource"
	SvcCreateUnit         = "core/create_unit"
	SvcCreateUnitGroup    = "core/create_unit_group"
	SvcSearchItem         = "core/search_item"
	SvcSearchItems        = "core/search_items"
	SvcCheckUnique        = "core/check_unique"
	SvcCreateAccount      = "account/create_account"
	SvcEnableAccount      = "account/enable_account"
	SvcChangeAccount      = "account/change_account"
	SvcGetAccountData     = "account/get_account_data"
	SvcDoPayment          = "account/do_payment"
	SvcUpdateItemAccess   = "user/update_item_access"
	SvcUpdateUserFlags    = "user/update_user_flags"
	SvcUpdatePassword     = "user/update_password"
	SvcUpdateGroupUnits   = "unit_group/update_units"
	SvcSetUnitActive      = "unit/set_active"
	SvcUpdateUnitPhone    = "unit/update_phone"
	SvcUpdateName         = "item/update_name"
	SvcUpdateCustomField  = "item/update_custom_field"
	SvcUpdateAdminField   = "item/update_admin_field"
	SvcUpdateCustomProp   = "item/update_custom_property"
	SvcDeleteItem         = "item/delete_item"
	SvcUpdateDriver       = "resource/update_driver"
	SvcBindUnitDriver     = "resource/bind_unit_driver"
	SvcCreateRetranslator = "core/create_retranslator"
)

// CallModeCreate is the callMode for field updates that append a new field.
const CallModeCreate = "create"

// TokenLoginParams is the token/login request.
type TokenLoginParams struct {
	Token string `json:"token"`
	Flags int    `json:"fl"`
}

// LoginResult is the subset of the token/login response this module reads.
type LoginResult struct {
	SessionID string `json:"eid"`
	User      Item   `json:"user"`
	AuthUser  string `json:"au"`
	BaseURL   string `json:"base_url"`
	Host      string `json:"host"`
}

// CreateUserParams is the core/create_user request.
type CreateUserParams struct {
	CreatorID int64  `json:"creatorId"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	DataFlags uint64 `json:"dataFlags"`
}

// CreateResourceParams is the core/create_resource request.
type CreateResourceParams struct {
	CreatorID        int64  `json:"creatorId"`
	Name             string `json:"name"`
	DataFlags        uint64 `json:"dataFlags"`
	SkipCreatorCheck int    `json:"skipCreatorCheck"`
}

// CreateUnitParams is the core/create_unit request.
type CreateUnitParams struct {
	CreatorID int64  `json:"creatorId"`
	Name      string `json:"name"`
	HWTypeID  int64  `json:"hwTypeId"`
	DataFlags uint64 `json:"dataFlags"`
}

// CreateUnitGroupParams is the core/create_unit_group request.
type CreateUnitGroupParams struct {
	CreatorID int64  `json:"creatorId"`
	Name      string `json:"name"`
	DataFlags uint64 `json:"dataFlags"`
}

// ItemResult wraps a single item returned by create and search_item calls.
type ItemResult struct {
	Item  Item   `json:"item"`
	Flags uint64 `json:"flags"`
}

// Field is a custom or administrative field attached to an item.
type Field struct {
	ID    int64  `json:"id"`
	Name  string `json:"n"`
	Value string `json:"v"`
}

// Item is the union of item properties returned by the Remote API; sections are present
// according to the data flags of the request.
type Item struct {
	ID           int64               `json:"id"`
	Name         string              `json:"nm"`
	Class        int                 `json:"cls"`
	CreatorID    int64               `json:"crt,omitempty"`
	AccountID    int64               `json:"bact,omitempty"`
	UniqueID     string              `json:"uid,omitempty"`
	Phone        string              `json:"ph,omitempty"`
	Active       int                 `json:"act,omitempty"`
	HWTypeID     int64               `json:"hw,omitempty"`
	Units        []int64             `json:"u,omitempty"`
	Retranslator *RetranslatorConfig `json:"rtrc,omitempty"`
	CustomProps  map[string]string   `json:"prp,omitempty"`
	CustomFields map[string]Field    `json:"flds,omitempty"`
	AdminFields  map[string]Field    `json:"aflds,omitempty"`
}

// SearchItemParams is the core/search_item request.
type SearchItemParams struct {
	ID    int64  `json:"id"`
	Flags uint64 `json:"flags"`
}

// SearchSpec is the "spec" object of core/search_items.
type SearchSpec struct {
	ItemsType     ItemType `json:"itemsType"`
	PropName      string   `json:"propName"`
	PropValueMask string   `json:"propValueMask"`
	SortType      string   `json:"sortType"`
	PropType      string   `json:"propType,omitempty"`
	OrLogic       int      `json:"or_logic"`
}

// SearchItemsParams is the core/search_items request.
type SearchItemsParams struct {
	Spec  SearchSpec `json:"spec"`
	Force int        `json:"force"`
	Flags uint64     `json:"flags"`
	From  int        `json:"from"`
	To    int        `json:"to"`
}

// SearchItemsResult is the core/search_items response.
type SearchItemsResult struct {
	SearchSpec      SearchSpec `json:"searchSpec"`
	TotalItemsCount int        `json:"totalItemsCount"`
	IndexFrom       int        `json:"indexFrom"`
	IndexTo         int        `json:"indexTo"`
	Items           []Item     `json:"items"`
}

// CheckUniqueParams is the core/check_unique request.
type CheckUniqueParams struct {
	Type  ItemType `json:"type"`
	Value string   `json:"value"`
}

// CheckUniqueResult is the core/check_unique response; Result is 1 when the value is taken.
type CheckUniqueResult struct {
	Result int `json:"result"`
}

// CreateAccountParams is the account/create_account request.
type CreateAccountParams struct {
	ItemID int64  `json:"itemId"`
	Plan   string `json:"plan"`
}

// EnableAccountParams is the account/enable_account request.
type EnableAccountParams struct {
	ItemID int64 `json:"itemId"`
	Enable int   `json:"enable"`
}

// ChangeAccountParams is the account/change_account request; it migrates ItemID into ResourceID.
type ChangeAccountParams struct {
	ItemID     int64 `json:"itemId"`
	ResourceID int64 `json:"resourceId"`
}

// GetAccountDataParams is the account/get_account_data request.
type GetAccountDataParams struct {
	ItemID int64 `json:"itemId"`
	Type   int   `json:"type"`
}

// AccountData is the subset of account/get_account_data this module reads.
type AccountData struct {
	Plan    string `json:"plan"`
	Enabled int    `json:"enabled"`
	Days    int    `json:"daysCounter"`
}

// DoPaymentParams is the account/do_payment request.
type DoPaymentParams struct {
	ItemID      int64  `json:"itemId"`
	BalanceUpd  string `json:"balanceUpdate"`
	DaysUpd     int    `json:"daysUpdate"`
	Description string `json:"description"`
}

// UpdateItemAccessParams is the user/update_item_access request.
type UpdateItemAccessParams struct {
	UserID     int64  `json:"userId"`
	ItemID     int64  `json:"itemId"`
	AccessMask uint64 `json:"accessMask"`
}

// UpdateUserFlagsParams is the user/update_user_flags request.
type UpdateUserFlagsParams struct {
	UserID    int64 `json:"userId"`
	Flags     int64 `json:"flags"`
	FlagsMask int64 `json:"flagsMask"`
}

// UpdatePasswordParams is the user/update_password request.
type UpdatePasswordParams struct {
	UserID      int64  `json:"userId"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateGroupUnitsParams is the unit_group/update_units request. Units replaces the whole member list.
type UpdateGroupUnitsParams struct {
	ItemID int64    `json:"itemId"`
	Units  []string `json:"units"`
}

// UpdateGroupUnitsResult is the unit_group/update_units response.
type UpdateGroupUnitsResult struct {
	Units []int64 `json:"u"`
}

// SetActiveParams is the unit/set_active request.
type SetActiveParams struct {
	ItemID int64 `json:"itemId"`
	Active int   `json:"active"`
}

// UpdatePhoneParams is the unit/update_phone request.
type UpdatePhoneParams struct {
	ItemID      int64  `json:"itemId"`
	PhoneNumber string `json:"phoneNumber"`
}

// UpdateNameParams is the item/update_name request.
type UpdateNameParams struct {
	ItemID int64  `json:"itemId"`
	Name   string `json:"name"`
}

// UpdateFieldParams is the item/update_custom_field and item/update_admin_field request.
type UpdateFieldParams struct {
	ItemID   int64  `json:"itemId"`
	ID       int64  `json:"id"`
	CallMode string `json:"callMode"`
	Name     string `json:"n"`
	Value    string `json:"v"`
}

// UpdateCustomPropertyParams is the item/update_custom_property request.
type UpdateCustomPropertyParams struct {
	ItemID int64  `json:"itemId"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// DeleteItemParams is the item/delete_item request.
type DeleteItemParams struct {
	ItemID int64 `json:"itemId"`
}

// UpdateDriverParams is the resource/update_driver request. ID is 0 when CallMode is create.
type UpdateDriverParams struct {
	ItemID   int64  `json:"itemId"`
	ID       int64  `json:"id"`
	CallMode string `json:"callMode"`
	Name     string `json:"n"`
	Flags    int    `json:"f"`
	Password string `json:"pwd"`
}

// Driver is one driver entry of a resource.
type Driver struct {
	ID   int64  `json:"id"`
	Name string `json:"n"`
}

// BindUnitDriverParams is the resource/bind_unit_driver request. Mode 1 binds, 0 unbinds; Time 0 is now.
type BindUnitDriverParams struct {
	ResourceID int64 `json:"resourceId"`
	UnitID     int64 `json:"unitId"`
	DriverID   int64 `json:"driverId"`
	Time       int64 `json:"time"`
	Mode       int   `json:"mode"`
}

// RetranslatorConfig is the "config" object of core/create_retranslator. Boolean options are sent as 0/1.
type RetranslatorConfig struct {
	Protocol      string `json:"protocol"`
	Server        string `json:"server"`
	Port          int    `json:"port"`
	Auth          string `json:"auth"`
	SSL           int    `json:"ssl"`
	Debug         int    `json:"debug"`
	V6Type        int    `json:"v6type"`
	AttachSensors int    `json:"attach_sensors"`
}

// DefaultRetranslatorConfig forwards over Wialon IPS to the hosting retranslation endpoint.
func DefaultRetranslatorConfig() RetranslatorConfig {
	return RetranslatorConfig{Protocol: "wialon_ips", Server: "hst-api.wialon.com", Port: 20332}
}

// CreateRetranslatorParams is the core/create_retranslator request.
type CreateRetranslatorParams struct {
	CreatorID int64              `json:"creatorId"`
	Name      string             `json:"name"`
	Config    RetranslatorConfig `json:"config"`
	DataFlags uint64             `json:"dataFlags"`
}
