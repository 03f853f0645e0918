package audit

import "testing"

func TestActionForService(t *testing.T) {
	tests := []struct {
		svc          string
		wantAction   string
		wantResource string
	}{
		{"core/create_user", "create", "user"},
		{"core/create_resource", "create", "resource"},
		{"core/create_unit", "create", "unit"},
		{"core/create_unit_group", "create", "unit_group"},
		{"account/create_account", "create", "account"},
		{"account/enable_account", "enable", "account"},
		{"account/change_account", "migrate", "unit"},
		{"account/do_payment", "add_days", "account"},
		{"user/update_item_access", "grant", "access"},
		{"user/update_password", "update", "user"},
		{"user/update_user_flags", "update_flags", "user"},
		{"unit_group/update_units", "update_members", "unit_group"},
		{"unit/set_active", "set", "unit"},
		{"unit/update_phone", "update", "unit"},
		{"item/update_name", "update", "item"},
		{"item/delete_item", "delete", "item"},
		{"core/logout", "logout", "unknown"},
		{"token/login", "login", "token"},
	}
	for _, tt := range tests {
		t.Run(tt.svc, func(t *testing.T) {
			ar := ActionForService(tt.svc)
			if ar.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", ar.Action, tt.wantAction)
			}
			if ar.Resource != tt.wantResource {
				t.Errorf("resource = %q, want %q", ar.Resource, tt.wantResource)
			}
		})
	}
}

func TestActionForService_Malformed(t *testing.T) {
	for _, svc := range []string{"", "core", "/create_user", "core/"} {
		ar := ActionForService(svc)
		if ar.Action != "unknown" || ar.Resource != "unknown" {
			t.Errorf("ActionForService(%q) = %+v, want unknown/unknown", svc, ar)
		}
	}
}
