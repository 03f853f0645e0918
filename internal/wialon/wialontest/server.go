// Package wialontest provides an in-memory Remote API server for tests.
package wialontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fleet-provisioning/internal/wialon"
)

const (
	// Token is the token the server accepts until SetToken changes it.
	Token = "test-token"
	// AdminID is the id of the seeded administrator the token logs in as.
	AdminID int64 = 1
	// AdminName is the seeded administrator's name.
	AdminName = "platform_admin"
)

// Call is one recorded request.
type Call struct {
	Service string
	SID     string
	Params  json.RawMessage
}

// Decode unmarshals the recorded params into v.
func (c Call) Decode(v any) error { return json.Unmarshal(c.Params, v) }

// Object is the server-side state of one item.
type Object struct {
	Type      wialon.ItemType
	Item      wialon.Item
	Password  string
	UserFlags int64
	IsAccount bool
	Plan      string
	Enabled   bool
	Days      int
	// Drivers and Bindings are kept for resources; Bindings maps unit id to driver id.
	Drivers  map[int64]wialon.Driver
	Bindings map[int64]int64
}

type accessKey struct{ user, item int64 }

// Server is a fake Remote API. Handlers run under a single mutex; hooks run outside it.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	nextID   int64
	nextSID  int
	sessions map[string]int64
	objects  map[int64]*Object
	access   map[accessKey]uint64
	calls    []Call
	failures map[string][]int
	delays   map[string]time.Duration
	hooks    map[string]func(n int)
	counts   map[string]int
}

// NewServer starts a server with a seeded administrator and registers its shutdown with t.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		token:    Token,
		nextID:   AdminID + 1,
		sessions: make(map[string]int64),
		objects:  make(map[int64]*Object),
		access:   make(map[accessKey]uint64),
		failures: make(map[string][]int),
		delays:   make(map[string]time.Duration),
		hooks:    make(map[string]func(n int)),
		counts:   make(map[string]int),
	}
	s.objects[AdminID] = &Object{
		Type: wialon.ItemTypeUser,
		Item: wialon.Item{ID: AdminID, Name: AdminName, Class: classOf(wialon.ItemTypeUser), CreatorID: AdminID},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Client returns a client pointed at the server.
func (s *Server) Client(opts ...wialon.Option) *wialon.Client {
	return wialon.NewClient(s.URL, opts...)
}

// SetToken changes the accepted login token.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// FailNext makes the next call to svc fail with the given remote error code.
func (s *Server) FailNext(svc string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[svc] = append(s.failures[svc], code)
}

// Delay makes every call to svc take at least d after it has been applied.
func (s *Server) Delay(svc string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[svc] = d
}

// OnCall registers fn to run before each call to svc is handled. n is the 1-based call count for svc.
func (s *Server) OnCall(svc string, fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[svc] = fn
}

// Calls returns a copy of every recorded request.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded requests for svc.
func (s *Server) CallsTo(svc string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Service == svc {
			out = append(out, c)
		}
	}
	return out
}

// Services returns the recorded service names in call order.
func (s *Server) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Service
	}
	return out
}

// ResetCalls forgets every recorded request and restarts the per-service counts passed to OnCall hooks.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.counts = make(map[string]int)
}

// OpenSessions returns the number of sessions not yet logged out.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Object returns a copy of the item with id.
func (s *Server) Object(id int64) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		return Object{}, false
	}
	cp := *o
	cp.Item = cloneItem(o.Item)
	cp.Drivers = make(map[int64]wialon.Driver, len(o.Drivers))
	for k, v := range o.Drivers {
		cp.Drivers[k] = v
	}
	cp.Bindings = make(map[int64]int64, len(o.Bindings))
	for k, v := range o.Bindings {
		cp.Bindings[k] = v
	}
	return cp, true
}

// FindObject returns the first item of type t named name.
func (s *Server) FindObject(t wialon.ItemType, name string) (Object, bool) {
	s.mu.Lock()
	var id int64
	for _, o := range s.objects {
		if o.Type == t && o.Item.Name == name {
			id = o.Item.ID
			break
		}
	}
	s.mu.Unlock()
	if id == 0 {
		return Object{}, false
	}
	return s.Object(id)
}

// Access returns the mask granted to userID on itemID.
func (s *Server) Access(userID, itemID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access[accessKey{userID, itemID}]
}

// AddUser seeds a user created by the administrator.
func (s *Server) AddUser(name string) int64 {
	return s.add(&Object{Type: wialon.ItemTypeUser, Item: wialon.Item{Name: name, CreatorID: AdminID}})
}

// AddResource seeds a resource.
func (s *Server) AddResource(name string) int64 {
	return s.add(&Object{Type: wialon.ItemTypeResource, Item: wialon.Item{Name: name, CreatorID: AdminID}})
}

// AddAccount seeds a resource already promoted to an account.
func (s *Server) AddAccount(name, plan string) int64 {
	id := s.add(&Object{Type: wialon.ItemTypeResource, Item: wialon.Item{Name: name, CreatorID: AdminID}, IsAccount: true, Plan: plan})
	s.mu.Lock()
	s.objects[id].Item.AccountID = id
	s.mu.Unlock()
	return id
}

// AddUnit seeds a unit with the given external identifier.
func (s *Server) AddUnit(name, uniqueID string) int64 {
	return s.add(&Object{Type: wialon.ItemTypeUnit, Item: wialon.Item{Name: name, CreatorID: AdminID, UniqueID: uniqueID, AccountID: AdminID}})
}

// AddUnitGroup seeds a unit group with members.
func (s *Server) AddUnitGroup(name string, members ...int64) int64 {
	return s.add(&Object{Type: wialon.ItemTypeUnitGroup, Item: wialon.Item{Name: name, CreatorID: AdminID, Units: append([]int64(nil), members...)}})
}

// BoundDriver returns the driver of resourceID bound to unitID, or 0.
func (s *Server) BoundDriver(resourceID, unitID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[resourceID]; ok {
		return o.Bindings[unitID]
	}
	return 0
}

// SetGroupUnits overwrites a group's members, as another client would.
func (s *Server) SetGroupUnits(groupID int64, units ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[groupID]; ok {
		o.Item.Units = append([]int64(nil), units...)
	}
}

func (s *Server) add(o *Object) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.Item.ID = s.nextID
	o.Item.Class = classOf(o.Type)
	s.nextID++
	s.objects[o.Item.ID] = o
	return o.Item.ID
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/wialon/ajax.html" {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	svc := r.PostForm.Get("svc")
	sid := r.PostForm.Get("sid")
	params := json.RawMessage(r.PostForm.Get("params"))
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Service: svc, SID: sid, Params: params})
	s.counts[svc]++
	n := s.counts[svc]
	hook := s.hooks[svc]
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	s.mu.Lock()
	var (
		result any
		code   int
	)
	if q := s.failures[svc]; len(q) > 0 {
		code = q[0]
		s.failures[svc] = q[1:]
	} else if _, ok := s.sessions[sid]; !ok && svc != wialon.SvcTokenLogin {
		code = wialon.CodeInvalidSession
	} else {
		result, code = s.dispatch(svc, sid, params)
	}
	delay := s.delays[svc]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if code != 0 {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": code, "reason": fmt.Sprintf("%s failed", svc)})
		return
	}
	_ = json.NewEncoder(w).Encode(result)
}

// dispatch applies one call. Must be called with s.mu held.
func (s *Server) dispatch(svc, sid string, raw json.RawMessage) (any, int) {
	switch svc {
	case wialon.SvcTokenLogin:
		var p wialon.TokenLoginParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if p.Token != s.token {
			return nil, wialon.CodeInvalidCredentials
		}
		s.nextSID++
		id := fmt.Sprintf("sid-%04d", s.nextSID)
		s.sessions[id] = AdminID
		return wialon.LoginResult{SessionID: id, User: cloneItem(s.objects[AdminID].Item), AuthUser: AdminName}, 0

	case wialon.SvcLogout:
		delete(s.sessions, sid)
		return map[string]int{"error": 0}, 0

	case wialon.SvcCreateUser:
		var p wialon.CreateUserParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if c := s.checkCreate(wialon.ItemTypeUser, p.CreatorID, p.Name, true); c != 0 {
			return nil, c
		}
		o := &Object{Type: wialon.ItemTypeUser, Item: wialon.Item{Name: p.Name, CreatorID: p.CreatorID}, Password: p.Password}
		return s.created(o, p.DataFlags), 0

	case wialon.SvcCreateResource:
		var p wialon.CreateResourceParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if c := s.checkCreate(wialon.ItemTypeResource, p.CreatorID, p.Name, false); c != 0 {
			return nil, c
		}
		o := &Object{Type: wialon.ItemTypeResource, Item: wialon.Item{Name: p.Name, CreatorID: p.CreatorID}}
		return s.created(o, p.DataFlags), 0

	case wialon.SvcCreateUnit:
		var p wialon.CreateUnitParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if c := s.checkCreate(wialon.ItemTypeUnit, p.CreatorID, p.Name, false); c != 0 {
			return nil, c
		}
		o := &Object{Type: wialon.ItemTypeUnit, Item: wialon.Item{Name: p.Name, CreatorID: p.CreatorID, HWTypeID: p.HWTypeID}}
		return s.created(o, p.DataFlags), 0

	case wialon.SvcCreateUnitGroup:
		var p wialon.CreateUnitGroupParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if c := s.checkCreate(wialon.ItemTypeUnitGroup, p.CreatorID, p.Name, false); c != 0 {
			return nil, c
		}
		o := &Object{Type: wialon.ItemTypeUnitGroup, Item: wialon.Item{Name: p.Name, CreatorID: p.CreatorID}}
		return s.created(o, p.DataFlags), 0

	case wialon.SvcCreateRetranslator:
		var p wialon.CreateRetranslatorParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if c := s.checkCreate(wialon.ItemTypeRetranslator, p.CreatorID, p.Name, false); c != 0 {
			return nil, c
		}
		if p.Config.Protocol == "" || p.Config.Server == "" || p.Config.Port == 0 {
			return nil, wialon.CodeInvalidInput
		}
		cfg := p.Config
		o := &Object{Type: wialon.ItemTypeRetranslator, Item: wialon.Item{Name: p.Name, CreatorID: p.CreatorID, Retranslator: &cfg}}
		return s.created(o, p.DataFlags), 0

	case wialon.SvcUpdateDriver:
		var p wialon.UpdateDriverParams
		if json.Unmarshal(raw, &p) != nil || p.CallMode != wialon.CallModeCreate {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ItemID, wialon.ItemTypeResource)
		if c != 0 {
			return nil, c
		}
		for _, d := range o.Drivers {
			if d.Name == p.Name {
				return nil, wialon.CodeItemAlreadyExists
			}
		}
		if o.Drivers == nil {
			o.Drivers = make(map[int64]wialon.Driver)
		}
		d := wialon.Driver{ID: int64(len(o.Drivers) + 1), Name: p.Name}
		o.Drivers[d.ID] = d
		return []any{d.ID, d}, 0

	case wialon.SvcBindUnitDriver:
		var p wialon.BindUnitDriverParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ResourceID, wialon.ItemTypeResource)
		if c != 0 {
			return nil, c
		}
		if _, ok := o.Drivers[p.DriverID]; !ok {
			return nil, wialon.CodeItemNotFound
		}
		if _, c := s.lookup(p.UnitID, wialon.ItemTypeUnit); c != 0 {
			return nil, c
		}
		if o.Bindings == nil {
			o.Bindings = make(map[int64]int64)
		}
		switch {
		case p.Mode == 1:
			o.Bindings[p.UnitID] = p.DriverID
		case o.Bindings[p.UnitID] == p.DriverID:
			delete(o.Bindings, p.UnitID)
		}
		return map[string]any{}, 0

	case wialon.SvcSearchItem:
		var p wialon.SearchItemParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, ok := s.objects[p.ID]
		if !ok {
			return nil, wialon.CodeItemNotFound
		}
		return wialon.ItemResult{Item: view(o, p.Flags), Flags: p.Flags}, 0

	case wialon.SvcSearchItems:
		var p wialon.SearchItemsParams
		if json.Unmarshal(raw, &p) != nil || !p.Spec.ItemsType.Valid() {
			return nil, wialon.CodeInvalidInput
		}
		return s.search(p), 0

	case wialon.SvcCheckUnique:
		var p wialon.CheckUniqueParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		taken := 0
		for _, o := range s.objects {
			if o.Type == p.Type && (o.Item.Name == p.Value || (p.Type == wialon.ItemTypeUnit && o.Item.UniqueID == p.Value)) {
				taken = 1
				break
			}
		}
		return wialon.CheckUniqueResult{Result: taken}, 0

	case wialon.SvcCreateAccount:
		var p wialon.CreateAccountParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ItemID, wialon.ItemTypeResource)
		if c != 0 {
			return nil, c
		}
		if o.IsAccount {
			return nil, wialon.CodeItemAlreadyExists
		}
		if p.Plan == "" {
			return nil, wialon.CodeInvalidInput
		}
		o.IsAccount = true
		o.Plan = p.Plan
		o.Item.AccountID = o.Item.ID
		return map[string]any{}, 0

	case wialon.SvcEnableAccount:
		var p wialon.EnableAccountParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.account(p.ItemID)
		if c != 0 {
			return nil, c
		}
		o.Enabled = p.Enable != 0
		return map[string]any{}, 0

	case wialon.SvcChangeAccount:
		var p wialon.ChangeAccountParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		item, ok := s.objects[p.ItemID]
		if !ok {
			return nil, wialon.CodeItemNotFound
		}
		if _, c := s.account(p.ResourceID); c != 0 {
			return nil, c
		}
		item.Item.AccountID = p.ResourceID
		return map[string]any{}, 0

	case wialon.SvcGetAccountData:
		var p wialon.GetAccountDataParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.account(p.ItemID)
		if c != 0 {
			return nil, c
		}
		return wialon.AccountData{Plan: o.Plan, Enabled: boolInt(o.Enabled), Days: o.Days}, 0

	case wialon.SvcDoPayment:
		var p wialon.DoPaymentParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.account(p.ItemID)
		if c != 0 {
			return nil, c
		}
		o.Days += p.DaysUpd
		return map[string]any{}, 0

	case wialon.SvcUpdateItemAccess:
		var p wialon.UpdateItemAccessParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if _, c := s.lookup(p.UserID, wialon.ItemTypeUser); c != 0 {
			return nil, c
		}
		if _, ok := s.objects[p.ItemID]; !ok {
			return nil, wialon.CodeItemNotFound
		}
		s.access[accessKey{p.UserID, p.ItemID}] = p.AccessMask
		return map[string]any{}, 0

	case wialon.SvcUpdateUserFlags:
		var p wialon.UpdateUserFlagsParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.UserID, wialon.ItemTypeUser)
		if c != 0 {
			return nil, c
		}
		o.UserFlags = (o.UserFlags &^ p.FlagsMask) | (p.Flags & p.FlagsMask)
		return map[string]int64{"fl": o.UserFlags}, 0

	case wialon.SvcUpdatePassword:
		var p wialon.UpdatePasswordParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.UserID, wialon.ItemTypeUser)
		if c != 0 {
			return nil, c
		}
		if o.Password != "" && o.Password != p.OldPassword {
			return nil, wialon.CodeInvalidCredentials
		}
		o.Password = p.NewPassword
		return map[string]any{}, 0

	case wialon.SvcUpdateGroupUnits:
		var p wialon.UpdateGroupUnitsParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ItemID, wialon.ItemTypeUnitGroup)
		if c != 0 {
			return nil, c
		}
		units := make([]int64, 0, len(p.Units))
		for _, u := range p.Units {
			id, err := strconv.ParseInt(u, 10, 64)
			if err != nil {
				return nil, wialon.CodeInvalidInput
			}
			if _, c := s.lookup(id, wialon.ItemTypeUnit); c != 0 {
				return nil, c
			}
			units = append(units, id)
		}
		o.Item.Units = units
		return wialon.UpdateGroupUnitsResult{Units: append([]int64(nil), units...)}, 0

	case wialon.SvcSetUnitActive:
		var p wialon.SetActiveParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ItemID, wialon.ItemTypeUnit)
		if c != 0 {
			return nil, c
		}
		o.Item.Active = p.Active
		return map[string]int{"a": p.Active}, 0

	case wialon.SvcUpdateUnitPhone:
		var p wialon.UpdatePhoneParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, c := s.lookup(p.ItemID, wialon.ItemTypeUnit)
		if c != 0 {
			return nil, c
		}
		o.Item.Phone = p.PhoneNumber
		return map[string]string{"ph": p.PhoneNumber}, 0

	case wialon.SvcUpdateName:
		var p wialon.UpdateNameParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, ok := s.objects[p.ItemID]
		if !ok {
			return nil, wialon.CodeItemNotFound
		}
		if wialon.ValidateName(p.Name) != nil {
			return nil, wialon.CodeInvalidNameLength
		}
		o.Item.Name = p.Name
		return map[string]string{"nm": p.Name}, 0

	case wialon.SvcUpdateCustomField, wialon.SvcUpdateAdminField:
		var p wialon.UpdateFieldParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, ok := s.objects[p.ItemID]
		if !ok {
			return nil, wialon.CodeItemNotFound
		}
		fields := &o.Item.CustomFields
		if svc == wialon.SvcUpdateAdminField {
			fields = &o.Item.AdminFields
		}
		if *fields == nil {
			*fields = make(map[string]wialon.Field)
		}
		id := p.ID
		if p.CallMode == wialon.CallModeCreate {
			id = int64(len(*fields) + 1)
		}
		f := wialon.Field{ID: id, Name: p.Name, Value: p.Value}
		(*fields)[strconv.FormatInt(id, 10)] = f
		return []any{id, f}, 0

	case wialon.SvcUpdateCustomProp:
		var p wialon.UpdateCustomPropertyParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		o, ok := s.objects[p.ItemID]
		if !ok {
			return nil, wialon.CodeItemNotFound
		}
		if o.Item.CustomProps == nil {
			o.Item.CustomProps = make(map[string]string)
		}
		if p.Value == "" {
			delete(o.Item.CustomProps, p.Name)
		} else {
			o.Item.CustomProps[p.Name] = p.Value
		}
		return map[string]string{"n": p.Name, "v": p.Value}, 0

	case wialon.SvcDeleteItem:
		var p wialon.DeleteItemParams
		if json.Unmarshal(raw, &p) != nil {
			return nil, wialon.CodeInvalidInput
		}
		if _, ok := s.objects[p.ItemID]; !ok {
			return nil, wialon.CodeItemNotFound
		}
		delete(s.objects, p.ItemID)
		return map[string]any{}, 0
	}
	return nil, wialon.CodeInvalidService
}

// checkCreate mirrors the remote create checks: creator must exist, name length, and user names are
// unique platform-wide.
func (s *Server) checkCreate(t wialon.ItemType, creatorID int64, name string, unique bool) int {
	if _, c := s.lookup(creatorID, wialon.ItemTypeUser); c != 0 {
		return wialon.CodeInvalidInput
	}
	if wialon.ValidateName(name) != nil {
		return wialon.CodeInvalidNameLength
	}
	if unique {
		for _, o := range s.objects {
			if o.Type == t && o.Item.Name == name {
				return wialon.CodeItemAlreadyExists
			}
		}
	}
	return 0
}

func (s *Server) created(o *Object, flags uint64) wialon.ItemResult {
	o.Item.ID = s.nextID
	o.Item.Class = classOf(o.Type)
	s.nextID++
	s.objects[o.Item.ID] = o
	return wialon.ItemResult{Item: view(o, flags), Flags: flags}
}

func (s *Server) lookup(id int64, t wialon.ItemType) (*Object, int) {
	o, ok := s.objects[id]
	if !ok {
		return nil, wialon.CodeItemNotFound
	}
	if o.Type != t {
		return nil, wialon.CodeInvalidInput
	}
	return o, 0
}

func (s *Server) account(id int64) (*Object, int) {
	o, c := s.lookup(id, wialon.ItemTypeResource)
	if c != 0 {
		return nil, c
	}
	if !o.IsAccount {
		return nil, wialon.CodeAccessDenied
	}
	return o, 0
}

func (s *Server) search(p wialon.SearchItemsParams) wialon.SearchItemsResult {
	match := compileMask(p.Spec.PropValueMask)
	var found []*Object
	for _, o := range s.objects {
		if o.Type != p.Spec.ItemsType {
			continue
		}
		var v string
		switch p.Spec.PropName {
		case wialon.PropName:
			v = o.Item.Name
		case wialon.PropUniqueID:
			v = o.Item.UniqueID
		case wialon.PropID:
			v = strconv.FormatInt(o.Item.ID, 10)
		case wialon.PropPhone:
			v = o.Item.Phone
		case wialon.PropCreator:
			v = strconv.FormatInt(o.Item.CreatorID, 10)
		default:
			continue
		}
		if match(v) {
			found = append(found, o)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Item.Name != found[j].Item.Name {
			return found[i].Item.Name < found[j].Item.Name
		}
		return found[i].Item.ID < found[j].Item.ID
	})
	total := len(found)
	from, to := p.From, p.To
	if from > total {
		from = total
	}
	if to == 0 || to >= total {
		to = total - 1
	}
	res := wialon.SearchItemsResult{SearchSpec: p.Spec, TotalItemsCount: total, IndexFrom: from, IndexTo: to, Items: []wialon.Item{}}
	for i := from; i <= to && i < total; i++ {
		res.Items = append(res.Items, view(found[i], p.Flags))
	}
	return res
}

// compileMask implements propValueMask: "=" prefix is an exact match, otherwise "*" is a wildcard,
// "," separates alternatives, and matching is case-insensitive.
func compileMask(mask string) func(string) bool {
	if exact, ok := strings.CutPrefix(mask, "="); ok {
		return func(v string) bool { return v == exact }
	}
	var alts []*regexp.Regexp
	for _, part := range strings.Split(mask, ",") {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(part), `\*`, ".*")
		alts = append(alts, regexp.MustCompile("(?i)^"+pattern+"$"))
	}
	return func(v string) bool {
		for _, re := range alts {
			if re.MatchString(v) {
				return true
			}
		}
		return false
	}
}

// view returns the item sections selected by flags.
func view(o *Object, flags uint64) wialon.Item {
	it := wialon.Item{ID: o.Item.ID, Name: o.Item.Name, Class: o.Item.Class}
	if o.Type == wialon.ItemTypeUnitGroup {
		it.Units = append([]int64(nil), o.Item.Units...)
	}
	if flags&wialon.DataFlagCustomProperties != 0 {
		it.CustomProps = cloneMap(o.Item.CustomProps)
	}
	if flags&wialon.DataFlagBillingProperties != 0 {
		it.CreatorID = o.Item.CreatorID
		it.AccountID = o.Item.AccountID
	}
	if flags&wialon.DataFlagCustomFields != 0 {
		it.CustomFields = cloneFields(o.Item.CustomFields)
	}
	if flags&wialon.DataFlagAdminFields != 0 {
		it.AdminFields = cloneFields(o.Item.AdminFields)
	}
	if flags&wialon.DataFlagUnitAdvanced != 0 {
		it.UniqueID = o.Item.UniqueID
		it.Phone = o.Item.Phone
		it.Active = o.Item.Active
		it.HWTypeID = o.Item.HWTypeID
	}
	if flags&wialon.DataFlagRetranslatorConfig != 0 && o.Item.Retranslator != nil {
		cfg := *o.Item.Retranslator
		it.Retranslator = &cfg
	}
	return it
}

func classOf(t wialon.ItemType) int {
	switch t {
	case wialon.ItemTypeUser:
		return 1
	case wialon.ItemTypeResource:
		return 3
	case wialon.ItemTypeUnit:
		return 2
	case wialon.ItemTypeUnitGroup:
		return 4
	case wialon.ItemTypeRetranslator:
		return 5
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cloneItem(it wialon.Item) wialon.Item {
	it.Units = append([]int64(nil), it.Units...)
	if it.Retranslator != nil {
		cfg := *it.Retranslator
		it.Retranslator = &cfg
	}
	it.CustomProps = cloneMap(it.CustomProps)
	it.CustomFields = cloneFields(it.CustomFields)
	it.AdminFields = cloneFields(it.AdminFields)
	return it
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFields(m map[string]wialon.Field) map[string]wialon.Field {
	if m == nil {
		return nil
	}
	out := make(map[string]wialon.Field, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
