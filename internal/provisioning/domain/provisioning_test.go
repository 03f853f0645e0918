package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateStart, "Start"},
		{StateAccountPlanAssigned, "AccountPlanAssigned"},
		{StateAccountDisabledPendingSubscription, "AccountDisabledPendingSubscription"},
		{StateDone, "Done"},
		{State(42), "State(42)"},
		{State(-1), "State(-1)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestState_Next(t *testing.T) {
	seen := []State{StateStart}
	for s := StateStart; s != StateDone; s = s.Next() {
		seen = append(seen, s.Next())
	}
	if len(seen) != int(StateDone)+1 {
		t.Errorf("walked %d states, want %d", len(seen), int(StateDone)+1)
	}
	if StateDone.Next() != StateDone {
		t.Errorf("StateDone.Next() = %s, want Done", StateDone.Next())
	}
	if StateEndUserCreated.Next() != StateAccessGranted {
		t.Errorf("EndUserCreated.Next() = %s, want AccessGranted", StateEndUserCreated.Next())
	}
}

func TestRequest_DerivedNames(t *testing.T) {
	r := Request{CustomerID: "alice"}
	if got := r.SuperUserName(); got != "super_alice" {
		t.Errorf("SuperUserName = %q, want super_alice", got)
	}
	if got := r.AccountName(); got != "account_alice" {
		t.Errorf("AccountName = %q, want account_alice", got)
	}
	if got := r.EndUserName(); got != "alice" {
		t.Errorf("EndUserName = %q, want alice", got)
	}
}

func TestRequest_Normalize(t *testing.T) {
	r := Request{CustomerID: "  alice ", Tier: " fleet", UnitExternalIDs: []string{" 123 ", "", "  ", "456"}}
	r.Normalize()
	if r.CustomerID != "alice" || r.Tier != "fleet" {
		t.Errorf("Normalize = %q/%q, want alice/fleet", r.CustomerID, r.Tier)
	}
	if strings.Join(r.UnitExternalIDs, ",") != "123,456" {
		t.Errorf("UnitExternalIDs = %v, want [123 456]", r.UnitExternalIDs)
	}
}

func TestFailure(t *testing.T) {
	cause := errors.New("boom")
	f := &Failure{
		Step:          StateAccountPlanAssigned,
		LastCompleted: StateAccountCreated,
		Err:           cause,
		Result:        Result{CustomerID: "alice"},
	}
	if !errors.Is(f, cause) {
		t.Error("errors.Is(failure, cause) = false")
	}
	msg := f.Error()
	for _, want := range []string{"alice", "AccountPlanAssigned", "AccountCreated", "boom"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}
