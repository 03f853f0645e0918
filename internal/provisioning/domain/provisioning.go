// Package domain holds the provisioning workflow states and its request, result and failure types.
package domain

import (
	"fmt"
	"strings"
)

// State is a step of the provisioning workflow. Steps complete in declaration order.
type State int

const (
	StateStart State = iota
	StateSuperUserCreated
	StateAccountCreated
	StateAccountPlanAssigned
	StateEndUserCreated
	StateAccessGranted
	StateAccountEnabled
	StateAccountDisabledPendingSubscription
	StateUnitsAttached
	StateDone
)

var stateNames = [...]string{
	StateStart:                              "Start",
	StateSuperUserCreated:                   "SuperUserCreated",
	StateAccountCreated:                     "AccountCreated",
	StateAccountPlanAssigned:                "AccountPlanAssigned",
	StateEndUserCreated:                     "EndUserCreated",
	StateAccessGranted:                      "AccessGranted",
	StateAccountEnabled:                     "AccountEnabled",
	StateAccountDisabledPendingSubscription: "AccountDisabledPendingSubscription",
	StateUnitsAttached:                      "UnitsAttached",
	StateDone:                               "Done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Next returns the state after s. StateDone is its own successor.
func (s State) Next() State {
	if s >= StateDone {
		return StateDone
	}
	return s + 1
}

// Name prefixes for the remote items derived from a customer id.
const (
	SuperUserPrefix = "super_"
	AccountPrefix   = "account_"
)

// Request asks for one customer to be provisioned.
type Request struct {
	// CustomerID is the customer-visible identifier; it is also the end-user's login name.
	CustomerID string
	// Password is the end-user's password, supplied by the caller.
	Password string
	// Tier selects policy variations (e.g. "fleet"); empty is the standard tier.
	Tier string
	// UnitExternalIDs are pre-existing units (by IMEI) to move into the new account.
	UnitExternalIDs []string
}

// SuperUserName is the derived name of the customer's super-user.
func (r Request) SuperUserName() string { return SuperUserPrefix + r.CustomerID }

// AccountName is the derived name of the customer's account resource.
func (r Request) AccountName() string { return AccountPrefix + r.CustomerID }

// EndUserName is the end-user's name.
func (r Request) EndUserName() string { return r.CustomerID }

// Normalize trims whitespace from the identifiers.
func (r *Request) Normalize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Tier = strings.TrimSpace(r.Tier)
	ids := r.UnitExternalIDs[:0]
	for _, id := range r.UnitExternalIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	r.UnitExternalIDs = ids
}

// Result carries the remote ids produced so far. On success every id is set.
type Result struct {
	RunID       string
	CustomerID  string
	State       State
	Plan        string
	SuperUserID int64
	AccountID   int64
	EndUserID   int64
	UnitIDs     []int64
	// Reused lists the steps whose remote item already existed and was adopted instead of created.
	Reused []State
}

// Failure reports a workflow that stopped at Step. LastCompleted and Result identify
// what exists remotely so it can be cleaned up or resumed.
type Failure struct {
	Step          State
	LastCompleted State
	Err           error
	Result        Result
}

func (f *Failure) Error() string {
	return fmt.Sprintf("provision %s: failed at %s (last completed %s): %v",
		f.Result.CustomerID, f.Step, f.LastCompleted, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
