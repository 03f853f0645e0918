// Package policy decides, per customer, the billing plan and the access granted to the end-user.
package policy

import (
	"context"

	"fleet-provisioning/internal/wialon/access"
)

// Input is what a provisioning decision may depend on.
type Input struct {
	CustomerID  string
	Tier        string
	UnitCount   int
	DefaultPlan string
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	// Plan is the billing plan the account is promoted under.
	Plan string
	// AccountCapabilities are granted to the end-user on the account.
	AccountCapabilities []access.Capability
	// UnitCapabilities are granted to the end-user on each attached unit.
	UnitCapabilities []access.Capability
}

// AccountMask composes AccountCapabilities, falling back to access.BaselineResource when empty.
func (d Decision) AccountMask() access.Mask {
	if len(d.AccountCapabilities) == 0 {
		return access.BaselineResource
	}
	return access.ComposeMask(d.AccountCapabilities...)
}

// UnitMask composes UnitCapabilities, falling back to access.BaselineUnit when empty.
func (d Decision) UnitMask() access.Mask {
	if len(d.UnitCapabilities) == 0 {
		return access.BaselineUnit
	}
	return access.ComposeMask(d.UnitCapabilities...)
}

// Evaluator evaluates provisioning policy.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Decision, error)
}

// Static is an Evaluator that always returns the baseline decision under Plan
// (or the input's DefaultPlan when Plan is empty).
type Static struct {
	Plan string
}

func (s Static) Evaluate(_ context.Context, in Input) (Decision, error) {
	return defaultDecision(s.Plan, in), nil
}

func defaultDecision(plan string, in Input) Decision {
	if plan == "" {
		plan = in.DefaultPlan
	}
	if plan == "" {
		plan = DefaultPlan
	}
	return Decision{
		Plan:                plan,
		AccountCapabilities: access.BaselineResource.Capabilities(access.ScopeResource),
		UnitCapabilities:    access.BaselineUnit.Capabilities(access.ScopeUnit),
	}
}
