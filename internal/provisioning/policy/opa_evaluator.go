package policy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"fleet-provisioning/internal/wialon/access"
)

// DefaultPlan is the plan of the built-in policy when the input names none.
const DefaultPlan = "terminusgps_ext_hist"

const policyQuery = "data.fleet.provisioning"

// Built-in policy. A replacement module must declare the same package and rules.
const defaultRegoPolicy = `package fleet.provisioning

default plan := "terminusgps_ext_hist"

plan := input.default_plan if {
	input.default_plan != ""
}

account_capabilities := [
	"general.view_basic",
	"general.view_detailed",
	"general.view_custom_fields",
	"general.query_reports",
	"general.view_attached_files",
	"resource.view_notifications",
	"resource.manage_notifications",
	"resource.view_pois",
	"resource.manage_pois",
	"resource.view_geofences",
	"resource.manage_geofences",
	"resource.view_report_templates",
	"resource.view_drivers",
	"resource.view_trailers"
]

baseline_unit_capabilities := [
	"general.view_basic",
	"general.view_detailed",
	"general.rename",
	"general.view_custom_fields",
	"general.manage_custom_fields",
	"general.manage_icon",
	"general.query_reports",
	"general.view_admin_fields",
	"general.view_attached_files",
	"unit.view_connectivity",
	"unit.view_service_intervals",
	"unit.import_messages",
	"unit.export_messages",
	"unit.view_commands"
]

unit_capabilities := array.concat(baseline_unit_capabilities, ["unit.execute_commands", "unit.manage_commands"]) if {
	input.tier == "fleet"
}

unit_capabilities := baseline_unit_capabilities if {
	input.tier != "fleet"
}
`

// OPAEvaluator evaluates provisioning policy using OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles module, or the built-in policy when module is empty.
func NewOPAEvaluator(module string) (*OPAEvaluator, error) {
	if module == "" {
		module = defaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"provisioning.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// LoadOPAEvaluator reads the Rego module at path; an empty path selects the built-in policy.
func LoadOPAEvaluator(path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator("")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return NewOPAEvaluator(string(b))
}

// HealthCheck evaluates the compiled policy against a minimal input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, Input{CustomerID: "healthcheck"})
	return err
}

// Evaluate runs the policy. When evaluation fails or yields an unusable decision, the failure is logged and
// the baseline decision is returned with a nil error.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in Input) (Decision, error) {
	d, err := e.eval(ctx, in)
	if err != nil {
		log.Printf("policy: evaluation failed for customer %s: %v, using defaults", in.CustomerID, err)
		return defaultDecision("", in), nil
	}
	return d, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in Input) (Decision, error) {
	q := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(e.compiler),
		rego.Input(map[string]interface{}{
			"customer_id":  in.CustomerID,
			"tier":         in.Tier,
			"unit_count":   in.UnitCount,
			"default_plan": in.DefaultPlan,
		}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, errors.New("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("policy document is %T, want object", rs[0].Expressions[0].Value)
	}

	plan, _ := doc["plan"].(string)
	if plan == "" {
		return Decision{}, errors.New("policy produced no plan")
	}
	accountCaps, err := capabilities(doc["account_capabilities"])
	if err != nil {
		return Decision{}, fmt.Errorf("account_capabilities: %w", err)
	}
	unitCaps, err := capabilities(doc["unit_capabilities"])
	if err != nil {
		return Decision{}, fmt.Errorf("unit_capabilities: %w", err)
	}
	return Decision{Plan: plan, AccountCapabilities: accountCaps, UnitCapabilities: unitCaps}, nil
}

// capabilities converts a Rego array of qualified capability names. A missing rule yields nil.
func capabilities(v interface{}) ([]access.Capability, error) {
	if v == nil {
		return nil, nil
	}
	names, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("got %T, want array", v)
	}
	out := make([]access.Capability, 0, len(names))
	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			return nil, fmt.Errorf("capability %v is %T, want string", n, n)
		}
		c, ok := access.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown capability %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}
