package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fleet-provisioning/internal/wialon/access"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	d, err := e.Evaluate(context.Background(), Input{CustomerID: "alice"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Plan != DefaultPlan {
		t.Errorf("Plan = %q, want %q", d.Plan, DefaultPlan)
	}
	// The built-in policy reproduces the baseline masks.
	if got := access.ComposeMask(d.AccountCapabilities...); got != access.BaselineResource {
		t.Errorf("account mask = %s, want %s", got, access.BaselineResource)
	}
	if got := access.ComposeMask(d.UnitCapabilities...); got != access.BaselineUnit {
		t.Errorf("unit mask = %s, want %s", got, access.BaselineUnit)
	}
}

func TestOPAEvaluator_Inputs(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	tests := []struct {
		name         string
		in           Input
		wantPlan     string
		wantCommands bool
	}{
		{"defaults", Input{CustomerID: "alice"}, DefaultPlan, false},
		{"configured plan", Input{CustomerID: "alice", DefaultPlan: "custom_plan"}, "custom_plan", false},
		{"fleet tier", Input{CustomerID: "alice", Tier: "fleet", UnitCount: 12}, DefaultPlan, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.Evaluate(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Plan != tt.wantPlan {
				t.Errorf("Plan = %q, want %q", d.Plan, tt.wantPlan)
			}
			if got := d.UnitMask().Has(access.UnitExecuteCommands); got != tt.wantCommands {
				t.Errorf("unit mask has execute_commands = %v, want %v", got, tt.wantCommands)
			}
			if !d.UnitMask().Has(access.UnitViewCommands) {
				t.Error("unit mask should always include view_commands")
			}
		})
	}
}

func TestNewOPAEvaluator_CompileError(t *testing.T) {
	if _, err := NewOPAEvaluator("package fleet.provisioning\n\nplan := "); err == nil {
		t.Error("NewOPAEvaluator with invalid Rego should return error")
	}
}

func TestOPAEvaluator_FallsBackOnBadDecision(t *testing.T) {
	tests := []struct {
		name   string
		module string
	}{
		{"unknown capability", `package fleet.provisioning

plan := "gold"
account_capabilities := ["general.fly"]
`},
		{"no plan", `package fleet.provisioning

account_capabilities := ["general.view_basic"]
`},
		{"capabilities not an array", `package fleet.provisioning

plan := "gold"
unit_capabilities := "unit.view_commands"
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewOPAEvaluator(tt.module)
			if err != nil {
				t.Fatalf("NewOPAEvaluator: %v", err)
			}
			if err := e.HealthCheck(context.Background()); err == nil {
				t.Error("HealthCheck should report the unusable decision")
			}
			d, err := e.Evaluate(context.Background(), Input{CustomerID: "alice", DefaultPlan: "fallback_plan"})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Plan != "fallback_plan" {
				t.Errorf("Plan = %q, want fallback_plan", d.Plan)
			}
			if d.AccountMask() != access.BaselineResource || d.UnitMask() != access.BaselineUnit {
				t.Errorf("fallback masks = %s/%s, want baselines", d.AccountMask(), d.UnitMask())
			}
		})
	}
}

func TestLoadOPAEvaluator_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.rego")
	module := `package fleet.provisioning

plan := "gold"
account_capabilities := ["general.view_basic", "resource.view_pois"]
unit_capabilities := ["general.view_basic"]
`
	if err := os.WriteFile(path, []byte(module), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	e, err := LoadOPAEvaluator(path)
	if err != nil {
		t.Fatalf("LoadOPAEvaluator: %v", err)
	}
	d, err := e.Evaluate(context.Background(), Input{CustomerID: "alice"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Plan != "gold" {
		t.Errorf("Plan = %q, want gold", d.Plan)
	}
	want := access.ComposeMask(access.ViewBasic, access.ResourceViewPOIs)
	if d.AccountMask() != want {
		t.Errorf("AccountMask = %s, want %s", d.AccountMask(), want)
	}
	if d.UnitMask() != access.ComposeMask(access.ViewBasic) {
		t.Errorf("UnitMask = %s, want view_basic only", d.UnitMask())
	}
}

func TestLoadOPAEvaluator_MissingFile(t *testing.T) {
	if _, err := LoadOPAEvaluator(filepath.Join(t.TempDir(), "missing.rego")); err == nil {
		t.Error("LoadOPAEvaluator with missing file should return error")
	}
}

func TestStatic(t *testing.T) {
	d, err := Static{}.Evaluate(context.Background(), Input{DefaultPlan: "configured"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Plan != "configured" {
		t.Errorf("Plan = %q, want configured", d.Plan)
	}
	if d.AccountMask() != access.BaselineResource {
		t.Errorf("AccountMask = %s, want BaselineResource", d.AccountMask())
	}
	d, _ = Static{Plan: "fixed"}.Evaluate(context.Background(), Input{DefaultPlan: "configured"})
	if d.Plan != "fixed" {
		t.Errorf("Plan = %q, want fixed", d.Plan)
	}
	d, _ = Static{}.Evaluate(context.Background(), Input{})
	if d.Plan != DefaultPlan {
		t.Errorf("Plan = %q, want %q", d.Plan, DefaultPlan)
	}
}
