package governance

import (
	"context"
	"testing"

	"aeterna/internal/config"
	"aeterna/internal/model"
	"aeterna/internal/storage/memory"
)

func newTestEngine() *Engine {
	return New(config.DefaultGovernanceConfig(), nil, nil, nil)
}

func TestValidateWithContextAllowRuleFailsWhenMissing(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID:    "p1",
		Layer: model.LayerProject,
		Mode:  model.PolicyMandatory,
		Rules: []model.Rule{
			{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityError, Message: "deps required"},
		},
	}})

	result := e.ValidateWithContext(context.Background(), model.LayerProject, EvaluationContext{})
	if result.IsValid {
		t.Fatalf("expected invalid result when mandatory dependency is missing")
	}
	if len(result.Violations) != 1 || result.Violations[0].RuleID != "r1" {
		t.Fatalf("expected one violation for r1, got %+v", result.Violations)
	}
	if !result.IsMandatoryLayer {
		t.Fatalf("expected IsMandatoryLayer true")
	}
}

func TestValidateWithContextDenyRuleViolatesWhenMatched(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID:   "p1",
		Mode: model.PolicyOptional,
		Rules: []model.Rule{
			{ID: "r1", RuleType: model.RuleDeny, Target: model.TargetDependency, Operator: model.OpMustUse, Value: "forbidden-lib", Severity: model.SeverityBlock},
		},
	}})

	ctx := EvaluationContext{"dependencies": []string{"forbidden-lib", "ok-lib"}}
	result := e.ValidateWithContext(context.Background(), "", ctx)
	if result.IsValid {
		t.Fatalf("expected violation for forbidden dependency")
	}
}

func TestValidateWithContextMustMatchRegex(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID: "p1",
		Rules: []model.Rule{
			{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetFile, Operator: model.OpMustMatch, Value: `^src/`, Severity: model.SeverityWarn},
		},
	}})

	ok := e.ValidateWithContext(context.Background(), "", EvaluationContext{"file_path": "src/main.go"})
	if !ok.IsValid {
		t.Fatalf("expected valid for matching path, got %+v", ok.Violations)
	}
	bad := e.ValidateWithContext(context.Background(), "", EvaluationContext{"file_path": "vendor/main.go"})
	if bad.IsValid {
		t.Fatalf("expected invalid for non-matching path")
	}
}

func TestCheckDriftBlockSeverityClampsToOne(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID: "p1",
		Rules: []model.Rule{
			{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityBlock},
		},
	}})

	result, err := e.CheckDrift(context.Background(), model.TenantContext{TenantID: "t1"}, "proj1", EvaluationContext{}, model.DriftConfig{})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	if result.DriftScore != 1.0 {
		t.Fatalf("expected drift score 1.0 for Block violation, got %v", result.DriftScore)
	}
}

func TestCheckDriftAutoSuppressInfoYieldsZeroScore(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID: "p1",
		Rules: []model.Rule{
			{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityInfo},
		},
	}})

	result, err := e.CheckDrift(context.Background(), model.TenantContext{TenantID: "t1"}, "proj1", EvaluationContext{}, model.DriftConfig{AutoSuppressInfo: true})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	if result.DriftScore != 0 {
		t.Fatalf("expected drift score 0 with Info auto-suppressed, got %v", result.DriftScore)
	}
	if len(result.SuppressedViolations) != 1 {
		t.Fatalf("expected 1 suppressed violation, got %d", len(result.SuppressedViolations))
	}
}

func TestCheckDriftBlockWarnInfoWithoutSuppression(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{
		{ID: "p1", Rules: []model.Rule{{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityBlock}}},
		{ID: "p2", Rules: []model.Rule{{ID: "r2", RuleType: model.RuleAllow, Target: model.TargetFile, Operator: model.OpMustExist, Severity: model.SeverityWarn}}},
		{ID: "p3", Rules: []model.Rule{{ID: "r3", RuleType: model.RuleAllow, Target: model.TargetCode, Operator: model.OpMustExist, Severity: model.SeverityInfo}}},
	})

	result, err := e.CheckDrift(context.Background(), model.TenantContext{TenantID: "t1"}, "proj1", EvaluationContext{}, model.DriftConfig{AutoSuppressInfo: false})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	// min(1.0, 1.0+0.5+0.1) = 1.0, per spec.md §8 seed scenario 4.
	if result.DriftScore != 1.0 {
		t.Fatalf("expected clamped drift score 1.0, got %v", result.DriftScore)
	}
}

func TestCheckDriftStalePolicyVersionHashContributes(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID:       "p1",
		Rules:    nil,
		Metadata: map[string]string{"version_hash": "abc123"},
	}})

	result, err := e.CheckDrift(context.Background(), model.TenantContext{TenantID: "t1"}, "proj1", EvaluationContext{"version_hash": "different"}, model.DriftConfig{})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	if result.DriftScore != model.SeverityWeight(model.SeverityWarn) {
		t.Fatalf("expected warn-weighted stale contribution, got %v", result.DriftScore)
	}
}

func TestCheckDriftIsIdempotentForFixedInputs(t *testing.T) {
	e := newTestEngine()
	e.SetPolicies([]model.Policy{{
		ID:    "p1",
		Rules: []model.Rule{{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityWarn}},
	}})
	ctx := EvaluationContext{}
	tenant := model.TenantContext{TenantID: "t1"}

	first, err := e.CheckDrift(context.Background(), tenant, "proj1", ctx, model.DriftConfig{})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	second, err := e.CheckDrift(context.Background(), tenant, "proj1", ctx, model.DriftConfig{})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	if first.DriftScore != second.DriftScore || len(first.Violations) != len(second.Violations) {
		t.Fatalf("expected idempotent drift results, got %+v and %+v", first, second)
	}
}

func TestCheckDriftPersistsToBackend(t *testing.T) {
	backend := memory.New()
	e := New(config.DefaultGovernanceConfig(), backend, nil, nil)
	e.SetPolicies([]model.Policy{{
		ID:    "p1",
		Rules: []model.Rule{{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityWarn}},
	}})
	tenant := model.TenantContext{TenantID: "t1"}

	result, err := e.CheckDrift(context.Background(), tenant, "proj1", EvaluationContext{}, model.DriftConfig{})
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}

	got, err := backend.GetLatestDriftResult(context.Background(), tenant, "proj1")
	if err != nil {
		t.Fatalf("GetLatestDriftResult: %v", err)
	}
	if got == nil || got.DriftScore != result.DriftScore {
		t.Fatalf("expected persisted drift result matching %+v, got %+v", result, got)
	}
}
