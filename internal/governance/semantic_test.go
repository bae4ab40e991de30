package governance

import (
	"context"
	"testing"

	"aeterna/internal/model"
)

func TestMangleEvaluatorDetectsViolation(t *testing.T) {
	evalr := NewMangleEvaluator()
	policy := model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{
				ID:            "forbidden-region",
				Severity:      model.SeverityError,
				Message:       "resource deployed outside approved region",
				SemanticQuery: `external_context("region", /us-west)`,
			},
		},
	}

	violations, err := evalr.Evaluate(context.Background(), policy, EvaluationContext{"region": "/us-west"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(violations) != 1 || violations[0].RuleID != "llm:forbidden-region" {
		t.Fatalf("expected one llm:-tagged violation, got %+v", violations)
	}
}

func TestMangleEvaluatorNoViolationWhenConditionFalse(t *testing.T) {
	evalr := NewMangleEvaluator()
	policy := model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{
				ID:            "forbidden-region",
				Severity:      model.SeverityError,
				SemanticQuery: `external_context("region", /us-west)`,
			},
		},
	}

	violations, err := evalr.Evaluate(context.Background(), policy, EvaluationContext{"region": "/eu-central"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}

func TestHasSemanticRulesDetectsNonEmptyQuery(t *testing.T) {
	withQuery := model.Policy{Rules: []model.Rule{{SemanticQuery: "x"}}}
	withoutQuery := model.Policy{Rules: []model.Rule{{}}}
	if !hasSemanticRules(withQuery) {
		t.Fatalf("expected hasSemanticRules true")
	}
	if hasSemanticRules(withoutQuery) {
		t.Fatalf("expected hasSemanticRules false")
	}
}
