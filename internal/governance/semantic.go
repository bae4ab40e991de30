package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"aeterna/internal/model"
)

// MangleEvaluator is the optional semantic pass (spec.md §4.8),
// compiling a rule's SemanticQuery into a tiny Datalog program,
// asserting the evaluation context as facts, and surfacing any derived
// violates/1 tuple as an "llm:"-tagged violation.
//
// Grounded on the mangle Go integration pattern (parse.Unit ->
// analysis.AnalyzeOneUnit -> engine.EvalProgramWithStats against a
// factstore.SimpleInMemoryStore), one program per rule since each rule
// may declare its own predicate and schema.
type MangleEvaluator struct{}

// NewMangleEvaluator constructs a MangleEvaluator. It holds no mutable
// state: every Evaluate call compiles and runs its own fresh program,
// since policies are read-mostly and small.
func NewMangleEvaluator() *MangleEvaluator {
	return &MangleEvaluator{}
}

// Evaluate runs every rule with a non-empty SemanticQuery in policy
// against evalCtx, asserting context fields as external_context/2
// facts ahead of evaluation.
func (e *MangleEvaluator) Evaluate(_ context.Context, policy model.Policy, evalCtx EvaluationContext) ([]model.Violation, error) {
	var violations []model.Violation
	for _, rule := range policy.Rules {
		if rule.SemanticQuery == "" {
			continue
		}
		violated, err := e.evaluateRuleQuery(rule, evalCtx)
		if err != nil {
			return violations, fmt.Errorf("semantic pass rule %s: %w", rule.ID, err)
		}
		if violated {
			violations = append(violations, model.Violation{
				RuleID:   "llm:" + rule.ID,
				Severity: rule.Severity,
				Message:  rule.Message,
			})
		}
	}
	return violations, nil
}

func (e *MangleEvaluator) evaluateRuleQuery(rule model.Rule, evalCtx EvaluationContext) (bool, error) {
	source := buildMangleProgram(rule)

	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return false, fmt.Errorf("analyze: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	for key, value := range evalCtx {
		term, ok := contextValueToTerm(value)
		if !ok {
			continue
		}
		store.Add(ast.NewAtom("external_context", ast.String(key), term))
	}

	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return false, fmt.Errorf("evaluate: %w", err)
	}

	pred := ast.PredicateSym{Symbol: "violates", Arity: 1}
	found := false
	err = store.GetFacts(ast.NewQuery(pred), func(ast.Atom) error {
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("query violates/1: %w", err)
	}
	return found, nil
}

// buildMangleProgram wraps a rule's SemanticQuery body (a Datalog rule
// body referencing external_context/2) into a program declaring
// violates/1 and external_context/2.
func buildMangleProgram(rule model.Rule) string {
	return fmt.Sprintf(`
Decl external_context(Key.Type<n>, Value.Type<n>).
Decl violates(RuleID.Type<n>).

violates(/%s) :- %s.
`, rule.ID, rule.SemanticQuery)
}

// contextValueToTerm converts a context value into a mangle term,
// mirroring the boilerplate's convertToTerm: strings become name
// constants when prefixed with "/", otherwise string constants;
// numeric and boolean kinds pass through directly.
func contextValueToTerm(v interface{}) (ast.BaseTerm, bool) {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "/") {
			if name, err := ast.Name(val); err == nil {
				return name, true
			}
			return nil, false
		}
		return ast.String(val), true
	case int:
		return ast.Number(int64(val)), true
	case int64:
		return ast.Number(val), true
	case float64:
		return ast.Float64(val), true
	case bool:
		if val {
			return ast.TrueConstant, true
		}
		return ast.FalseConstant, true
	default:
		return nil, false
	}
}

var _ SemanticEvaluator = (*MangleEvaluator)(nil)
