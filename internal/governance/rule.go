// Package governance implements the Governance Engine (C8): rule
// evaluation against an evaluation context, severity-weighted drift
// scoring, auto-suppression, and an optional semantic pass.
package governance

import (
	"encoding/json"
	"regexp"

	"aeterna/internal/model"
)

// EvaluationContext is a map from field name to an arbitrary JSON-ish
// value, matching spec.md §4.8's "map from field name to JSON value".
type EvaluationContext map[string]interface{}

// fieldPresent reports whether key is present and non-empty, per
// MustExist's definition.
func (c EvaluationContext) fieldPresent(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}

// fieldContains reports whether the field's collection contains value,
// or the field itself equals value, per MustUse's definition.
func (c EvaluationContext) fieldContains(key, value string) bool {
	v, ok := c[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		return t == value
	case []string:
		for _, s := range t {
			if s == value {
				return true
			}
		}
		return false
	case []interface{}:
		for _, s := range t {
			if str, ok := s.(string); ok && str == value {
				return true
			}
		}
		return false
	default:
		b, err := json.Marshal(t)
		return err == nil && string(b) == value
	}
}

// fieldString extracts a string representation of the field for
// MustMatch, or "" if the field is absent or not string-like.
func (c EvaluationContext) fieldString(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}

// evaluateRule applies one rule's operator against ctx's target field,
// returning the violation it produces, if any. targetField is the
// context key the rule's Target maps to (resolved by the caller, since
// spec.md leaves the target->key mapping to the config/policy author).
func evaluateRule(rule model.Rule, targetField string, ctx EvaluationContext) (model.Violation, bool) {
	satisfied := false
	switch rule.Operator {
	case model.OpMustExist:
		satisfied = ctx.fieldPresent(targetField)
	case model.OpMustUse:
		satisfied = ctx.fieldContains(targetField, rule.Value)
	case model.OpMustNotUse:
		satisfied = !ctx.fieldContains(targetField, rule.Value)
	case model.OpMustMatch:
		satisfied = matchesRegex(ctx, targetField, rule.Value)
	case model.OpMustNotMatch:
		satisfied = !matchesRegex(ctx, targetField, rule.Value)
	default:
		satisfied = true
	}

	// An Allow rule fails (and so violates) when NOT satisfied; a Deny
	// rule violates when it IS satisfied (the condition it forbids held).
	violated := (rule.RuleType == model.RuleAllow && !satisfied) ||
		(rule.RuleType == model.RuleDeny && satisfied)
	if !violated {
		return model.Violation{}, false
	}
	return model.Violation{
		PolicyID: "", // filled in by the caller, which knows the owning policy
		RuleID:   rule.ID,
		Severity: rule.Severity,
		Message:  rule.Message,
	}, true
}

func matchesRegex(ctx EvaluationContext, targetField, pattern string) bool {
	s, ok := ctx.fieldString(targetField)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// targetFieldName maps a rule's Target to the evaluation context key
// it inspects. Kept as a pure function (rather than config) since
// spec.md fixes the four target kinds as a closed set.
func targetFieldName(target model.RuleTarget) string {
	switch target {
	case model.TargetDependency:
		return "dependencies"
	case model.TargetFile:
		return "file_path"
	case model.TargetCode:
		return "code_body"
	case model.TargetConfig:
		return "config_value"
	default:
		return string(target)
	}
}
