package governance

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aeterna/internal/config"
	"aeterna/internal/logging"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// SemanticEvaluator is the optional secondary pass over policies whose
// rules carry a SemanticQuery. Implemented by semantic.go's MangleEvaluator
// when a language-model-equivalent backend is configured; nil disables
// the pass entirely.
type SemanticEvaluator interface {
	Evaluate(ctx context.Context, policy model.Policy, evalCtx EvaluationContext) ([]model.Violation, error)
}

// Engine is the Governance Engine (C8). Policies are shared by
// read-mostly reference across callers; ReloadPolicies swaps the set
// under a short exclusive window.
type Engine struct {
	cfg      config.GovernanceConfig
	backend  storage.Backend
	semantic SemanticEvaluator
	logger   *zap.Logger

	mu       sync.RWMutex
	policies []model.Policy
}

// New constructs an Engine. backend and semantic may be nil (storage
// persistence and the semantic pass are both optional per spec.md §4.8).
func New(cfg config.GovernanceConfig, backend storage.Backend, semantic SemanticEvaluator, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		backend:  backend,
		semantic: semantic,
		logger:   logging.Component(logger, "governance"),
	}
}

// SetPolicies replaces the active policy set. Used both for initial
// load and for hot-reload (reload.go).
func (e *Engine) SetPolicies(policies []model.Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = policies
}

func (e *Engine) snapshotPolicies() []model.Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// ValidateWithContext implements validate_with_context (spec.md §4.8):
// evaluates every active policy's rules against evalCtx and returns
// the aggregate result.
func (e *Engine) ValidateWithContext(ctx context.Context, layer model.Layer, evalCtx EvaluationContext) model.ValidationResult {
	policies := e.policiesForLayer(layer)

	var violations []model.Violation
	isMandatoryLayer := false
	for _, p := range policies {
		if p.Mode == model.PolicyMandatory {
			isMandatoryLayer = true
		}
		violations = append(violations, e.evaluatePolicy(ctx, p, evalCtx)...)
	}

	return model.ValidationResult{
		IsValid:          len(violations) == 0,
		Violations:       violations,
		IsMandatoryLayer: isMandatoryLayer,
	}
}

func (e *Engine) policiesForLayer(layer model.Layer) []model.Policy {
	all := e.snapshotPolicies()
	if layer == "" {
		return all
	}
	out := make([]model.Policy, 0, len(all))
	for _, p := range all {
		if p.Layer == layer {
			out = append(out, p)
		}
	}
	return out
}

// evaluatePolicy runs a single policy's rule-based checks plus, when
// configured, its semantic pass, tagging the policy ID onto every
// resulting violation.
func (e *Engine) evaluatePolicy(ctx context.Context, policy model.Policy, evalCtx EvaluationContext) []model.Violation {
	var out []model.Violation
	seenRuleIDs := make(map[string]bool)

	for _, rule := range policy.Rules {
		v, violated := evaluateRule(rule, targetFieldName(rule.Target), evalCtx)
		if violated {
			v.PolicyID = policy.ID
			out = append(out, v)
			seenRuleIDs[rule.ID] = true
		}
	}

	if e.semantic != nil && hasSemanticRules(policy) {
		semanticViolations, err := e.semantic.Evaluate(ctx, policy, evalCtx)
		if err != nil {
			e.logger.Warn("semantic pass failed", zap.String("policy_id", policy.ID), zap.Error(err))
		}
		for _, v := range semanticViolations {
			// "no duplication against rule-based findings of the same
			// rule id" (spec.md §4.8).
			if seenRuleIDs[strings.TrimPrefix(v.RuleID, "llm:")] {
				continue
			}
			v.PolicyID = policy.ID
			out = append(out, v)
		}
	}

	return out
}

func hasSemanticRules(policy model.Policy) bool {
	for _, r := range policy.Rules {
		if r.SemanticQuery != "" {
			return true
		}
	}
	return false
}

// CheckDrift implements check_drift (spec.md §4.8): computes a bounded
// DriftResult for projectID from the active policies and evalCtx, and
// persists it when a storage backend is configured.
func (e *Engine) CheckDrift(ctx context.Context, tenant model.TenantContext, projectID string, evalCtx EvaluationContext, driftCfg model.DriftConfig) (model.DriftResult, error) {
	policies := e.snapshotPolicies()

	var violations []model.Violation
	for _, p := range policies {
		violations = append(violations, e.evaluatePolicy(ctx, p, evalCtx)...)
	}

	missing := e.missingMandatoryViolation(policies, evalCtx)
	if missing != nil {
		violations = append(violations, *missing)
	}
	stale := staleDriftPolicyViolations(policies, evalCtx)
	violations = append(violations, stale...)

	scored, suppressed := applyAutoSuppression(violations, driftCfg.AutoSuppressInfo)

	score := 0.0
	for _, v := range scored {
		score += model.SeverityWeight(v.Severity)
	}
	if score > 1.0 {
		score = 1.0
	}

	result := model.DriftResult{
		ProjectID:            projectID,
		DriftScore:           score,
		Violations:           scored,
		SuppressedViolations: suppressed,
		Timestamp:            nowMillis(),
		IsSignificant:        score >= driftCfg.LowConfidenceThreshold,
	}

	if e.backend != nil {
		if err := persistDrift(ctx, e.backend, tenant, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// missingMandatoryViolation adds a Warn-weighted violation when any
// Mandatory policy evaluated to zero rules because its required
// context keys were absent from evalCtx (spec.md §4.8).
func (e *Engine) missingMandatoryViolation(policies []model.Policy, evalCtx EvaluationContext) *model.Violation {
	for _, p := range policies {
		if p.Mode != model.PolicyMandatory {
			continue
		}
		evaluated := 0
		for _, r := range p.Rules {
			if evalCtx.fieldPresent(targetFieldName(r.Target)) {
				evaluated++
			}
		}
		if evaluated == 0 && len(p.Rules) > 0 {
			return &model.Violation{
				PolicyID: p.ID,
				Severity: model.SeverityWarn,
				Message:  "mandatory policy had no evaluable rules: required context fields absent",
			}
		}
	}
	return nil
}

// staleDriftPolicyViolations adds a Warn-weighted violation per policy
// whose metadata["version_hash"] disagrees with evalCtx["version_hash"].
func staleDriftPolicyViolations(policies []model.Policy, evalCtx EvaluationContext) []model.Violation {
	current, ok := evalCtx.fieldString("version_hash")
	if !ok {
		return nil
	}
	var out []model.Violation
	for _, p := range policies {
		if p.Metadata == nil {
			continue
		}
		if vh, ok := p.Metadata["version_hash"]; ok && vh != current {
			out = append(out, model.Violation{
				PolicyID: p.ID,
				Severity: model.SeverityWarn,
				Message:  "policy version_hash is stale relative to evaluation context",
			})
		}
	}
	return out
}

// applyAutoSuppression moves Info violations to the suppressed slice
// when enabled, excluding them from score contribution.
func applyAutoSuppression(violations []model.Violation, enabled bool) (scored, suppressed []model.Violation) {
	if !enabled {
		return violations, nil
	}
	for _, v := range violations {
		if v.Severity == model.SeverityInfo {
			suppressed = append(suppressed, v)
			continue
		}
		scored = append(scored, v)
	}
	return scored, suppressed
}

// driftSaver is the extra surface both storage.Backend adapters expose
// beyond the narrower storage.Backend contract, used here to persist a
// freshly computed DriftResult without widening storage.Backend itself.
type driftSaver interface {
	SaveLatestDriftResult(model.TenantContext, model.DriftResult) error
}

func persistDrift(ctx context.Context, backend storage.Backend, tenant model.TenantContext, result model.DriftResult) error {
	if saver, ok := backend.(driftSaver); ok {
		return saver.SaveLatestDriftResult(tenant, result)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
