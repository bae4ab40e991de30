package summarizer

import (
	"context"

	"go.uber.org/zap"

	"aeterna/internal/budget"
	"aeterna/internal/config"
	"aeterna/internal/errors"
	"aeterna/internal/logging"
	"aeterna/internal/model"
)

// BudgetedGenerator wraps a Generator with pre-flight estimation and
// try_consume against a Tracker, and post-flight reconciliation, per
// spec.md §4.6's "Budget-aware generator" clause.
type BudgetedGenerator struct {
	gen     *Generator
	tracker *budget.Tracker
	cfg     config.GeneratorConfig
	logger  *zap.Logger
}

// NewBudgetedGenerator constructs a BudgetedGenerator.
func NewBudgetedGenerator(gen *Generator, tracker *budget.Tracker, cfg config.GeneratorConfig, logger *zap.Logger) *BudgetedGenerator {
	return &BudgetedGenerator{gen: gen, tracker: tracker, cfg: cfg, logger: logging.Component(logger, "budgeted-summarizer")}
}

// Generate performs the full budget-aware flow: estimate, try_consume,
// generate, reconcile.
func (b *BudgetedGenerator) Generate(ctx context.Context, req Request) (model.LayerSummary, error) {
	outputLimit := b.cfg.DepthTokenLimits[req.Depth]
	estimated := uint64(EstimateTokens(req.Content) + EstimateTokens(req.Context) + outputLimit)

	check := b.tracker.TryConsume(estimated, req.Layer)
	if check.Status == model.BudgetExhausted {
		b.logger.Warn("summary generation rejected: budget exhausted",
			zap.String("entry_id", req.EntryID), zap.String("layer", string(req.Layer)), zap.Uint64("estimated", estimated))
		return model.LayerSummary{}, &errors.BudgetExhaustedError{
			Layer: string(req.Layer), Period: "daily", Used: check.DailyUsed, Requested: estimated,
		}
	}

	summary, err := b.gen.Generate(ctx, req)
	if err != nil {
		return model.LayerSummary{}, err
	}

	actual := summary.TokenCount
	if delta := int64(actual) - int64(estimated); delta > 0 {
		b.tracker.RecordUsage(delta, req.Layer)
	}

	return summary, nil
}
