package summarizer

import (
	"context"

	"go.uber.org/zap"

	"aeterna/internal/config"
	"aeterna/internal/errors"
	"aeterna/internal/logging"
	"aeterna/internal/model"
)

// BatchedSummarizer groups requests by layer and processes layers in a
// fixed priority order, failing a layer's requests fast when its
// budget is already exhausted (spec.md §4.6's "Batched summarizer").
type BatchedSummarizer struct {
	budgeted *BudgetedGenerator
	priority []model.Layer
	logger   *zap.Logger
}

// NewBatchedSummarizer constructs a BatchedSummarizer. priority
// defaults to cfg.LayerPriority (Company..Agent, higher-shared-audience
// layers first) when nil.
func NewBatchedSummarizer(budgeted *BudgetedGenerator, cfg config.GeneratorConfig, logger *zap.Logger) *BatchedSummarizer {
	priority := cfg.LayerPriority
	if len(priority) == 0 {
		priority = []model.Layer{
			model.LayerCompany, model.LayerOrg, model.LayerTeam,
			model.LayerProject, model.LayerSession, model.LayerUser, model.LayerAgent,
		}
	}
	return &BatchedSummarizer{budgeted: budgeted, priority: priority, logger: logging.Component(logger, "batched-summarizer")}
}

// Summarize groups reqs by layer and processes each layer's group
// serially, in priority order. A layer whose first request is rejected
// for BudgetExhausted short-circuits the rest of that layer's group.
func (b *BatchedSummarizer) Summarize(ctx context.Context, reqs []Request) []Result {
	byLayer := make(map[model.Layer][]Request)
	for _, r := range reqs {
		byLayer[r.Layer] = append(byLayer[r.Layer], r)
	}

	results := make([]Result, 0, len(reqs))
	for _, layer := range b.priority {
		group, ok := byLayer[layer]
		if !ok {
			continue
		}
		results = append(results, b.summarizeLayer(ctx, layer, group)...)
		delete(byLayer, layer)
	}

	// Any requests for layers outside the known priority list still get
	// processed, just without a defined relative order guarantee.
	for layer, group := range byLayer {
		results = append(results, b.summarizeLayer(ctx, layer, group)...)
	}

	return results
}

func (b *BatchedSummarizer) summarizeLayer(ctx context.Context, layer model.Layer, group []Request) []Result {
	results := make([]Result, 0, len(group))
	exhausted := false
	for _, req := range group {
		if exhausted {
			results = append(results, Result{EntryID: req.EntryID, Err: &errors.BudgetExhaustedError{
				Layer: string(layer), Period: "daily",
			}})
			continue
		}
		summary, err := b.budgeted.Generate(ctx, req)
		if err != nil {
			if errors.IsBudgetExhausted(err) {
				exhausted = true
				b.logger.Warn("layer budget exhausted, failing remaining requests fast",
					zap.String("layer", string(layer)), zap.Int("remaining", len(group)))
			}
			results = append(results, Result{EntryID: req.EntryID, Err: err})
			continue
		}
		results = append(results, Result{EntryID: req.EntryID, Summary: summary})
	}
	return results
}
