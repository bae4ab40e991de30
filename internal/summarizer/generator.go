// Package summarizer implements the Budget-Aware Summary Generator
// (C6, spec.md §4.6): a tiered, quota-tracked batching layer that
// drives a language-model backend to produce multi-depth summaries.
// Grounded on the teacher's internal/embedding engine-wrapper shape
// (construct-once client, depth/tier-parameterized calls, structured
// logging around each model invocation) and internal/context's
// summary-record fields, now driven by a budget tracker instead of a
// local cache.
package summarizer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"aeterna/internal/config"
	"aeterna/internal/errors"
	"aeterna/internal/fingerprint"
	"aeterna/internal/llm"
	"aeterna/internal/logging"
	"aeterna/internal/model"
)

// Request is a single summary generation request.
type Request struct {
	EntryID               string
	Layer                 model.Layer
	Content               string
	Depth                 model.Depth
	Context               string // optional surrounding context, folded into the prompt
	Personalized          bool
	PersonalizationContext string
}

// Result pairs a Request's EntryID with either a LayerSummary or an error.
type Result struct {
	EntryID string
	Summary model.LayerSummary
	Err     error
}

// EstimateTokens implements spec.md §4.6's token-estimation function:
// max(ceil(chars/4), ceil(words*1.3)).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	chars := int(math.Ceil(float64(len(text)) / 4.0))
	words := len(strings.Fields(text))
	byWords := int(math.Ceil(float64(words) * 1.3))
	if byWords > chars {
		return byWords
	}
	return chars
}

// Generator is the basic, non-budget-aware summary generator.
type Generator struct {
	cfg    config.GeneratorConfig
	llm    llm.Service
	logger *zap.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(cfg config.GeneratorConfig, svc llm.Service, logger *zap.Logger) *Generator {
	return &Generator{cfg: cfg, llm: svc, logger: logging.Component(logger, "summarizer")}
}

// Generate implements spec.md §4.6's basic operation for a single
// request: compose depth-dependent prompts, call the model backend,
// and produce a LayerSummary carrying the input fingerprint and output
// content hash.
func (g *Generator) Generate(ctx context.Context, req Request) (model.LayerSummary, error) {
	if strings.TrimSpace(req.Content) == "" {
		return model.LayerSummary{}, &errors.ValidationError{Field: "content", Reason: "EmptyContent"}
	}

	minChars := g.cfg.DepthMinContentChars[req.Depth]
	if len(req.Content) < minChars {
		return model.LayerSummary{}, &errors.ValidationError{
			Field:  "content",
			Reason: fmt.Sprintf("ContentTooShort(length=%d, minimum=%d)", len(req.Content), minChars),
		}
	}

	tier := g.cfg.LayerModelTier[req.Layer]
	modelName := g.cfg.ModelTierName[tier]
	if modelName == "" {
		modelName = g.cfg.ModelTierName[model.TierStandard]
	}

	systemPrompt := depthSystemPrompt(req.Depth)
	userPrompt := composeUserPrompt(req)

	var text string
	var lastErr error
	retries := g.cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	for attempt := 1; attempt <= retries; attempt++ {
		out, err := g.llm.CompleteWithSystem(ctx, modelName, systemPrompt, userPrompt)
		if err == nil {
			text = out
			lastErr = nil
			break
		}
		lastErr = err
		g.logger.Warn("summary generation attempt failed",
			zap.String("entry_id", req.EntryID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < retries {
			select {
			case <-ctx.Done():
				return model.LayerSummary{}, ctx.Err()
			case <-time.After(time.Duration(g.cfg.RetryDelayMs) * time.Millisecond):
			}
		}
	}
	if lastErr != nil {
		return model.LayerSummary{}, &errors.ModelBackendError{Backend: "llm", Attempt: retries, Cause: lastErr}
	}

	return model.LayerSummary{
		Depth:       req.Depth,
		Content:     text,
		TokenCount:  EstimateTokens(text),
		GeneratedAt: time.Now().Unix(),
		SourceHash:  fingerprint.FingerprintString(req.Content),
		ContentHash: fingerprint.ContentHashString(text),
		Personalized:           req.Personalized,
		PersonalizationContext: req.PersonalizationContext,
	}, nil
}

func depthSystemPrompt(d model.Depth) string {
	switch d {
	case model.DepthSentence:
		return "Summarize the following content in a single concise sentence."
	case model.DepthParagraph:
		return "Summarize the following content in one paragraph, preserving the key facts."
	case model.DepthDetailed:
		return "Produce a detailed summary of the following content, preserving structure and nuance."
	default:
		return "Summarize the following content."
	}
}

func composeUserPrompt(req Request) string {
	var b strings.Builder
	if req.Context != "" {
		b.WriteString("Context:\n")
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	if req.Personalized && req.PersonalizationContext != "" {
		b.WriteString("Personalization:\n")
		b.WriteString(req.PersonalizationContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Content:\n")
	b.WriteString(req.Content)
	return b.String()
}

// GenerateBatch implements spec.md §4.6's batch operation: requests are
// processed serially, accumulating successes and errors independently
// so one failure does not poison the batch.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		summary, err := g.Generate(ctx, req)
		results = append(results, Result{EntryID: req.EntryID, Summary: summary, Err: err})
	}
	return results
}
