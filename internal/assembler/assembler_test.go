package assembler

import (
	"context"
	"testing"

	"aeterna/internal/config"
	"aeterna/internal/model"
)

// TestAssemblyWithProportionalAllocation grounds spec.md §8 seed
// scenario 1's shape: two sources sharing a tied relevance score, each
// with Sentence (20 tok) and Paragraph (100 tok) summaries, budget
// 200. Expected: two entries, Session first (tiebreak by layer
// priority), both at Paragraph depth, total_tokens = 200, partial =
// false.
func TestAssemblyWithProportionalAllocation(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = false
	a := New(cfg, nil, nil)

	sourceA := model.SummarySource{
		EntryID: "A", Layer: model.LayerSession, Embedding: []float32{1, 0},
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence:  {Depth: model.DepthSentence, Content: "a-sentence", TokenCount: 20},
			model.DepthParagraph: {Depth: model.DepthParagraph, Content: "a-paragraph", TokenCount: 100},
		},
	}
	sourceB := model.SummarySource{
		EntryID: "B", Layer: model.LayerProject, Embedding: []float32{1, 0},
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence:  {Depth: model.DepthSentence, Content: "b-sentence", TokenCount: 20},
			model.DepthParagraph: {Depth: model.DepthParagraph, Content: "b-paragraph", TokenCount: 100},
		},
	}

	query := []float32{1, 0} // both sources are perfectly aligned: tied cosine score of 1.0

	result := a.Assemble(context.Background(), Request{
		QueryEmbedding: query,
		Sources:        []model.SummarySource{sourceA, sourceB},
		TokenBudget:    200,
		ViewMode:       model.ViewModeAgent,
	})

	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].EntryID != "A" {
		t.Fatalf("expected Session-layer source A first on the tied score, got %s", result.Entries[0].EntryID)
	}
	if result.Entries[0].Depth != model.DepthParagraph || result.Entries[1].Depth != model.DepthParagraph {
		t.Fatalf("expected both entries at Paragraph depth, got %s and %s", result.Entries[0].Depth, result.Entries[1].Depth)
	}
	if result.TotalTokens != 200 {
		t.Fatalf("expected total_tokens 200, got %d", result.TotalTokens)
	}
	if result.Partial {
		t.Fatal("expected partial=false when total_tokens equals budget exactly")
	}
}

func TestAssembleDropsLowRelevanceSources(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = false
	cfg.MinRelevanceScore = 0.6
	a := New(cfg, nil, nil)

	low := model.SummarySource{
		EntryID: "low", Layer: "unknown-layer",
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence: {Depth: model.DepthSentence, Content: "x", TokenCount: 10},
		},
	}
	result := a.Assemble(context.Background(), Request{Sources: []model.SummarySource{low}, TokenBudget: 100})
	if len(result.Entries) != 0 {
		t.Fatalf("expected source below min_relevance_score to be dropped, got %d entries", len(result.Entries))
	}
}

func TestAssembleFallsBackToFullContentWhenNoSummaries(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = false
	a := New(cfg, nil, nil)

	src := model.SummarySource{
		EntryID: "raw", Layer: model.LayerSession,
		FullContent: "the entire raw content body", FullContentTokens: 7,
	}
	result := a.Assemble(context.Background(), Request{Sources: []model.SummarySource{src}, TokenBudget: 100})
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry via full_content fallback, got %d", len(result.Entries))
	}
	if result.Entries[0].Content != src.FullContent {
		t.Fatalf("expected full content fallback, got %q", result.Entries[0].Content)
	}
}

func TestAssembleCacheHitReturnsIdenticalEntries(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = true
	a := New(cfg, nil, nil)

	src := model.SummarySource{
		EntryID: "cached", Layer: model.LayerSession,
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence: {Depth: model.DepthSentence, Content: "sentence", TokenCount: 10},
		},
	}
	req := Request{Sources: []model.SummarySource{src}, TokenBudget: 100, ViewMode: model.ViewModeAgent}

	first := a.Assemble(context.Background(), req)
	second := a.Assemble(context.Background(), req)

	if first.View != second.View {
		t.Fatalf("expected identical cached view, got %q vs %q", first.View, second.View)
	}
	snap := a.metrics.Snapshot()
	if snap.CacheHits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", snap.CacheHits)
	}
}

func TestStalenessDetectedWhenCurrentContentDiffers(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = false
	a := New(cfg, nil, nil)

	src := model.SummarySource{
		EntryID: "s1", Layer: model.LayerSession,
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence: {Depth: model.DepthSentence, Content: "old summary", TokenCount: 10, SourceHash: "deadbeef"},
		},
	}
	result := a.Assemble(context.Background(), Request{
		Sources:         []model.SummarySource{src},
		TokenBudget:     100,
		CurrentContents: map[string]string{"s1": "brand new content that changed"},
	})
	if !result.HasStaleContent {
		t.Fatal("expected stale content to be detected")
	}
	if len(result.StaleEntryIDs) != 1 || result.StaleEntryIDs[0] != "s1" {
		t.Fatalf("expected s1 flagged stale, got %v", result.StaleEntryIDs)
	}
}

func TestDeveloperViewIncludesTrajectoryMetadata(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.CacheEnabled = false
	a := New(cfg, nil, nil)

	src := model.SummarySource{
		EntryID: "d1", Layer: model.LayerSession,
		Summaries: map[model.Depth]model.LayerSummary{
			model.DepthSentence: {Depth: model.DepthSentence, Content: "x", TokenCount: 10},
		},
	}
	result := a.Assemble(context.Background(), Request{
		Sources: []model.SummarySource{src}, TokenBudget: 100,
		ViewMode:       model.ViewModeDeveloper,
		TrajectoryLogs: []string{"step 1"},
	})
	if len(result.Metadata.TrajectoryLogs) != 1 {
		t.Fatal("expected trajectory logs present in developer view metadata")
	}

	agentResult := a.Assemble(context.Background(), Request{
		Sources: []model.SummarySource{src}, TokenBudget: 100,
		ViewMode:       model.ViewModeAgent,
		TrajectoryLogs: []string{"step 1"},
	})
	if len(agentResult.Metadata.TrajectoryLogs) != 0 {
		t.Fatal("expected trajectory logs omitted from agent view metadata")
	}
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	if got := cosineSimilarity(nil, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for empty vector, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched length, got %v", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("expected 0 for zero-magnitude vector, got %v", got)
	}
}
