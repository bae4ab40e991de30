package assembler

import (
	"testing"

	"aeterna/internal/config"
	"aeterna/internal/model"
)

func TestScoreSourcesParallelMatchesInlineAboveThreshold(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	cfg.ParallelScoreThreshold = 4
	a := New(cfg, nil, nil)

	sources := make([]model.SummarySource, 10)
	for i := range sources {
		sources[i] = model.SummarySource{EntryID: string(rune('a' + i)), Layer: model.LayerSession, Embedding: []float32{1, 0}}
	}
	query := []float32{1, 0}

	got := a.scoreSources(sources, query, cfg.LayerPriority)
	if len(got) != len(sources) {
		t.Fatalf("expected %d scores, got %d", len(sources), len(got))
	}
	for i, s := range got {
		if s != 1.0 {
			t.Fatalf("expected cosine score 1.0 at index %d, got %v", i, s)
		}
	}
}

func TestRelevanceScoreFallbackByLayerPriority(t *testing.T) {
	cfg := config.DefaultAssemblerConfig()
	source := model.SummarySource{Layer: model.LayerSession}
	score := relevanceScore(nil, source, cfg.LayerPriority)
	if score != 1.0 {
		t.Fatalf("expected top-priority layer to score 1.0, got %v", score)
	}

	unknown := model.SummarySource{Layer: "nonexistent"}
	if got := relevanceScore(nil, unknown, cfg.LayerPriority); got != 0.5 {
		t.Fatalf("expected 0.5 fallback for unlisted layer, got %v", got)
	}
}
