package summarizer

import (
	"context"
	"strings"
	"testing"

	"aeterna/internal/budget"
	"aeterna/internal/config"
	"aeterna/internal/model"
)

func TestBatchedSummarizerFailsLayerFastWhenExhausted(t *testing.T) {
	bc := config.DefaultBudgetConfig()
	bc.DailyCeiling = 1
	bc.HourlyCeiling = 0
	tracker := budget.NewTracker(bc)

	gc := config.DefaultGeneratorConfig()
	g := NewGenerator(gc, &fakeLLM{response: "ok"}, nil)
	bg := NewBudgetedGenerator(g, tracker, gc, nil)
	bs := NewBatchedSummarizer(bg, gc, nil)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 5)
	reqs := []Request{
		{EntryID: "r1", Layer: model.LayerSession, Content: content, Depth: model.DepthSentence},
		{EntryID: "r2", Layer: model.LayerSession, Content: content, Depth: model.DepthSentence},
		{EntryID: "r3", Layer: model.LayerSession, Content: content, Depth: model.DepthSentence},
	}
	results := bs.Summarize(context.Background(), reqs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err == nil {
			t.Fatalf("expected all requests in the exhausted layer to fail, entry %s succeeded", r.EntryID)
		}
	}
}

func TestBatchedSummarizerProcessesLayersInPriorityOrder(t *testing.T) {
	bc := config.DefaultBudgetConfig()
	bc.DailyCeiling = 1_000_000
	bc.HourlyCeiling = 1_000_000
	tracker := budget.NewTracker(bc)

	gc := config.DefaultGeneratorConfig()
	g := NewGenerator(gc, &fakeLLM{response: "ok"}, nil)
	bg := NewBudgetedGenerator(g, tracker, gc, nil)
	bs := NewBatchedSummarizer(bg, gc, nil)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 5)
	reqs := []Request{
		{EntryID: "agent", Layer: model.LayerAgent, Content: content, Depth: model.DepthSentence},
		{EntryID: "company", Layer: model.LayerCompany, Content: content, Depth: model.DepthSentence},
	}
	results := bs.Summarize(context.Background(), reqs)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].EntryID != "company" {
		t.Fatalf("expected company (higher priority) first, got %s", results[0].EntryID)
	}
}
