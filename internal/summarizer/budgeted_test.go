package summarizer

import (
	"context"
	"strings"
	"testing"

	"aeterna/internal/budget"
	"aeterna/internal/config"
	"aeterna/internal/errors"
	"aeterna/internal/model"
)

func TestBudgetedGenerateRejectsWhenExhausted(t *testing.T) {
	bc := config.DefaultBudgetConfig()
	bc.DailyCeiling = 1
	bc.HourlyCeiling = 0
	tracker := budget.NewTracker(bc)

	gc := config.DefaultGeneratorConfig()
	g := NewGenerator(gc, &fakeLLM{response: "ok"}, nil)
	bg := NewBudgetedGenerator(g, tracker, gc, nil)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 5)
	_, err := bg.Generate(context.Background(), Request{Content: content, Depth: model.DepthSentence, Layer: model.LayerSession})
	if !errors.IsBudgetExhausted(err) {
		t.Fatalf("expected BudgetExhaustedError, got %v", err)
	}
}

func TestBudgetedGenerateReconcilesActualUsage(t *testing.T) {
	bc := config.DefaultBudgetConfig()
	bc.DailyCeiling = 1_000_000
	bc.HourlyCeiling = 1_000_000
	tracker := budget.NewTracker(bc)

	gc := config.DefaultGeneratorConfig()
	g := NewGenerator(gc, &fakeLLM{response: strings.Repeat("x", 4000)}, nil)
	bg := NewBudgetedGenerator(g, tracker, gc, nil)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 5)
	_, err := bg.Generate(context.Background(), Request{Content: content, Depth: model.DepthSentence, Layer: model.LayerSession})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	check := tracker.Check(model.LayerSession)
	if check.DailyUsed == 0 {
		t.Fatal("expected some usage to have been charged")
	}
}
