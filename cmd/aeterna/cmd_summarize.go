package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aeterna/internal/config"
	"aeterna/internal/llm"
	"aeterna/internal/model"
	"aeterna/internal/summarizer"
)

var (
	summarizeEntryID string
	summarizeLayer   string
	summarizeDepth   string
	summarizeContent string
	summarizeFile    string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate a single layer summary via the configured model backend (C6)",
	Long: `Drives the Budget-Aware Summary Generator's basic, single-request
operation against a Gemini-backed language model service, producing a
LayerSummary carrying the source fingerprint and output content hash.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeEntryID, "entry-id", "", "Entry ID to summarize (required)")
	summarizeCmd.Flags().StringVar(&summarizeLayer, "layer", string(model.LayerProject), "Layer of the source")
	summarizeCmd.Flags().StringVar(&summarizeDepth, "depth", string(model.DepthParagraph), "Target summary depth")
	summarizeCmd.Flags().StringVar(&summarizeContent, "content", "", "Content to summarize (mutually exclusive with --file)")
	summarizeCmd.Flags().StringVar(&summarizeFile, "file", "", "Path to a file containing content to summarize")
	summarizeCmd.MarkFlagRequired("entry-id")
	summarizeCmd.MarkFlagsMutuallyExclusive("content", "file")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	content := summarizeContent
	if summarizeFile != "" {
		raw, err := os.ReadFile(summarizeFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		content = string(raw)
	}
	if content == "" {
		return fmt.Errorf("one of --content or --file must supply non-empty content")
	}

	key := resolveAPIKey()
	if key == "" {
		return fmt.Errorf("a model backend API key is required: pass --api-key or set AETERNA_API_KEY")
	}

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	svc, err := llm.NewGenAIService(ctx, key, logger)
	if err != nil {
		return fmt.Errorf("initialize model backend: %w", err)
	}

	gen := summarizer.NewGenerator(config.DefaultGeneratorConfig(), svc, logger)
	summary, err := gen.Generate(ctx, summarizer.Request{
		EntryID: summarizeEntryID,
		Layer:   model.Layer(summarizeLayer),
		Content: content,
		Depth:   model.Depth(summarizeDepth),
	})
	if err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
