// Package llm defines the Language Model Service contract (spec.md §6)
// and a Gemini-backed implementation. The CORE never depends on a
// concrete model backend directly — only on this interface — so the
// Summary Generator (C6) and Governance Engine's semantic pass (C8)
// can be exercised against a fake in tests.
package llm

import "context"

// Service is the external collaborator boundary for model-backend
// calls, matching spec.md §6's "LanguageModelService: complete,
// complete_with_system" contract.
type Service interface {
	// Complete sends a single user prompt and returns the model's text
	// response.
	Complete(ctx context.Context, model, prompt string) (string, error)

	// CompleteWithSystem sends a system prompt alongside the user
	// prompt, used for depth-templated summary generation.
	CompleteWithSystem(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}
