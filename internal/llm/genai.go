package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"google.golang.org/genai"

	"aeterna/internal/errors"
	"aeterna/internal/logging"
)

// GenAIService implements Service against Google's Gemini API. Grounded
// on the teacher's internal/embedding.GenAIEngine client-construction
// and API-call idiom, adapted from embeddings to text completion.
type GenAIService struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGenAIService constructs a GenAIService. apiKey must be non-empty.
func NewGenAIService(ctx context.Context, apiKey string, logger *zap.Logger) (*GenAIService, error) {
	logger = logging.Component(logger, "llm")
	if apiKey == "" {
		return nil, &errors.ValidationError{Field: "apiKey", Reason: "genai API key is required"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, &errors.ModelBackendError{Backend: "genai", Attempt: 1, Cause: err}
	}

	return &GenAIService{client: client, logger: logger}, nil
}

// Complete implements Service.
func (s *GenAIService) Complete(ctx context.Context, model, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, model, "", prompt)
}

// CompleteWithSystem implements Service, issuing a single-turn generate
// call with an optional system instruction.
func (s *GenAIService) CompleteWithSystem(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	timer := logging.StartTimer(s.logger, "CompleteWithSystem")
	defer timer.Stop()

	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := s.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		s.logger.Error("genai generate failed", zap.String("model", model), zap.Error(err))
		return "", &errors.ModelBackendError{Backend: "genai", Attempt: 1, Cause: err}
	}

	text := result.Text()
	if text == "" {
		return "", &errors.ModelBackendError{Backend: "genai", Attempt: 1, Cause: fmt.Errorf("empty response")}
	}
	return text, nil
}
