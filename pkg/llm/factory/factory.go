package factory

import (
	"context"
	"fmt"

	"citizen-portal-be/pkg/llm"
	"citizen-portal-be/pkg/llm/gemini"
	"citizen-portal-be/pkg/llm/ollama"
)

// Settings selects and configures a completion backend.
type Settings struct {
	Provider      string // "gemini" or "ollama"
	Model         string
	GeminiAPIKey  string
	GeminiBaseURL string
	OllamaBaseURL string
}

// NewLLMProvider builds the configured Completer. A missing Gemini credential yields
// llm.ErrNotConfigured so the caller can start in a degraded, unavailable mode.
func NewLLMProvider(ctx context.Context, s Settings) (llm.Completer, error) {
	switch s.Provider {
	case "", "gemini":
		p, err := gemini.NewGeminiProvider(ctx, s.GeminiAPIKey, s.Model, s.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		baseURL := s.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		model := s.Model
		if model == "" {
			model = "llama3"
		}
		return ollama.NewOllamaProvider(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
