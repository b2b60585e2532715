package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"citizen-portal-be/pkg/llm"

	"github.com/go-resty/resty/v2"
)

const providerName = "ollama"

type OllamaProvider struct {
	ModelName string
	client    *resty.Client
}

// Ensure OllamaProvider implements Completer
var _ llm.Completer = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(120 * time.Second)

	return &OllamaProvider{
		ModelName: modelName,
		client:    c,
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Model() string {
	return o.ModelName
}

func (o *OllamaProvider) Complete(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	options := llm.Apply(opts...)

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			TopP:        options.TopP,
			TopK:        options.TopK,
			NumPredict:  options.MaxTokens,
		},
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(&reqPayload).
		Post("/api/chat")
	if err != nil {
		return nil, llm.NewError(providerName, llm.KindFailed, fmt.Errorf("ollama request failed: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		cause := fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode(), resp.String())
		return nil, llm.NewError(providerName, classifyStatus(resp.StatusCode()), cause)
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(resp.Body(), &ollamaResp); err != nil {
		return nil, llm.NewError(providerName, llm.KindFailed, fmt.Errorf("unmarshal response: %w", err))
	}

	text := strings.TrimSpace(ollamaResp.Message.Content)
	if text == "" {
		return nil, llm.NewError(providerName, llm.KindFailed, errors.New("empty completion"))
	}

	return &llm.Completion{
		Text: text,
		Usage: llm.TokenUsage{
			Prompt:     ollamaResp.PromptEvalCount,
			Completion: ollamaResp.EvalCount,
			Total:      ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
		},
	}, nil
}

func classifyStatus(code int) llm.ErrorKind {
	switch code {
	case http.StatusTooManyRequests:
		return llm.KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.KindConfiguration
	default:
		return llm.KindFailed
	}
}
